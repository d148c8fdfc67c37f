package impact

import (
	"Surplus-Share-Backend/domain"
	"Surplus-Share-Backend/entities"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	StatusNotCompleted = "not_completed"
	StatusExpired      = "expired"
)

type (
	ImpactService interface {
		GetImpactReport(ctx context.Context, req domain.ImpactReportRequest) (ComputationResult, error)
		GetFactors() FactorTable
	}

	impactService struct {
		impactRepository ImpactRepository
		location         *time.Location
	}
)

func NewImpactService(impactRepository ImpactRepository, location *time.Location) ImpactService {
	if location == nil {
		location = time.UTC
	}
	return &impactService{
		impactRepository: impactRepository,
		location:         location,
	}
}

func (s *impactService) GetFactors() FactorTable {
	return Factors()
}

// GetImpactReport aggregates the terminal posts of the requested window and
// of the comparison window. Without explicit bounds the comparison window
// has the same length and ends right before the current one starts.
func (s *impactService) GetImpactReport(ctx context.Context, req domain.ImpactReportRequest) (ComputationResult, error) {
	current, err := s.parseWindow(req.From, req.To)
	if err != nil {
		return ComputationResult{}, err
	}

	var previous Window
	switch {
	case req.PreviousFrom == "" && req.PreviousTo == "":
		previous = PrecedingWindow(current)
	default:
		previous, err = s.parseWindow(req.PreviousFrom, req.PreviousTo)
		if err != nil {
			return ComputationResult{}, err
		}
	}

	var donorID *uuid.UUID
	if req.DonorID != "" {
		id, err := uuid.Parse(req.DonorID)
		if err != nil {
			return ComputationResult{}, domain.ErrParseUUID
		}
		donorID = &id
	}

	from, to := current.Start, current.End
	if previous.Start.Before(from) {
		from = previous.Start
	}
	if previous.End.After(to) {
		to = previous.End
	}

	posts, err := s.impactRepository.GetTerminalPostsBetween(ctx, from, to, donorID)
	if err != nil {
		return ComputationResult{}, err
	}

	records := make([]DonationRecord, 0, len(posts))
	for _, p := range posts {
		r, err := RecordFromPost(p)
		if err != nil {
			return ComputationResult{}, err
		}
		records = append(records, r)
	}

	return Compute(records, current, previous)
}

// parseWindow accepts RFC 3339 timestamps or plain dates. A date bound covers
// the whole day in the service location.
func (s *impactService) parseWindow(from, to string) (Window, error) {
	start, err := s.parseBound(from, false)
	if err != nil {
		return Window{}, err
	}
	end, err := s.parseBound(to, true)
	if err != nil {
		return Window{}, err
	}
	if start.After(end) {
		return Window{}, domain.ErrInvalidReportWindow
	}
	return Window{Start: start, End: end}, nil
}

func (s *impactService) parseBound(v string, endOfDay bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, domain.ErrInvalidReportWindow
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	d, err := time.ParseInLocation("2006-01-02", v, s.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidReportWindow, v)
	}
	if endOfDay {
		d = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return d.UTC(), nil
}

// PrecedingWindow is the window of equal length ending just before w starts.
func PrecedingWindow(w Window) Window {
	end := w.Start.Add(-time.Nanosecond)
	return Window{Start: end.Add(-w.End.Sub(w.Start)), End: end}
}

// EventTime is when a post reached its terminal status: completion for a
// pickup, expiry for an expired post, the last change otherwise.
func EventTime(p *entities.SurplusPost) time.Time {
	switch {
	case p.CompletedAt != nil:
		return *p.CompletedAt
	case p.ExpiredAt != nil:
		return *p.ExpiredAt
	default:
		return p.UpdatedAt
	}
}

// RecordFromPost maps a terminal post to the record the metrics engine reads.
func RecordFromPost(p *entities.SurplusPost) (DonationRecord, error) {
	kg, err := QuantityInKg(p.QuantityValue, p.QuantityUnit)
	if err != nil {
		return DonationRecord{}, fmt.Errorf("post %s: %w", p.ID, err)
	}

	r := DonationRecord{
		ID:             p.ID.String(),
		FoodType:       p.FoodType,
		WeightKg:       kg,
		ExpirationTime: p.EffectiveExpiry,
		EventTime:      EventTime(p),
	}
	switch p.Status {
	case entities.PostStatusCompleted:
		r.Status = StatusPickedUp
		if p.CompletedAt != nil {
			r.PickupTime = *p.CompletedAt
		}
	case entities.PostStatusNotCompleted:
		r.Status = StatusNotCompleted
	case entities.PostStatusExpired:
		r.Status = StatusExpired
	default:
		return DonationRecord{}, fmt.Errorf("post %s is %s, not terminal", p.ID, p.Status)
	}
	return r, nil
}
