// Package scheduler runs the time-triggered lifecycle sweeps.
package scheduler

import (
	"Surplus-Share-Backend/domain"
	"Surplus-Share-Backend/entities"
	"Surplus-Share-Backend/pkg/notification"
	"Surplus-Share-Backend/pkg/surplus"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

const (
	SweepReadyForPickup = "ready_for_pickup"
	SweepNotCompleted   = "not_completed"
	SweepExpired        = "expired"
	SweepExpiringSoon   = "expiring_soon"
)

type Config struct {
	Interval time.Duration
	Location *time.Location

	// ExpiryThresholds are hours before effective expiry at which the donor
	// is warned about an unclaimed post.
	ExpiryThresholds []int
}

func DefaultConfig() Config {
	return Config{
		Interval:         time.Minute,
		ExpiryThresholds: []int{48, 24},
		Location:         time.UTC,
	}
}

// SweepReport counts what one sweep did. Skipped covers posts that were not
// due yet, already notified, or taken by a concurrent transition.
type SweepReport struct {
	Sweep    string `json:"sweep"`
	Scanned  int    `json:"scanned"`
	Advanced int    `json:"advanced"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

type (
	SchedulerService interface {
		AdvanceToReadyForPickup(ctx context.Context) (SweepReport, error)
		AdvanceToNotCompleted(ctx context.Context) (SweepReport, error)
		ExpireOverduePosts(ctx context.Context) (SweepReport, error)
		SendExpiringSoonNotifications(ctx context.Context) (SweepReport, error)
		RunAll(ctx context.Context) []SweepReport
	}

	schedulerService struct {
		surplusRepository surplus.SurplusRepository
		surplusService    surplus.SurplusService
		notifier          notification.Notifier
		config            Config
		now               func() time.Time
	}
)

func NewSchedulerService(
	surplusRepository surplus.SurplusRepository,
	surplusService surplus.SurplusService,
	notifier notification.Notifier,
	config Config,
	now func() time.Time,
) (SchedulerService, error) {
	for _, h := range config.ExpiryThresholds {
		if h <= 0 {
			return nil, fmt.Errorf("expiry threshold must be positive, got %d", h)
		}
	}
	thresholds := append([]int(nil), config.ExpiryThresholds...)
	sort.Ints(thresholds)
	config.ExpiryThresholds = thresholds
	if config.Location == nil {
		config.Location = time.UTC
	}
	if now == nil {
		now = time.Now
	}

	return &schedulerService{
		surplusRepository: surplusRepository,
		surplusService:    surplusService,
		notifier:          notifier,
		config:            config,
		now:               now,
	}, nil
}

// record classifies a transition outcome. A TransitionError means the post
// no longer qualifies, usually because another worker got there first.
func record(report *SweepReport, postID uuid.UUID, err error) {
	var te *domain.TransitionError
	switch {
	case err == nil:
		report.Advanced++
	case errors.As(err, &te):
		report.Skipped++
		log.Infow("sweep skipped post", "sweep", report.Sweep, "post_id", postID, "reason", te.Reason)
	default:
		report.Failed++
		log.Errorw("sweep failed for post", "sweep", report.Sweep, "post_id", postID, "error", err)
	}
}

func (s *schedulerService) AdvanceToReadyForPickup(ctx context.Context) (SweepReport, error) {
	report := SweepReport{Sweep: SweepReadyForPickup}
	candidates, err := s.surplusRepository.GetPostsWithActiveClaimByStatus(ctx, entities.PostStatusClaimed)
	if err != nil {
		return report, err
	}

	now := s.now().UTC()
	for _, c := range candidates {
		report.Scanned++
		w, err := surplus.EffectiveWindow(c.Post, c.Claim)
		if err != nil {
			record(&report, c.Post.ID, err)
			continue
		}
		if !surplus.PickupStarted(w, c.Post.Location(s.config.Location), now) {
			report.Skipped++
			continue
		}
		_, err = s.surplusService.MarkReadyForPickup(ctx, c.Post.ID)
		record(&report, c.Post.ID, err)
	}
	return report, nil
}

func (s *schedulerService) AdvanceToNotCompleted(ctx context.Context) (SweepReport, error) {
	report := SweepReport{Sweep: SweepNotCompleted}
	candidates, err := s.surplusRepository.GetPostsWithActiveClaimByStatus(ctx, entities.PostStatusReadyForPickup)
	if err != nil {
		return report, err
	}

	now := s.now().UTC()
	for _, c := range candidates {
		report.Scanned++
		w, err := surplus.EffectiveWindow(c.Post, c.Claim)
		if err != nil {
			record(&report, c.Post.ID, err)
			continue
		}
		if !surplus.PickupEnded(w, c.Post.Location(s.config.Location), now) {
			report.Skipped++
			continue
		}
		_, err = s.surplusService.MarkNotCompleted(ctx, c.Post.ID)
		record(&report, c.Post.ID, err)
	}
	return report, nil
}

func (s *schedulerService) ExpireOverduePosts(ctx context.Context) (SweepReport, error) {
	report := SweepReport{Sweep: SweepExpired}
	candidates, err := s.surplusRepository.GetNonTerminalPostsExpiredBefore(ctx, s.now().UTC())
	if err != nil {
		return report, err
	}

	for _, post := range candidates {
		report.Scanned++
		_, err := s.surplusService.MarkExpired(ctx, post.ID)
		record(&report, post.ID, err)
	}
	return report, nil
}

// ExpiryWarningKey is the ledger key for one post and threshold bucket.
func ExpiryWarningKey(postID uuid.UUID, hours int) string {
	return fmt.Sprintf("expiry-warning:%s:%dh", postID, hours)
}

// tightestBucket returns the smallest threshold that remaining falls within.
// thresholds must be sorted ascending.
func tightestBucket(thresholds []int, remaining time.Duration) (int, bool) {
	if remaining <= 0 {
		return 0, false
	}
	for _, h := range thresholds {
		if remaining <= time.Duration(h)*time.Hour {
			return h, true
		}
	}
	return 0, false
}

// SendExpiringSoonNotifications warns donors about unclaimed posts nearing
// expiry. The ledger key is reserved before sending, so a (post, bucket)
// pair is notified at most once even across restarts.
func (s *schedulerService) SendExpiringSoonNotifications(ctx context.Context) (SweepReport, error) {
	report := SweepReport{Sweep: SweepExpiringSoon}
	if len(s.config.ExpiryThresholds) == 0 {
		return report, nil
	}

	now := s.now().UTC()
	widest := s.config.ExpiryThresholds[len(s.config.ExpiryThresholds)-1]
	candidates, err := s.surplusRepository.GetAvailablePostsExpiringBetween(ctx, now, now.Add(time.Duration(widest)*time.Hour))
	if err != nil {
		return report, err
	}

	for _, post := range candidates {
		report.Scanned++
		hours, ok := tightestBucket(s.config.ExpiryThresholds, post.EffectiveExpiry.Sub(now))
		if !ok {
			report.Skipped++
			continue
		}

		reserved, err := s.surplusRepository.ReserveExpiryNotification(ctx, &entities.ExpiryNotificationLog{
			ID:             uuid.New(),
			DedupeKey:      ExpiryWarningKey(post.ID, hours),
			SurplusPostID:  post.ID,
			ThresholdHours: hours,
		})
		if err != nil {
			record(&report, post.ID, err)
			continue
		}
		if !reserved {
			report.Skipped++
			continue
		}

		record(&report, post.ID, s.sendExpiryWarning(ctx, post, hours))
	}
	return report, nil
}

func (s *schedulerService) sendExpiryWarning(ctx context.Context, post *entities.SurplusPost, hours int) error {
	if s.notifier == nil {
		return nil
	}
	donor, err := s.surplusRepository.GetUserByID(ctx, post.DonorID)
	if err != nil {
		return fmt.Errorf("load donor: %w", err)
	}
	_, err = s.notifier.Notify(ctx, notification.RecipientFromUser(donor), notification.TemplateExpiringSoon, map[string]any{
		"Title":          post.Title,
		"ThresholdHours": hours,
		"ExpiresAt":      post.EffectiveExpiry.In(post.Location(s.config.Location)).Format("2006-01-02 15:04 MST"),
	})
	return err
}

// RunAll runs every sweep once. Expiry runs first so expired posts are not
// advanced or warned about in the same pass.
func (s *schedulerService) RunAll(ctx context.Context) []SweepReport {
	sweeps := []func(context.Context) (SweepReport, error){
		s.ExpireOverduePosts,
		s.AdvanceToReadyForPickup,
		s.AdvanceToNotCompleted,
		s.SendExpiringSoonNotifications,
	}

	reports := make([]SweepReport, 0, len(sweeps))
	for _, sweep := range sweeps {
		report, err := sweep(ctx)
		if err != nil {
			log.Errorw("sweep aborted, could not load candidates", "sweep", report.Sweep, "error", err)
		}
		reports = append(reports, report)
	}
	return reports
}
