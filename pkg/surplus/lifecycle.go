// Package surplus implements the donation lifecycle of a surplus post, from
// the moment a donor lists it until it is picked up, abandoned or expires.
package surplus

import (
	"Surplus-Share-Backend/domain"
	"Surplus-Share-Backend/entities"
	"Surplus-Share-Backend/pkg/expiry"
	"Surplus-Share-Backend/pkg/impact"
	"Surplus-Share-Backend/pkg/pickup"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// nextStatuses is the full transition table. Terminal statuses have no entry.
func nextStatuses(from entities.PostStatus) ([]entities.PostStatus, error) {
	switch from {
	case entities.PostStatusAvailable:
		return []entities.PostStatus{entities.PostStatusClaimed, entities.PostStatusExpired}, nil
	case entities.PostStatusClaimed:
		return []entities.PostStatus{
			entities.PostStatusReadyForPickup,
			entities.PostStatusAvailable,
			entities.PostStatusExpired,
		}, nil
	case entities.PostStatusReadyForPickup:
		return []entities.PostStatus{
			entities.PostStatusCompleted,
			entities.PostStatusNotCompleted,
			entities.PostStatusAvailable,
			entities.PostStatusExpired,
		}, nil
	case entities.PostStatusCompleted, entities.PostStatusNotCompleted, entities.PostStatusExpired:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown post status %q", string(from))
	}
}

func CanTransition(from, to entities.PostStatus) (bool, error) {
	next, err := nextStatuses(from)
	if err != nil {
		return false, err
	}
	for _, s := range next {
		if s == to {
			return true, nil
		}
	}
	return false, nil
}

func invalidStatus(post *entities.SurplusPost, want ...entities.PostStatus) *domain.TransitionError {
	names := make([]string, 0, len(want))
	for _, s := range want {
		names = append(names, string(s))
	}
	return &domain.TransitionError{
		Reason:  domain.ReasonInvalidStatus,
		Message: fmt.Sprintf("post is %s, expected %s", post.Status, strings.Join(names, " or ")),
		Err:     domain.ErrInvalidPostStatus,
	}
}

func requireStatus(post *entities.SurplusPost, want ...entities.PostStatus) error {
	if _, err := post.Status.IsTerminal(); err != nil {
		return err
	}
	for _, s := range want {
		if post.Status == s {
			return nil
		}
	}
	return invalidStatus(post, want...)
}

func moveTo(post *entities.SurplusPost, to entities.PostStatus) error {
	ok, err := CanTransition(post.Status, to)
	if err != nil {
		return err
	}
	if !ok {
		return invalidStatus(post, to)
	}
	post.Status = to
	return nil
}

// PostWindow is the donor's default pickup window.
func PostWindow(post *entities.SurplusPost) (pickup.Window, error) {
	return pickup.NewWindow(post.PickupDate, post.PickupFrom, post.PickupTo)
}

// ClaimWindow is the window confirmed on a claim, or nil without a claim.
func ClaimWindow(claim *entities.Claim) (*pickup.Window, error) {
	if claim == nil {
		return nil, nil
	}
	w, err := pickup.NewWindow(claim.ConfirmedPickupDate, claim.ConfirmedPickupFrom, claim.ConfirmedPickupTo)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// EffectiveWindow resolves the window that governs a pickup of post.
func EffectiveWindow(post *entities.SurplusPost, claim *entities.Claim) (pickup.Window, error) {
	pw, err := PostWindow(post)
	if err != nil {
		return pickup.Window{}, fmt.Errorf("post %s: %w", post.ID, err)
	}
	cw, err := ClaimWindow(claim)
	if err != nil {
		return pickup.Window{}, fmt.Errorf("claim %s: %w", claim.ID, err)
	}
	return pickup.Effective(pw, cw), nil
}

// ClaimInput carries the receiver and the pickup window they confirmed.
type ClaimInput struct {
	ClaimID    uuid.UUID
	ReceiverID uuid.UUID
	PickupDate *time.Time
	PickupFrom *string
	PickupTo   *string
}

// ApplyClaim moves an AVAILABLE post to CLAIMED and returns the new claim.
func ApplyClaim(post *entities.SurplusPost, active *entities.Claim, in ClaimInput) (*entities.Claim, error) {
	if err := requireStatus(post, entities.PostStatusAvailable); err != nil {
		return nil, err
	}
	if in.ReceiverID == post.DonorID {
		return nil, &domain.TransitionError{
			Reason:  domain.ReasonSelfClaim,
			Message: domain.ErrSelfClaim.Error(),
			Err:     domain.ErrSelfClaim,
		}
	}
	if active != nil {
		return nil, &domain.TransitionError{
			Reason:  domain.ReasonAlreadyClaimed,
			Message: domain.ErrPostAlreadyClaimed.Error(),
			Err:     domain.ErrPostAlreadyClaimed,
		}
	}
	if _, err := pickup.NewWindow(in.PickupDate, in.PickupFrom, in.PickupTo); err != nil {
		return nil, err
	}
	if err := moveTo(post, entities.PostStatusClaimed); err != nil {
		return nil, err
	}

	return &entities.Claim{
		ID:                  in.ClaimID,
		SurplusPostID:       post.ID,
		ReceiverID:          in.ReceiverID,
		Status:              entities.ClaimStatusActive,
		ConfirmedPickupDate: in.PickupDate,
		ConfirmedPickupFrom: in.PickupFrom,
		ConfirmedPickupTo:   in.PickupTo,
	}, nil
}

// PickupStarted reports whether the effective window has opened at now. An
// unscheduled pickup counts as started.
func PickupStarted(w pickup.Window, loc *time.Location, now time.Time) bool {
	start, _, ok := w.Bounds(loc)
	if !ok {
		return true
	}
	return !start.After(now)
}

// PickupEnded reports whether the effective window closed before now. An
// unscheduled pickup never ends.
func PickupEnded(w pickup.Window, loc *time.Location, now time.Time) bool {
	_, end, ok := w.Bounds(loc)
	if !ok {
		return false
	}
	return end.Before(now)
}

// ApplyReady moves a CLAIMED post whose pickup has started to
// READY_FOR_PICKUP and stores otp on it. The window is read in the post's
// zone, loc is used when the post has none.
func ApplyReady(post *entities.SurplusPost, claim *entities.Claim, loc *time.Location, otp string, now time.Time) error {
	if err := requireStatus(post, entities.PostStatusClaimed); err != nil {
		return err
	}
	w, err := EffectiveWindow(post, claim)
	if err != nil {
		return err
	}
	if !PickupStarted(w, post.Location(loc), now) {
		return &domain.TransitionError{
			Reason:  domain.ReasonPickupWindow,
			Message: "pickup window has not started yet",
			Err:     domain.ErrPickupWindowDenied,
		}
	}
	if !IsValidOTP(otp) {
		return errors.New("malformed otp")
	}
	if err := moveTo(post, entities.PostStatusReadyForPickup); err != nil {
		return err
	}
	post.OTPCode = &otp
	post.ReadyAt = &now
	return nil
}

// CompleteInput is a donor's completion attempt.
type CompleteInput struct {
	ActorID uuid.UUID
	OTP     string
}

// ApplyComplete verifies status, donor and OTP in that order, then the pickup
// window, and on success records the impact snapshot on the post. Nothing is
// changed when an error is returned.
func ApplyComplete(post *entities.SurplusPost, claim *entities.Claim, auth *pickup.Authorizer, in CompleteInput, now time.Time) error {
	if err := requireStatus(post, entities.PostStatusReadyForPickup); err != nil {
		return err
	}
	if in.ActorID != post.DonorID {
		return &domain.TransitionError{
			Reason:  domain.ReasonNotAuthorized,
			Message: "not authorized, only the donor can complete this pickup",
			Err:     domain.ErrNotPostDonor,
		}
	}
	if post.OTPCode == nil || *post.OTPCode != in.OTP {
		return &domain.TransitionError{
			Reason:  domain.ReasonInvalidOTP,
			Message: domain.ErrInvalidOTP.Error(),
			Err:     domain.ErrInvalidOTP,
		}
	}

	pw, err := PostWindow(post)
	if err != nil {
		return err
	}
	cw, err := ClaimWindow(claim)
	if err != nil {
		return err
	}
	if res := auth.Validate(pw, cw, post.Location(auth.Location()), now); !res.Allowed {
		return &domain.TransitionError{
			Reason:  domain.ReasonPickupWindow,
			Message: res.Message,
			Err:     domain.ErrPickupWindowDenied,
			Pickup:  &res,
		}
	}

	kg, err := impact.QuantityInKg(post.QuantityValue, post.QuantityUnit)
	if err != nil {
		return err
	}
	snap, err := impact.ComputeSnapshot(post.FoodType, kg, now)
	if err != nil {
		return err
	}

	if err := moveTo(post, entities.PostStatusCompleted); err != nil {
		return err
	}
	post.CompletedAt = &now
	post.ImpactCO2eKg = &snap.CO2eKg
	post.ImpactWaterLiters = &snap.WaterLiters
	post.ImpactFactorVersion = &snap.FactorVersion
	post.ImpactComputedAt = &snap.ComputedAt
	post.ImpactInputsUsed = snap.InputsUsed

	if claim != nil {
		claim.Status = entities.ClaimStatusCompleted
		claim.CompletedAt = &now
	}
	return nil
}

// ApplyNotCompleted moves a READY_FOR_PICKUP post whose pickup window closed
// to NOT_COMPLETED and ends the active claim. loc is the fallback zone as in
// ApplyReady.
func ApplyNotCompleted(post *entities.SurplusPost, claim *entities.Claim, loc *time.Location, now time.Time) error {
	if err := requireStatus(post, entities.PostStatusReadyForPickup); err != nil {
		return err
	}
	w, err := EffectiveWindow(post, claim)
	if err != nil {
		return err
	}
	if !PickupEnded(w, post.Location(loc), now) {
		return &domain.TransitionError{
			Reason:  domain.ReasonPickupWindow,
			Message: "pickup window has not ended yet",
			Err:     domain.ErrPickupWindowDenied,
		}
	}
	if err := moveTo(post, entities.PostStatusNotCompleted); err != nil {
		return err
	}
	if claim != nil {
		claim.Status = entities.ClaimStatusCancelled
		claim.CancelledAt = &now
	}
	return nil
}

// ApplyExpired expires a non-terminal post whose effective expiry passed.
// An active claim is cancelled and the OTP cleared.
func ApplyExpired(post *entities.SurplusPost, claim *entities.Claim, now time.Time) error {
	if err := requireStatus(post,
		entities.PostStatusAvailable,
		entities.PostStatusClaimed,
		entities.PostStatusReadyForPickup,
	); err != nil {
		return err
	}
	if !post.EffectiveExpiry.Before(now) {
		return &domain.TransitionError{
			Reason:  domain.ReasonInvalidStatus,
			Message: "post has not expired yet",
			Err:     domain.ErrInvalidPostStatus,
		}
	}
	if err := moveTo(post, entities.PostStatusExpired); err != nil {
		return err
	}
	post.ExpiredAt = &now
	post.OTPCode = nil
	if claim != nil {
		claim.Status = entities.ClaimStatusCancelled
		claim.CancelledAt = &now
	}
	return nil
}

// ApplyCancelClaim lets the receiver give a claimed post back.
func ApplyCancelClaim(post *entities.SurplusPost, claim *entities.Claim, actorID uuid.UUID, now time.Time) error {
	if err := requireStatus(post, entities.PostStatusClaimed, entities.PostStatusReadyForPickup); err != nil {
		return err
	}
	if claim == nil || claim.ReceiverID != actorID {
		return &domain.TransitionError{
			Reason:  domain.ReasonNotClaimReceiver,
			Message: domain.ErrNotClaimReceiver.Error(),
			Err:     domain.ErrNotClaimReceiver,
		}
	}
	if err := moveTo(post, entities.PostStatusAvailable); err != nil {
		return err
	}
	post.OTPCode = nil
	post.ReadyAt = nil
	claim.Status = entities.ClaimStatusCancelled
	claim.CancelledAt = &now
	return nil
}

// ApplyOverrideExpiry records the donor's manual expiry and refreshes the
// cached effective expiry.
func ApplyOverrideExpiry(post *entities.SurplusPost, actorID uuid.UUID, at time.Time, fallback *time.Location) error {
	if err := requireStatus(post,
		entities.PostStatusAvailable,
		entities.PostStatusClaimed,
		entities.PostStatusReadyForPickup,
	); err != nil {
		return err
	}
	if actorID != post.DonorID {
		return &domain.TransitionError{
			Reason:  domain.ReasonNotAuthorized,
			Message: "not authorized, only the donor can override the expiry",
			Err:     domain.ErrNotPostDonor,
		}
	}
	at = at.UTC()
	post.ExpiryOverridden = true
	post.ExpiryOverrideAt = &at
	expiry.Refresh(post, fallback)
	return nil
}
