// Package expiry resolves the effective expiry of a surplus post from its
// declared date, an optional model prediction and an optional manual override.
package expiry

import (
	"time"

	"Surplus-Share-Backend/entities"
)

type Input struct {
	// DeclaredDate is a calendar date; only its year, month and day are read.
	DeclaredDate time.Time
	// Location is the donor's declared zone. Nil means UTC.
	Location   *time.Location
	Predicted  *time.Time
	Overridden bool
	OverrideAt *time.Time
}

// Resolve returns the effective expiry in UTC. Precedence: manual override,
// then prediction, then the start of the declared day in the donor's zone.
func Resolve(in Input) time.Time {
	if in.Overridden && in.OverrideAt != nil {
		return in.OverrideAt.UTC()
	}
	if in.Predicted != nil {
		return in.Predicted.UTC()
	}
	return StartOfDeclaredDay(in.DeclaredDate, in.Location)
}

func StartOfDeclaredDay(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).UTC()
}

// Changed reports whether a cached effective expiry differs from what the
// inputs resolve to now.
func Changed(cached time.Time, in Input) bool {
	return !cached.Equal(Resolve(in))
}

// InputFromPost builds the engine input from a post. An unknown timezone
// name falls back to fallback.
func InputFromPost(post *entities.SurplusPost, fallback *time.Location) Input {
	return Input{
		DeclaredDate: post.ExpiryDate,
		Location:     post.Location(fallback),
		Predicted:    post.PredictedExpiry,
		Overridden:   post.ExpiryOverridden,
		OverrideAt:   post.ExpiryOverrideAt,
	}
}

// Refresh recomputes post.EffectiveExpiry and reports whether it changed.
func Refresh(post *entities.SurplusPost, fallback *time.Location) bool {
	in := InputFromPost(post, fallback)
	if !Changed(post.EffectiveExpiry, in) {
		return false
	}
	post.EffectiveExpiry = Resolve(in)
	return true
}
