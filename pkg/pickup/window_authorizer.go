// Package pickup decides whether a pickup attempt falls inside the scheduled
// pickup window, allowing a configurable early and late tolerance.
package pickup

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Reason string

const (
	ReasonNoSchedule     Reason = "NO_SCHEDULE"
	ReasonWithinWindow   Reason = "WITHIN_WINDOW"
	ReasonEarlyTolerance Reason = "EARLY_TOLERANCE"
	ReasonLateTolerance  Reason = "LATE_TOLERANCE"
	ReasonTooEarly       Reason = "TOO_EARLY"
	ReasonTooLate        Reason = "TOO_LATE"
)

var (
	ErrInvalidClock     = errors.New("invalid pickup time, expected HH:MM")
	ErrInvalidWindow    = errors.New("pickup window must end after it starts")
	ErrInvalidTolerance = errors.New("pickup tolerance minutes must not be negative")
)

// Result is returned to API callers as-is.
type Result struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

type Tolerance struct {
	EarlyMinutes int `yaml:"early_minutes" json:"early_minutes"`
	LateMinutes  int `yaml:"late_minutes" json:"late_minutes"`
}

func DefaultTolerance() Tolerance {
	return Tolerance{EarlyMinutes: 30, LateMinutes: 30}
}

// Window is a pickup schedule on one calendar day. Start and End are offsets
// from midnight. A window missing its date or either time is unscheduled.
type Window struct {
	Date  *time.Time
	Start *time.Duration
	End   *time.Duration
}

// ParseClock parses "15:04" or "15:04:05" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
}

// FormatClock renders an offset from midnight as HH:MM.
func FormatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// NewWindow builds a window from the stored columns. Nil or empty times are
// kept unset.
func NewWindow(date *time.Time, from, to *string) (Window, error) {
	w := Window{Date: date}
	if from != nil && *from != "" {
		start, err := ParseClock(*from)
		if err != nil {
			return Window{}, err
		}
		w.Start = &start
	}
	if to != nil && *to != "" {
		end, err := ParseClock(*to)
		if err != nil {
			return Window{}, err
		}
		w.End = &end
	}
	if w.Start != nil && w.End != nil && *w.End < *w.Start {
		return Window{}, ErrInvalidWindow
	}
	return w, nil
}

func (w Window) IsScheduled() bool {
	return w.Date != nil && w.Start != nil && w.End != nil
}

// Bounds returns the absolute start and end of the window in loc.
func (w Window) Bounds(loc *time.Location) (start, end time.Time, ok bool) {
	if !w.IsScheduled() {
		return time.Time{}, time.Time{}, false
	}
	midnight := dayStart(*w.Date, loc)
	return midnight.Add(*w.Start), midnight.Add(*w.End), true
}

// Effective picks the window that governs a pickup: a claim-confirmed window
// with a date replaces the post's default window entirely.
func Effective(post Window, claim *Window) Window {
	if claim != nil && claim.Date != nil {
		return *claim
	}
	return post
}

type Authorizer struct {
	tolerance Tolerance
	loc       *time.Location
}

func NewAuthorizer(tolerance Tolerance, loc *time.Location) (*Authorizer, error) {
	if tolerance.EarlyMinutes < 0 || tolerance.LateMinutes < 0 {
		return nil, ErrInvalidTolerance
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Authorizer{tolerance: tolerance, loc: loc}, nil
}

func (a *Authorizer) Tolerance() Tolerance { return a.tolerance }

func (a *Authorizer) Location() *time.Location { return a.loc }

// Validate checks now against the effective window read in loc, the
// donor's zone; nil means the configured zone. A window on another calendar
// day is decided by the date alone, tolerance is not applied.
func (a *Authorizer) Validate(post Window, claim *Window, loc *time.Location, now time.Time) Result {
	if loc == nil {
		loc = a.loc
	}
	w := Effective(post, claim)
	if !w.IsScheduled() {
		return Result{
			Allowed: true,
			Reason:  ReasonNoSchedule,
			Message: "No pickup schedule is set, pickup is allowed at any time",
		}
	}

	now = now.In(loc)
	scheduledDay := dayStart(*w.Date, loc)
	today := dayStart(now, loc)
	start, end, _ := w.Bounds(loc)

	switch {
	case scheduledDay.After(today):
		return Result{
			Reason:  ReasonTooEarly,
			Message: fmt.Sprintf("Pickup is not yet allowed, it is scheduled for %s", scheduledDay.Format("2006-01-02")),
		}
	case scheduledDay.Before(today):
		return Result{
			Reason:  ReasonTooLate,
			Message: fmt.Sprintf("Pickup window has passed, it was scheduled for %s", scheduledDay.Format("2006-01-02")),
		}
	}

	earliest := start.Add(-time.Duration(a.tolerance.EarlyMinutes) * time.Minute)
	latest := end.Add(time.Duration(a.tolerance.LateMinutes) * time.Minute)

	switch {
	case !now.Before(start) && !now.After(end):
		return Result{
			Allowed: true,
			Reason:  ReasonWithinWindow,
			Message: fmt.Sprintf("Pickup is within the scheduled window %s-%s", start.Format("15:04"), end.Format("15:04")),
		}
	case !now.Before(earliest) && now.Before(start):
		return Result{
			Allowed: true,
			Reason:  ReasonEarlyTolerance,
			Message: fmt.Sprintf("Pickup is allowed up to %d minutes before the window opens at %s", a.tolerance.EarlyMinutes, start.Format("15:04")),
		}
	case now.After(end) && !now.After(latest):
		return Result{
			Allowed: true,
			Reason:  ReasonLateTolerance,
			Message: fmt.Sprintf("Pickup is allowed up to %d minutes after the window closed at %s", a.tolerance.LateMinutes, end.Format("15:04")),
		}
	case now.Before(earliest):
		return Result{
			Reason:  ReasonTooEarly,
			Message: fmt.Sprintf("Pickup is not yet allowed, earliest pickup time is %s", earliest.Format("15:04")),
		}
	default:
		return Result{
			Reason:  ReasonTooLate,
			Message: fmt.Sprintf("Pickup window has closed, latest pickup time was %s", latest.Format("15:04")),
		}
	}
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
