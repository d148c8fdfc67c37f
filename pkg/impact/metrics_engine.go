package impact

import (
	"fmt"
	"math"
	"time"
)

const (
	StatusPickedUp = "picked_up"

	ReasonStatusNotPickedUp   = "status_not_picked_up"
	ReasonPickedUpAfterExpiry = "picked_up_after_expiry"
	ReasonInvalidWeight       = "invalid_weight"
)

type DonationRecord struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	FoodType       string    `json:"food_type"`
	WeightKg       float64   `json:"weight_kg"`
	PickupTime     time.Time `json:"pickup_time"`
	ExpirationTime time.Time `json:"expiration_time"`
	EventTime      time.Time `json:"event_time"`
}

// Window is an inclusive reporting period.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

type Totals struct {
	WeightKg            float64  `json:"weight_kg"`
	CO2Kg               float64  `json:"co2_kg"`
	WaterLiters         float64  `json:"water_liters"`
	Meals               int      `json:"meals"`
	IncludedDonationIDs []string `json:"included_donation_ids"`
}

type Exclusion struct {
	DonationID string `json:"donation_id"`
	Reason     string `json:"reason"`
}

type Delta struct {
	Abs float64  `json:"abs"`
	Pct *float64 `json:"pct"`
}

type Deltas struct {
	WeightKg    Delta `json:"weight_kg"`
	CO2Kg       Delta `json:"co2_kg"`
	WaterLiters Delta `json:"water_liters"`
	Meals       Delta `json:"meals"`
}

type Audit struct {
	FactorVersion       string      `json:"factor_version"`
	KgPerMeal           float64     `json:"kg_per_meal"`
	ExcludedDonationIDs []string    `json:"excluded_donation_ids"`
	Exclusions          []Exclusion `json:"exclusions"`
}

type ComputationResult struct {
	CurrentWindow  Window `json:"current_window"`
	PreviousWindow Window `json:"previous_window"`
	Current        Totals `json:"current"`
	Previous       Totals `json:"previous"`
	Deltas         Deltas `json:"deltas"`
	Audit          Audit  `json:"audit"`
}

// Compute aggregates records into current and previous window totals. Only
// records whose event time falls in a window are considered for it; the
// audit lists every current-window record that was left out and why.
func Compute(records []DonationRecord, current, previous Window) (ComputationResult, error) {
	cur, exclusions, err := aggregate(records, current)
	if err != nil {
		return ComputationResult{}, fmt.Errorf("current window: %w", err)
	}
	prev, _, err := aggregate(records, previous)
	if err != nil {
		return ComputationResult{}, fmt.Errorf("previous window: %w", err)
	}

	excludedIDs := make([]string, 0, len(exclusions))
	for _, e := range exclusions {
		excludedIDs = append(excludedIDs, e.DonationID)
	}

	return ComputationResult{
		CurrentWindow:  current,
		PreviousWindow: previous,
		Current:        cur,
		Previous:       prev,
		Deltas: Deltas{
			WeightKg:    delta(cur.WeightKg, prev.WeightKg),
			CO2Kg:       delta(cur.CO2Kg, prev.CO2Kg),
			WaterLiters: delta(cur.WaterLiters, prev.WaterLiters),
			Meals:       delta(float64(cur.Meals), float64(prev.Meals)),
		},
		Audit: Audit{
			FactorVersion:       FactorVersion,
			KgPerMeal:           KgPerMeal,
			ExcludedDonationIDs: excludedIDs,
			Exclusions:          exclusions,
		},
	}, nil
}

// ExclusionReason returns the first inclusion rule a record breaks, or "".
func ExclusionReason(r DonationRecord) string {
	switch {
	case r.Status != StatusPickedUp:
		return ReasonStatusNotPickedUp
	case r.PickupTime.After(r.ExpirationTime):
		return ReasonPickedUpAfterExpiry
	case r.WeightKg <= 0:
		return ReasonInvalidWeight
	default:
		return ""
	}
}

func aggregate(records []DonationRecord, w Window) (Totals, []Exclusion, error) {
	totals := Totals{IncludedDonationIDs: []string{}}
	exclusions := []Exclusion{}

	for _, r := range records {
		if !w.Contains(r.EventTime) {
			continue
		}
		if reason := ExclusionReason(r); reason != "" {
			exclusions = append(exclusions, Exclusion{DonationID: r.ID, Reason: reason})
			continue
		}

		f, err := LookupFactor(r.FoodType)
		if err != nil {
			return Totals{}, nil, fmt.Errorf("donation %s: %w", r.ID, err)
		}

		totals.WeightKg += r.WeightKg
		totals.CO2Kg += r.WeightKg * f.CO2eKgPerKg
		totals.WaterLiters += r.WeightKg * f.WaterLitersPerKg
		totals.IncludedDonationIDs = append(totals.IncludedDonationIDs, r.ID)
	}

	totals.Meals = Meals(totals.WeightKg)
	return totals, exclusions, nil
}

// Meals converts weight to meals served, rounded to the nearest meal.
func Meals(weightKg float64) int {
	if weightKg <= 0 {
		return 0
	}
	return int(math.Round(weightKg / KgPerMeal))
}

func delta(cur, prev float64) Delta {
	d := Delta{Abs: cur - prev}
	if prev > 0 {
		pct := d.Abs / prev * 100
		d.Pct = &pct
	}
	return d
}
