package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PostStatus string

const (
	PostStatusAvailable      PostStatus = "AVAILABLE"
	PostStatusClaimed        PostStatus = "CLAIMED"
	PostStatusReadyForPickup PostStatus = "READY_FOR_PICKUP"
	PostStatusCompleted      PostStatus = "COMPLETED"
	PostStatusNotCompleted   PostStatus = "NOT_COMPLETED"
	PostStatusExpired        PostStatus = "EXPIRED"
)

// PostStatuses lists every status in lifecycle order.
var PostStatuses = []PostStatus{
	PostStatusAvailable,
	PostStatusClaimed,
	PostStatusReadyForPickup,
	PostStatusCompleted,
	PostStatusNotCompleted,
	PostStatusExpired,
}

func ParsePostStatus(s string) (PostStatus, error) {
	for _, status := range PostStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown post status %q", s)
}

// IsTerminal reports whether no further transition may leave the status.
func (s PostStatus) IsTerminal() (bool, error) {
	switch s {
	case PostStatusAvailable, PostStatusClaimed, PostStatusReadyForPickup:
		return false, nil
	case PostStatusCompleted, PostStatusNotCompleted, PostStatusExpired:
		return true, nil
	default:
		return false, fmt.Errorf("unknown post status %q", string(s))
	}
}

type SurplusPost struct {
	ID             uuid.UUID                   `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	DonorID        uuid.UUID                   `gorm:"type:uuid;index" json:"donor_id"`
	Title          string                      `json:"title"`
	Description    string                      `json:"description"`
	FoodType       string                      `gorm:"index" json:"food_type"`
	FoodCategories datatypes.JSONSlice[string] `json:"food_categories"`
	QuantityValue  decimal.Decimal             `gorm:"type:decimal(12,3);not null" json:"quantity_value"`
	QuantityUnit   string                      `json:"quantity_unit"`
	ImageURL       string                      `json:"image_url,omitempty"`
	PickupAddress  string                      `json:"pickup_address"`

	// Expiry inputs and the cached effective value derived from them.
	ExpiryDate             time.Time  `gorm:"type:date" json:"expiry_date"`
	Timezone               string     `json:"timezone"`
	PredictedExpiry        *time.Time `json:"predicted_expiry,omitempty"`
	PredictionConfidence   *float64   `json:"prediction_confidence,omitempty"`
	PredictionModelVersion string     `json:"prediction_model_version,omitempty"`
	ExpiryOverridden       bool       `json:"expiry_overridden"`
	ExpiryOverrideAt       *time.Time `json:"expiry_override_at,omitempty"`
	EffectiveExpiry        time.Time  `gorm:"index" json:"effective_expiry"`

	// Default pickup window; an active claim may confirm a different one.
	PickupDate *time.Time `gorm:"type:date" json:"pickup_date,omitempty"`
	PickupFrom *string    `gorm:"size:8" json:"pickup_from,omitempty"`
	PickupTo   *string    `gorm:"size:8" json:"pickup_to,omitempty"`

	OTPCode     *string    `gorm:"size:6" json:"-"`
	Status      PostStatus `gorm:"size:32;index;not null" json:"status"`
	ReadyAt     *time.Time `json:"ready_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty"`

	ImpactCO2eKg        *float64       `json:"impact_co2e_kg,omitempty"`
	ImpactWaterLiters   *float64       `json:"impact_water_liters,omitempty"`
	ImpactFactorVersion *string        `gorm:"size:32" json:"impact_factor_version,omitempty"`
	ImpactComputedAt    *time.Time     `json:"impact_computed_at,omitempty"`
	ImpactInputsUsed    datatypes.JSON `gorm:"type:jsonb" json:"impact_inputs_used,omitempty"`

	Donor  *User    `gorm:"foreignKey:DonorID" json:"-"`
	Claims []*Claim `gorm:"foreignKey:SurplusPostID" json:"-"`
	Timestamp
}

// Location is the zone the donor's dates and pickup times are read in. An
// empty or unknown timezone name falls back to fallback.
func (p *SurplusPost) Location(fallback *time.Location) *time.Location {
	if p.Timezone != "" {
		if loc, err := time.LoadLocation(p.Timezone); err == nil {
			return loc
		}
	}
	return fallback
}
