package entities

import (
	"time"

	"github.com/google/uuid"
)

type ClaimStatus string

const (
	ClaimStatusActive    ClaimStatus = "ACTIVE"
	ClaimStatusCancelled ClaimStatus = "CANCELLED"
	ClaimStatusCompleted ClaimStatus = "COMPLETED"
)

// Claim is a receiver's reservation of a surplus post. Only one claim per
// post may be ACTIVE; the migration backs this with a partial unique index.
type Claim struct {
	ID            uuid.UUID   `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	SurplusPostID uuid.UUID   `gorm:"type:uuid;index;not null" json:"surplus_post_id"`
	ReceiverID    uuid.UUID   `gorm:"type:uuid;index;not null" json:"receiver_id"`
	Status        ClaimStatus `gorm:"size:16;not null" json:"status"`

	ConfirmedPickupDate *time.Time `gorm:"type:date" json:"confirmed_pickup_date,omitempty"`
	ConfirmedPickupFrom *string    `gorm:"size:8" json:"confirmed_pickup_from,omitempty"`
	ConfirmedPickupTo   *string    `gorm:"size:8" json:"confirmed_pickup_to,omitempty"`

	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamp
}
