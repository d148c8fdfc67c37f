package entities

import (
	"time"

	"github.com/google/uuid"
)

// ExpiryNotificationLog records that an expiry warning for one post and one
// threshold bucket has been dispatched.
type ExpiryNotificationLog struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	DedupeKey      string    `gorm:"size:128;uniqueIndex;not null" json:"dedupe_key"`
	SurplusPostID  uuid.UUID `gorm:"type:uuid;index;not null" json:"surplus_post_id"`
	ThresholdHours int       `gorm:"not null" json:"threshold_hours"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
