package entities

import "github.com/google/uuid"

const (
	RoleDonor    = "donor"
	RoleReceiver = "receiver"
	RoleAdmin    = "admin"
)

// User is the slice of an account the lifecycle engine needs: identity,
// contact points and notification preference flags. Accounts themselves are
// managed by the auth service.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name     string    `json:"name"`
	Email    string    `gorm:"uniqueIndex" json:"email"`
	Phone    string    `json:"phone"`
	Role     string    `json:"role"` // donor, receiver, admin
	Timezone string    `json:"timezone"`

	EmailNotifications bool `gorm:"default:true" json:"email_notifications"`
	SMSNotifications   bool `gorm:"default:false" json:"sms_notifications"`
	WebNotifications   bool `gorm:"default:true" json:"web_notifications"`

	Timestamp
}
