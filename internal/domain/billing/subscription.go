package billing

import (
	"time"

	"github.com/google/uuid"
)

const (
	PlanFree = "free"
	PlanPro  = "pro"
)

const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusOnHold    = "on_hold"
	StatusExpired   = "expired"
)

// Subscription is at most one per user. SubscriptionID and CustomerID are the
// payment provider's identifiers and stay nil until the first billing event.
type Subscription struct {
	ID                 uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	UserID             uuid.UUID  `gorm:"type:char(36);uniqueIndex;not null;column:user_id" json:"user_id"`
	Plan               string     `gorm:"size:16;not null;default:free" json:"plan"`
	Status             string     `gorm:"size:16;not null;default:active" json:"status"`
	SubscriptionID     *string    `gorm:"size:128;uniqueIndex;column:subscription_id" json:"subscription_id,omitempty"`
	CustomerID         *string    `gorm:"size:128;column:customer_id" json:"customer_id,omitempty"`
	CurrentPeriodStart *time.Time `gorm:"column:current_period_start" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `gorm:"column:current_period_end" json:"current_period_end,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// Entitles reports whether the record grants plan right now.
func (s *Subscription) Entitles(plan string) bool {
	return s != nil && s.Status == StatusActive && s.Plan == plan
}
