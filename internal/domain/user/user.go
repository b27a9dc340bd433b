package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is owned by the identity subsystem; the core only reads it, apart from
// keeping SubscriptionPlan in step with billing events for display.
type User struct {
	ID               uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Email            string    `gorm:"uniqueIndex;size:320;not null;column:email" json:"email"`
	FullName         string    `gorm:"column:full_name" json:"full_name"`
	SubscriptionPlan string    `gorm:"size:16;not null;default:free;column:subscription_plan" json:"subscription_plan"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "users" }
