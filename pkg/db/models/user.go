package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the credit account joined to payment events by email. Email is the
// reconciliation key the payment provider supplies, but every mutation inside
// a transaction operates on the resolved ID.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email        string     `gorm:"type:text;not null;uniqueIndex"`
	Name         string     `gorm:"column:name;not null;default:''"`
	Credits      int        `gorm:"column:credits;not null;default:0"`
	TotalCredits int        `gorm:"column:total_credits;not null;default:0"`
	LastSeenAt   *time.Time `gorm:"column:last_seen_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
