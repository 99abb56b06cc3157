package models

import (
	"time"

	"github.com/google/uuid"
)

// CreditUsage records a single debit against a user's balance, written by the
// generation pipeline when an image render consumes credits.
type CreditUsage struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	CreditsUsed int       `gorm:"column:credits_used;not null"`
	ImageURL    string    `gorm:"column:image_url;not null;default:''"`
	Prompt      string    `gorm:"column:prompt;not null;default:''"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
