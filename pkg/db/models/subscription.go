package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hundredwebs/petimage-backend/pkg/enums"
)

// Subscription mirrors a provider subscription per user. Status is the only
// field the reconciler mutates after creation; a cancelled subscription flips
// back to active on a reactivation event (upsert semantics on the provider id).
type Subscription struct {
	ID                 string                   `gorm:"type:text;primaryKey"`
	UserID             uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID          string                   `gorm:"column:product_id;not null"`
	ProviderCustomerID string                   `gorm:"column:provider_customer_id;not null;default:''"`
	Status             enums.SubscriptionStatus `gorm:"column:status;not null;default:'active'"`
	CancelledAt        *time.Time               `gorm:"column:cancelled_at"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
