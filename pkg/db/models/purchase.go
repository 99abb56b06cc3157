package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hundredwebs/petimage-backend/pkg/enums"
)

// Purchase records one settled checkout. The primary key is the provider's
// checkout id: the uniqueness constraint, not application checks, is what
// makes redelivered webhooks safe. Rows are written once and never updated.
type Purchase struct {
	ID                 string               `gorm:"type:text;primaryKey"`
	UserID             uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID          string               `gorm:"column:product_id;not null"`
	ProductName        string               `gorm:"column:product_name;not null"`
	Credits            int                  `gorm:"column:credits;not null"`
	AmountCents        int                  `gorm:"column:amount_cents;not null"`
	Currency           enums.Currency       `gorm:"column:currency;not null"`
	ProviderCustomerID string               `gorm:"column:provider_customer_id;not null;default:''"`
	TransactionID      string               `gorm:"column:transaction_id;not null;default:''"`
	Status             enums.PurchaseStatus `gorm:"column:status;not null;default:'completed'"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
}
