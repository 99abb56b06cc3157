package credits

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hundredwebs/petimage-backend/pkg/db/models"
)

// Repository persists credit debits and reads purchase history for the
// account surfaces.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	RecordUsage(ctx context.Context, usage *models.CreditUsage) error
	ListUsages(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditUsage, error)
	ListPurchases(ctx context.Context, userID uuid.UUID, limit int) ([]models.Purchase, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a credits repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) RecordUsage(ctx context.Context, usage *models.CreditUsage) error {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(usage).Error
}

func (r *repository) ListUsages(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditUsage, error) {
	var usages []models.CreditUsage
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&usages).Error
	if err != nil {
		return nil, err
	}
	return usages, nil
}

func (r *repository) ListPurchases(ctx context.Context, userID uuid.UUID, limit int) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&purchases).Error
	if err != nil {
		return nil, err
	}
	return purchases, nil
}
