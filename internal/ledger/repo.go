package ledger

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hundredwebs/petimage-backend/pkg/db/models"
	"github.com/hundredwebs/petimage-backend/pkg/enums"
)

// Repository manages the purchase and subscription records the reconciler
// writes. Insert-if-absent operations ride on primary-key conflicts so two
// concurrent deliveries of the same event resolve at the database, not in
// application code.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// InsertPurchaseIfAbsent inserts the purchase unless a row with the same
	// id exists. Returns true when this call created the row.
	InsertPurchaseIfAbsent(ctx context.Context, purchase *models.Purchase) (bool, error)
	FindSubscription(ctx context.Context, id string) (*models.Subscription, error)
	// InsertSubscriptionIfAbsent inserts the subscription unless the id is
	// taken. Returns true when this call created the row.
	InsertSubscriptionIfAbsent(ctx context.Context, sub *models.Subscription) (bool, error)
	// MarkSubscriptionActive flips a non-active subscription to active.
	// Returns true only when a state transition happened, which is what
	// gates re-granting credits on reactivation.
	MarkSubscriptionActive(ctx context.Context, id string) (bool, error)
	// MarkSubscriptionCancelled flips the subscription to cancelled. Returns
	// false when no such subscription exists.
	MarkSubscriptionCancelled(ctx context.Context, id string, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) InsertPurchaseIfAbsent(ctx context.Context, purchase *models.Purchase) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(purchase)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).First(&sub, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) InsertSubscriptionIfAbsent(ctx context.Context, sub *models.Subscription) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(sub)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkSubscriptionActive(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND status <> ?", id, enums.SubscriptionStatusActive).
		UpdateColumns(map[string]any{
			"status":       enums.SubscriptionStatusActive,
			"cancelled_at": nil,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkSubscriptionCancelled(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"status":       enums.SubscriptionStatusCancelled,
			"cancelled_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
