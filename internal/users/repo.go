package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hundredwebs/petimage-backend/pkg/db/models"
)

// Repository exposes user-account persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// ResolveByEmail returns the account for email, creating an empty one if
	// none exists. Creation races resolve through the unique email index, so
	// concurrent callers converge on the same row.
	ResolveByEmail(ctx context.Context, email, name string) (*models.User, error)
	// GrantCredits adds n to both the spendable balance and the lifetime
	// total as a single relative update.
	GrantCredits(ctx context.Context, id uuid.UUID, n int) error
	// SpendCredits subtracts n from the balance only when it covers n.
	// Returns false when the balance was insufficient.
	SpendCredits(ctx context.Context, id uuid.UUID, n int) (bool, error)
	TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) ResolveByEmail(ctx context.Context, email, name string) (*models.User, error) {
	user, err := r.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	candidate := &models.User{
		ID:    uuid.New(),
		Email: email,
		Name:  name,
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).
		Create(candidate).Error
	if err != nil {
		return nil, err
	}

	// Re-read: a concurrent insert may have won the conflict.
	return r.FindByEmail(ctx, email)
}

func (r *repository) GrantCredits(ctx context.Context, id uuid.UUID, n int) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"credits":       gorm.Expr("credits + ?", n),
			"total_credits": gorm.Expr("total_credits + ?", n),
			"updated_at":    time.Now().UTC(),
		}).Error
}

func (r *repository) SpendCredits(ctx context.Context, id uuid.UUID, n int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND credits >= ?", id, n).
		UpdateColumns(map[string]any{
			"credits":    gorm.Expr("credits - ?", n),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_seen_at", at).Error
}
