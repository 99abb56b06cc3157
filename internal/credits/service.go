package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hundredwebs/petimage-backend/internal/users"
	"github.com/hundredwebs/petimage-backend/pkg/db/models"
	pkgerrors "github.com/hundredwebs/petimage-backend/pkg/errors"
	"github.com/hundredwebs/petimage-backend/pkg/logger"
)

const defaultHistoryLimit = 50

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Balance is the account snapshot returned to the client.
type Balance struct {
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	Credits      int       `json:"credits"`
	TotalCredits int       `json:"total_credits"`
}

// HistoryEntry is one purchase in the account's credit history.
type HistoryEntry struct {
	ID          string    `json:"id"`
	ProductName string    `json:"product_name"`
	Credits     int       `json:"credits"`
	AmountCents int       `json:"amount_cents"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

// UsageEntry is one debit in the account's usage history.
type UsageEntry struct {
	ID          uuid.UUID `json:"id"`
	CreditsUsed int       `json:"credits_used"`
	ImageURL    string    `json:"image_url,omitempty"`
	Prompt      string    `json:"prompt,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SpendInput describes a debit request from the generation pipeline.
type SpendInput struct {
	Credits  int
	ImageURL string
	Prompt   string
}

// ServiceParams carries the dependencies for NewService.
type ServiceParams struct {
	DB     TxRunner
	Repo   Repository
	Users  users.Repository
	Logger *logger.Logger
}

// Service reads balances and applies debits. Accounts materialize lazily:
// the first balance read for an email that has never paid creates an empty
// account rather than returning 404.
type Service struct {
	db     TxRunner
	repo   Repository
	users  users.Repository
	logger *logger.Logger
}

// NewService validates params and returns a Service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("credits: DB is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("credits: Repo is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("credits: Users is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("credits: Logger is required")
	}
	return &Service{
		db:     params.DB,
		repo:   params.Repo,
		users:  params.Users,
		logger: params.Logger,
	}, nil
}

// BalanceByEmail returns the account balance for email, creating an empty
// account on first contact.
func (s *Service) BalanceByEmail(ctx context.Context, email, name string) (*Balance, error) {
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	user, err := s.users.ResolveByEmail(ctx, email, name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve account")
	}
	if err := s.users.TouchLastSeen(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn(ctx, "failed to update last seen")
	}
	return &Balance{
		UserID:       user.ID,
		Email:        user.Email,
		Credits:      user.Credits,
		TotalCredits: user.TotalCredits,
	}, nil
}

// History returns recent purchases and debits for the user.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]HistoryEntry, []UsageEntry, error) {
	purchases, err := s.repo.ListPurchases(ctx, userID, defaultHistoryLimit)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list purchases")
	}
	usages, err := s.repo.ListUsages(ctx, userID, defaultHistoryLimit)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list usages")
	}

	history := make([]HistoryEntry, 0, len(purchases))
	for _, p := range purchases {
		history = append(history, HistoryEntry{
			ID:          p.ID,
			ProductName: p.ProductName,
			Credits:     p.Credits,
			AmountCents: p.AmountCents,
			Currency:    p.Currency.String(),
			CreatedAt:   p.CreatedAt,
		})
	}
	spent := make([]UsageEntry, 0, len(usages))
	for _, u := range usages {
		spent = append(spent, UsageEntry{
			ID:          u.ID,
			CreditsUsed: u.CreditsUsed,
			ImageURL:    u.ImageURL,
			Prompt:      u.Prompt,
			CreatedAt:   u.CreatedAt,
		})
	}
	return history, spent, nil
}

// Spend debits the user's balance and records the usage in one transaction.
// The decrement is guarded by the current balance, so two concurrent spends
// can never push an account negative.
func (s *Service) Spend(ctx context.Context, userID uuid.UUID, input SpendInput) (*Balance, error) {
	if input.Credits <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credits must be positive")
	}

	var balance *Balance
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		usersTx := s.users.WithTx(tx)

		ok, err := usersTx.SpendCredits(ctx, userID, input.Credits)
		if err != nil {
			return fmt.Errorf("debit balance: %w", err)
		}
		if !ok {
			user, err := usersTx.FindByID(ctx, userID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
			}
			if err != nil {
				return fmt.Errorf("load account: %w", err)
			}
			return pkgerrors.New(pkgerrors.CodeInsufficient, "not enough credits").
				WithDetails(map[string]any{"credits": user.Credits, "requested": input.Credits})
		}

		if err := s.repo.WithTx(tx).RecordUsage(ctx, &models.CreditUsage{
			UserID:      userID,
			CreditsUsed: input.Credits,
			ImageURL:    input.ImageURL,
			Prompt:      input.Prompt,
		}); err != nil {
			return fmt.Errorf("record usage: %w", err)
		}

		user, err := usersTx.FindByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("reload account: %w", err)
		}
		balance = &Balance{
			UserID:       user.ID,
			Email:        user.Email,
			Credits:      user.Credits,
			TotalCredits: user.TotalCredits,
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "spend credits")
	}

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"user_id": userID.String(),
		"credits": input.Credits,
	}), "credits spent")
	return balance, nil
}
