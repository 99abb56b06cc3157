package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hundredwebs/petimage-backend/internal/products"
	"github.com/hundredwebs/petimage-backend/internal/users"
	"github.com/hundredwebs/petimage-backend/pkg/db/models"
	"github.com/hundredwebs/petimage-backend/pkg/enums"
	pkgerrors "github.com/hundredwebs/petimage-backend/pkg/errors"
	"github.com/hundredwebs/petimage-backend/pkg/logger"
)

// Outcome reports what a reconcile call did to the ledger.
type Outcome string

const (
	// OutcomeApplied means the event changed ledger state and credits moved.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate means an earlier delivery already applied the event.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeNone is returned alongside an error.
	OutcomeNone Outcome = ""
)

var (
	// ErrUnknownProduct marks events referencing a product outside the
	// catalog. Callers acknowledge these without ledger changes.
	ErrUnknownProduct = errors.New("unknown product")
	// ErrUnknownSubscription marks a cancellation for a subscription that
	// was never recorded locally.
	ErrUnknownSubscription = errors.New("unknown subscription")
)

// PurchaseEvent is a normalized one-time checkout settlement.
type PurchaseEvent struct {
	CheckoutID    string
	ProductID     string
	CustomerEmail string
	CustomerName  string
	CustomerID    string
	TransactionID string
	// AmountCents is the settled amount from the provider. Zero falls back
	// to the catalog price.
	AmountCents int
}

// SubscriptionEvent is a normalized subscription lifecycle notification.
type SubscriptionEvent struct {
	SubscriptionID string
	ProductID      string
	CustomerEmail  string
	CustomerName   string
	CustomerID     string
}

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams carries the dependencies for NewService.
type ServiceParams struct {
	DB      TxRunner
	Repo    Repository
	Users   users.Repository
	Catalog *products.Catalog
	Logger  *logger.Logger
}

// Service reconciles normalized payment events against user credit balances.
// Every apply runs in a single transaction: the account row, the ledger row
// and the balance update commit together or not at all.
type Service struct {
	db      TxRunner
	repo    Repository
	users   users.Repository
	catalog *products.Catalog
	logger  *logger.Logger
	now     func() time.Time
}

// NewService validates params and returns a Service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("ledger: DB is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger: Repo is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("ledger: Users is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("ledger: Catalog is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("ledger: Logger is required")
	}
	return &Service{
		db:      params.DB,
		repo:    params.Repo,
		users:   params.Users,
		catalog: params.Catalog,
		logger:  params.Logger,
		now:     time.Now,
	}, nil
}

// ApplyPurchaseCompleted credits a user for a settled one-time checkout.
// The checkout id is the idempotency key: replays of an already-applied
// checkout return OutcomeDuplicate and leave the balance untouched.
func (s *Service) ApplyPurchaseCompleted(ctx context.Context, event PurchaseEvent) (Outcome, error) {
	if event.CheckoutID == "" {
		return OutcomeNone, pkgerrors.New(pkgerrors.CodeValidation, "purchase event has no checkout id")
	}
	if event.CustomerEmail == "" {
		return OutcomeNone, pkgerrors.New(pkgerrors.CodeValidation, "purchase event has no customer email")
	}
	product, ok := s.catalog.Lookup(event.ProductID)
	if !ok {
		return OutcomeNone, fmt.Errorf("%w: %q", ErrUnknownProduct, event.ProductID)
	}

	amount := event.AmountCents
	if amount == 0 {
		amount = product.PriceCents
	}

	outcome := OutcomeDuplicate
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := s.users.WithTx(tx).ResolveByEmail(ctx, event.CustomerEmail, event.CustomerName)
		if err != nil {
			return fmt.Errorf("resolve user: %w", err)
		}

		inserted, err := s.repo.WithTx(tx).InsertPurchaseIfAbsent(ctx, &models.Purchase{
			ID:                 event.CheckoutID,
			UserID:             user.ID,
			ProductID:          product.ID,
			ProductName:        product.Name,
			Credits:            product.Credits,
			AmountCents:        amount,
			Currency:           product.Currency,
			ProviderCustomerID: event.CustomerID,
			TransactionID:      event.TransactionID,
			Status:             enums.PurchaseStatusCompleted,
		})
		if err != nil {
			return fmt.Errorf("record purchase: %w", err)
		}
		if !inserted {
			return nil
		}

		if err := s.users.WithTx(tx).GrantCredits(ctx, user.ID, product.Credits); err != nil {
			return fmt.Errorf("grant credits: %w", err)
		}
		outcome = OutcomeApplied
		return nil
	})
	if err != nil {
		return OutcomeNone, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply purchase")
	}

	ctx = s.logger.WithFields(ctx, map[string]any{
		"checkout_id": event.CheckoutID,
		"product_id":  product.ID,
		"credits":     product.Credits,
	})
	if outcome == OutcomeDuplicate {
		s.logger.Info(ctx, "purchase already applied, skipping")
	} else {
		s.logger.Info(ctx, "purchase applied")
	}
	return outcome, nil
}

// ApplySubscriptionActivated records a subscription as active and grants the
// product's credits. Credits move only on a state transition: the first
// activation, or a reactivation after cancellation. Repeated activation
// events for an already-active subscription are duplicates.
func (s *Service) ApplySubscriptionActivated(ctx context.Context, event SubscriptionEvent) (Outcome, error) {
	if event.SubscriptionID == "" {
		return OutcomeNone, pkgerrors.New(pkgerrors.CodeValidation, "subscription event has no subscription id")
	}
	if event.CustomerEmail == "" {
		return OutcomeNone, pkgerrors.New(pkgerrors.CodeValidation, "subscription event has no customer email")
	}
	product, ok := s.catalog.Lookup(event.ProductID)
	if !ok {
		return OutcomeNone, fmt.Errorf("%w: %q", ErrUnknownProduct, event.ProductID)
	}

	outcome := OutcomeDuplicate
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := s.users.WithTx(tx).ResolveByEmail(ctx, event.CustomerEmail, event.CustomerName)
		if err != nil {
			return fmt.Errorf("resolve user: %w", err)
		}

		repo := s.repo.WithTx(tx)
		inserted, err := repo.InsertSubscriptionIfAbsent(ctx, &models.Subscription{
			ID:                 event.SubscriptionID,
			UserID:             user.ID,
			ProductID:          product.ID,
			ProviderCustomerID: event.CustomerID,
			Status:             enums.SubscriptionStatusActive,
		})
		if err != nil {
			return fmt.Errorf("record subscription: %w", err)
		}
		transitioned := inserted
		if !inserted {
			transitioned, err = repo.MarkSubscriptionActive(ctx, event.SubscriptionID)
			if err != nil {
				return fmt.Errorf("activate subscription: %w", err)
			}
		}
		if !transitioned {
			return nil
		}

		if err := s.users.WithTx(tx).GrantCredits(ctx, user.ID, product.Credits); err != nil {
			return fmt.Errorf("grant credits: %w", err)
		}
		outcome = OutcomeApplied
		return nil
	})
	if err != nil {
		return OutcomeNone, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply subscription activation")
	}

	ctx = s.logger.WithFields(ctx, map[string]any{
		"subscription_id": event.SubscriptionID,
		"product_id":      product.ID,
		"credits":         product.Credits,
	})
	if outcome == OutcomeDuplicate {
		s.logger.Info(ctx, "subscription already active, skipping")
	} else {
		s.logger.Info(ctx, "subscription activated")
	}
	return outcome, nil
}

// ApplySubscriptionCancelled flips a subscription to cancelled. Credits
// already granted stay with the user. Cancelling an unknown subscription
// returns ErrUnknownSubscription so the caller can acknowledge it anyway.
func (s *Service) ApplySubscriptionCancelled(ctx context.Context, event SubscriptionEvent) (Outcome, error) {
	if event.SubscriptionID == "" {
		return OutcomeNone, pkgerrors.New(pkgerrors.CodeValidation, "subscription event has no subscription id")
	}

	updated := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		updated, err = s.repo.WithTx(tx).MarkSubscriptionCancelled(ctx, event.SubscriptionID, s.now().UTC())
		return err
	})
	if err != nil {
		return OutcomeNone, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply subscription cancellation")
	}
	if !updated {
		return OutcomeNone, fmt.Errorf("%w: %q", ErrUnknownSubscription, event.SubscriptionID)
	}

	s.logger.Info(s.logger.WithField(ctx, "subscription_id", event.SubscriptionID), "subscription cancelled")
	return OutcomeApplied, nil
}
