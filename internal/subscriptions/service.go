package subscriptions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hundredwebs/petimage-backend/internal/products"
	"github.com/hundredwebs/petimage-backend/pkg/db/models"
	"github.com/hundredwebs/petimage-backend/pkg/enums"
	pkgerrors "github.com/hundredwebs/petimage-backend/pkg/errors"
	"github.com/hundredwebs/petimage-backend/pkg/logger"
)

// Provider is the slice of the payment client the service needs.
type Provider interface {
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// Summary is one subscription row shaped for the client.
type Summary struct {
	ID          string     `json:"id"`
	ProductID   string     `json:"product_id"`
	ProductName string     `json:"product_name,omitempty"`
	Status      string     `json:"status"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ServiceParams carries the dependencies for NewService.
type ServiceParams struct {
	Repo     Repository
	Provider Provider
	Catalog  *products.Catalog
	Logger   *logger.Logger
}

// Service lists a user's subscriptions and relays cancellations to the
// payment provider. The local status flip here is an optimistic echo; the
// provider's webhook remains the source of truth and lands the same state.
type Service struct {
	repo     Repository
	provider Provider
	catalog  *products.Catalog
	logger   *logger.Logger
}

// NewService validates params and returns a Service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscriptions: Repo is required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("subscriptions: Provider is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("subscriptions: Catalog is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("subscriptions: Logger is required")
	}
	return &Service{
		repo:     params.Repo,
		provider: params.Provider,
		catalog:  params.Catalog,
		logger:   params.Logger,
	}, nil
}

// List returns the user's subscriptions, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Summary, error) {
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list subscriptions")
	}
	out := make([]Summary, 0, len(subs))
	for _, sub := range subs {
		out = append(out, s.summarize(sub))
	}
	return out, nil
}

// Cancel cancels the user's subscription at the provider and mirrors the
// cancelled state locally.
func (s *Service) Cancel(ctx context.Context, userID uuid.UUID, subscriptionID string) (*Summary, error) {
	if subscriptionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id is required")
	}

	sub, err := s.repo.Find(ctx, subscriptionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load subscription")
	}
	// Not-found and not-yours are indistinguishable to the caller.
	if sub == nil || sub.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	if sub.Status != enums.SubscriptionStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "subscription is not active")
	}

	if err := s.provider.CancelSubscription(ctx, subscriptionID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel at provider")
	}

	now := time.Now().UTC()
	if err := s.repo.MarkCancelled(ctx, subscriptionID, now); err != nil {
		// The provider accepted the cancel; the webhook will settle the
		// local row even if this write failed.
		s.logger.Error(ctx, "failed to mirror cancellation locally", err)
	} else {
		sub.Status = enums.SubscriptionStatusCancelled
		sub.CancelledAt = &now
	}

	s.logger.Info(s.logger.WithField(ctx, "subscription_id", subscriptionID), "subscription cancel requested")
	summary := s.summarize(*sub)
	return &summary, nil
}

func (s *Service) summarize(sub models.Subscription) Summary {
	summary := Summary{
		ID:          sub.ID,
		ProductID:   sub.ProductID,
		Status:      sub.Status.String(),
		CancelledAt: sub.CancelledAt,
		CreatedAt:   sub.CreatedAt,
	}
	if product, ok := s.catalog.Lookup(sub.ProductID); ok {
		summary.ProductName = product.Name
	}
	return summary
}
