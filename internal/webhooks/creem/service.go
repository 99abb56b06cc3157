package creemwebhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/hundredwebs/petimage-backend/internal/ledger"
	pkgerrors "github.com/hundredwebs/petimage-backend/pkg/errors"
	"github.com/hundredwebs/petimage-backend/pkg/logger"
)

// Disposition summarizes what happened to a delivery, for response logging
// and metrics.
type Disposition string

const (
	// DispositionApplied means the ledger changed.
	DispositionApplied Disposition = "applied"
	// DispositionDuplicate means an earlier delivery already applied it.
	DispositionDuplicate Disposition = "duplicate"
	// DispositionDropped means the event was acknowledged without ledger
	// changes: unrecognized type, unknown product or subscription, or
	// missing required fields.
	DispositionDropped Disposition = "dropped"
	// DispositionFailed means a transient failure; the provider should
	// redeliver.
	DispositionFailed Disposition = "failed"
)

// ServiceParams carries the dependencies for NewService.
type ServiceParams struct {
	Ledger *ledger.Service
	Logger *logger.Logger
}

// Service routes classified webhook events into the ledger. Everything the
// ledger refuses for business reasons is logged and acknowledged so the
// provider stops redelivering; only transient failures surface as errors.
type Service struct {
	ledger *ledger.Service
	logger *logger.Logger
}

// NewService validates params and returns a Service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("creem webhook: Ledger is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("creem webhook: Logger is required")
	}
	return &Service{
		ledger: params.Ledger,
		logger: params.Logger,
	}, nil
}

// HandleEvent applies one normalized event to the ledger.
func (s *Service) HandleEvent(ctx context.Context, event *Event) (Disposition, error) {
	if event == nil {
		return DispositionFailed, pkgerrors.New(pkgerrors.CodeValidation, "event is required")
	}
	ctx = s.logger.WithFields(ctx, map[string]any{
		"event_type": event.Type,
		"object_id":  event.ObjectID,
	})

	var (
		outcome ledger.Outcome
		err     error
	)
	switch event.Kind {
	case KindPurchaseCompleted:
		outcome, err = s.ledger.ApplyPurchaseCompleted(ctx, ledger.PurchaseEvent{
			CheckoutID:    event.ObjectID,
			ProductID:     event.ProductID,
			CustomerEmail: event.CustomerEmail,
			CustomerName:  event.CustomerName,
			CustomerID:    event.CustomerID,
			TransactionID: event.TransactionID,
			AmountCents:   event.AmountCents,
		})
	case KindSubscriptionActivated:
		outcome, err = s.ledger.ApplySubscriptionActivated(ctx, ledger.SubscriptionEvent{
			SubscriptionID: event.ObjectID,
			ProductID:      event.ProductID,
			CustomerEmail:  event.CustomerEmail,
			CustomerName:   event.CustomerName,
			CustomerID:     event.CustomerID,
		})
	case KindSubscriptionCancelled:
		outcome, err = s.ledger.ApplySubscriptionCancelled(ctx, ledger.SubscriptionEvent{
			SubscriptionID: event.ObjectID,
		})
	default:
		s.logger.Info(ctx, "ignoring unrecognized event type")
		return DispositionDropped, nil
	}

	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrUnknownProduct):
			s.logger.Warn(s.logger.WithField(ctx, "product_id", event.ProductID), "event references unknown product, dropping")
			return DispositionDropped, nil
		case errors.Is(err, ledger.ErrUnknownSubscription):
			s.logger.Warn(ctx, "cancellation for unknown subscription, dropping")
			return DispositionDropped, nil
		}
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
			s.logger.Warn(s.logger.WithField(ctx, "reason", typed.Message()), "event missing required fields, dropping")
			return DispositionDropped, nil
		}
		return DispositionFailed, err
	}

	if outcome == ledger.OutcomeDuplicate {
		return DispositionDuplicate, nil
	}
	return DispositionApplied, nil
}
