package webhooks

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/hundredwebs/petimage-backend/api/responses"
	creemwebhook "github.com/hundredwebs/petimage-backend/internal/webhooks/creem"
	pkgerrors "github.com/hundredwebs/petimage-backend/pkg/errors"
	"github.com/hundredwebs/petimage-backend/pkg/logger"
	"github.com/hundredwebs/petimage-backend/pkg/metrics"
)

type CreemWebhookService interface {
	HandleEvent(ctx context.Context, event *creemwebhook.Event) (creemwebhook.Disposition, error)
}

type creemWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventKey string) (bool, error)
	Release(ctx context.Context, eventKey string) error
}

type creemClient interface {
	SigningSecret() string
}

// CreemWebhook receives payment notifications, verifies their signature and
// hands them to the reconciler. Responses follow the provider's retry
// contract: 2xx stops redelivery, 5xx requests it. Business-level rejects
// like unknown products are acknowledged so the provider does not retry
// events that can never apply.
func CreemWebhook(svc CreemWebhookService, client creemClient, guard creemWebhookGuard, mets *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "creem client unavailable"))
			return
		}

		start := time.Now()

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(creemwebhook.SignatureHeader)
		if err := creemwebhook.VerifySignature(client.SigningSecret(), payload, signature); err != nil {
			observe(mets, "unverified", "rejected", start)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		event, err := creemwebhook.ParseEvent(payload)
		if err != nil {
			observe(mets, "unparseable", "rejected", start)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithEventID(ctx, event.Key())
		}

		// The guard is a fast path. When Redis is unavailable the delivery
		// proceeds and the ledger's own idempotency settles duplicates.
		marked := false
		if guard != nil && event.Key() != "" {
			seen, err := guard.CheckAndMark(ctx, event.Key())
			if err != nil {
				if logg != nil {
					logg.Warn(ctx, "idempotency guard unavailable, continuing")
				}
			} else if seen {
				observe(mets, event.Type, string(creemwebhook.DispositionDuplicate), start)
				responses.WriteSuccess(w, map[string]bool{"received": true})
				return
			} else {
				marked = true
			}
		}

		disposition, err := svc.HandleEvent(ctx, event)
		if err != nil {
			if marked {
				_ = guard.Release(ctx, event.Key())
			}
			observe(mets, event.Type, string(creemwebhook.DispositionFailed), start)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		observe(mets, event.Type, string(disposition), start)
		if logg != nil {
			logg.Info(logg.WithField(ctx, "disposition", string(disposition)), "webhook processed")
		}
		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}

func observe(mets *metrics.WebhookMetrics, eventType, outcome string, start time.Time) {
	if mets == nil {
		return
	}
	mets.ObserveDuration(eventType, time.Since(start))
	mets.IncOutcome(eventType, outcome)
}
