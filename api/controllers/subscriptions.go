package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hundredwebs/petimage-backend/api/responses"
	"github.com/hundredwebs/petimage-backend/internal/subscriptions"
	"github.com/hundredwebs/petimage-backend/pkg/logger"
)

// ListSubscriptions returns the caller's subscriptions.
func ListSubscriptions(svc *subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		subs, err := svc.List(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"subscriptions": subs})
	}
}

// CancelSubscription cancels one of the caller's subscriptions at the
// provider.
func CancelSubscription(svc *subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		summary, err := svc.Cancel(ctx, userID, chi.URLParam(r, "subscriptionID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
