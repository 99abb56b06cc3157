package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hundredwebs/petimage-backend/api/middleware"
	"github.com/hundredwebs/petimage-backend/api/responses"
	"github.com/hundredwebs/petimage-backend/api/validators"
	"github.com/hundredwebs/petimage-backend/internal/products"
	"github.com/hundredwebs/petimage-backend/pkg/creem"
	pkgerrors "github.com/hundredwebs/petimage-backend/pkg/errors"
	"github.com/hundredwebs/petimage-backend/pkg/logger"
)

type checkoutClient interface {
	CreateCheckout(ctx context.Context, params creem.CheckoutParams) (*creem.CheckoutSession, error)
	Environment() string
}

type createCheckoutRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

// CreateCheckout opens a provider checkout session for a catalog product.
// The credits only land once the provider's webhook settles the payment.
func CreateCheckout(client checkoutClient, catalog *products.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		email := middleware.EmailFromContext(ctx)
		if email == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		var req createCheckoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		product, ok := catalog.Lookup(req.ProductID)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		if product.Test && client.Environment() == "live" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "test product unavailable"))
			return
		}

		session, err := client.CreateCheckout(ctx, creem.CheckoutParams{
			ProductID: product.ID,
			RequestID: uuid.NewString(),
			Email:     email,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout"))
			return
		}

		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"product_id":  product.ID,
				"checkout_id": session.ID,
			}), "checkout session created")
		}
		responses.WriteSuccess(w, map[string]string{
			"checkout_id":  session.ID,
			"checkout_url": session.CheckoutURL,
		})
	}
}
