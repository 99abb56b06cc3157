package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hundredwebs/petimage-backend/api/middleware"
	"github.com/hundredwebs/petimage-backend/api/responses"
	"github.com/hundredwebs/petimage-backend/api/validators"
	"github.com/hundredwebs/petimage-backend/internal/credits"
	pkgerrors "github.com/hundredwebs/petimage-backend/pkg/errors"
	"github.com/hundredwebs/petimage-backend/pkg/logger"
)

// GetCredits returns the caller's balance, creating the account on first
// contact.
func GetCredits(svc *credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		email := middleware.EmailFromContext(ctx)
		if email == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		balance, err := svc.BalanceByEmail(ctx, email, "")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

// GetCreditHistory returns the caller's recent purchases and debits.
func GetCreditHistory(svc *credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		purchases, usages, err := svc.History(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"purchases": purchases,
			"usages":    usages,
		})
	}
}

type spendCreditsRequest struct {
	Credits  int    `json:"credits" validate:"required,min=1"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
	Prompt   string `json:"prompt" validate:"omitempty,max=2000"`
}

// SpendCredits debits the caller's balance for one generation.
func SpendCredits(svc *credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req spendCreditsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		balance, err := svc.Spend(ctx, userID, credits.SpendInput{
			Credits:  req.Credits,
			ImageURL: req.ImageURL,
			Prompt:   req.Prompt,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

func callerID(ctx context.Context) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "malformed identity")
	}
	return userID, nil
}
