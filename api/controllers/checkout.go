package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hanamarche/hanamarche-backend/api/responses"
	"github.com/hanamarche/hanamarche-backend/api/validators"
	checkoutsvc "github.com/hanamarche/hanamarche-backend/internal/checkout"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
	"github.com/hanamarche/hanamarche-backend/pkg/logger"
)

// StartCheckout exchanges a payment code for a hosted checkout session.
func StartCheckout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload startCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Start(r.Context(), checkoutsvc.StartInput{
			Code:       payload.Code,
			CustomerID: payload.CustomerID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// GetCheckoutSession returns the current state of a previously started
// session, looked up by the processor's session identifier.
func GetCheckoutSession(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		session, err := svc.GetSession(r.Context(), chi.URLParam(r, "sessionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

type startCheckoutRequest struct {
	Code       string     `json:"code" validate:"required"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty" validate:"omitempty,uuid4"`
}
