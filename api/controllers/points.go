package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hanamarche/hanamarche-backend/api/responses"
	"github.com/hanamarche/hanamarche-backend/internal/ledger"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
	"github.com/hanamarche/hanamarche-backend/pkg/logger"
)

// CustomerPoints returns the derived balance plus recent ledger history
// for one customer.
func CustomerPoints(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		customerID, err := uuid.Parse(chi.URLParam(r, "customerId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse customer id"))
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a non-negative integer"))
				return
			}
		}

		balance, err := svc.Balance(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history, err := svc.History(r.Context(), customerID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, customerPointsResponse{
			CustomerID: customerID,
			Balance:    balance,
			History:    history,
		})
	}
}

type customerPointsResponse struct {
	CustomerID uuid.UUID      `json:"customer_id"`
	Balance    int64          `json:"balance"`
	History    []ledger.Entry `json:"history"`
}
