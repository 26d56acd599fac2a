package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hanamarche/hanamarche-backend/api/responses"
	"github.com/hanamarche/hanamarche-backend/internal/payout"
	storesvc "github.com/hanamarche/hanamarche-backend/internal/stores"
	"github.com/hanamarche/hanamarche-backend/pkg/db/models"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
	"github.com/hanamarche/hanamarche-backend/pkg/logger"
)

// GetStore returns the public store directory entry, including whether
// the store can currently accept a checkout.
func GetStore(svc storesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		storeID, err := uuid.Parse(chi.URLParam(r, "storeId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse store id"))
			return
		}

		store, err := svc.GetByID(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, store)
	}
}

// ListStorePayouts returns the settlement payout records owed to a store,
// newest first.
func ListStorePayouts(svc payout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		storeID, err := uuid.Parse(chi.URLParam(r, "storeId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse store id"))
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

		records, err := svc.ListByStore(r.Context(), storeID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]payoutResponse, 0, len(records))
		for _, record := range records {
			items = append(items, newPayoutResponse(record))
		}
		responses.WriteSuccess(w, items)
	}
}

type payoutResponse struct {
	ID                    uuid.UUID `json:"id"`
	TransactionID         uuid.UUID `json:"transaction_id"`
	Amount                int64     `json:"amount"`
	EstimatedProcessorFee int64     `json:"estimated_processor_fee"`
	Status                string    `json:"status"`
	CreatedAt             time.Time `json:"created_at"`
}

func newPayoutResponse(record models.PayoutRecord) payoutResponse {
	return payoutResponse{
		ID:                    record.ID,
		TransactionID:         record.TransactionID,
		Amount:                record.Amount,
		EstimatedProcessorFee: record.EstimatedProcessorFee,
		Status:                string(record.Status),
		CreatedAt:             record.CreatedAt,
	}
}
