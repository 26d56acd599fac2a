package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hanamarche/hanamarche-backend/internal/ledger"
	"github.com/hanamarche/hanamarche-backend/pkg/enums"
)

type stubLedgerService struct {
	balanceFn func(ctx context.Context, customerID uuid.UUID) (int64, error)
	historyFn func(ctx context.Context, customerID uuid.UUID, limit int) ([]ledger.Entry, error)
}

func (s *stubLedgerService) Earn(ctx context.Context, tx *gorm.DB, customerID, transactionID uuid.UUID, points int64) error {
	panic("not used")
}

func (s *stubLedgerService) Redeem(ctx context.Context, tx *gorm.DB, customerID, transactionID uuid.UUID, points int64) error {
	panic("not used")
}

func (s *stubLedgerService) Balance(ctx context.Context, customerID uuid.UUID) (int64, error) {
	return s.balanceFn(ctx, customerID)
}

func (s *stubLedgerService) History(ctx context.Context, customerID uuid.UUID, limit int) ([]ledger.Entry, error) {
	return s.historyFn(ctx, customerID, limit)
}

func TestCustomerPoints_ReturnsBalanceAndHistory(t *testing.T) {
	customerID := uuid.New()
	entry := ledger.Entry{
		ID:            uuid.New(),
		TransactionID: uuid.New(),
		Reason:        enums.PointReasonEarned,
		Delta:         250,
		CreatedAt:     time.Now().UTC(),
	}
	svc := &stubLedgerService{
		balanceFn: func(ctx context.Context, id uuid.UUID) (int64, error) {
			require.Equal(t, customerID, id)
			return 250, nil
		},
		historyFn: func(ctx context.Context, id uuid.UUID, limit int) ([]ledger.Entry, error) {
			require.Equal(t, customerID, id)
			require.Equal(t, 10, limit)
			return []ledger.Entry{entry}, nil
		},
	}

	r := chi.NewRouter()
	r.Get("/api/v1/customers/{customerId}/points", CustomerPoints(svc, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/"+customerID.String()+"/points?limit=10", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Data customerPointsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, customerID, envelope.Data.CustomerID)
	require.Equal(t, int64(250), envelope.Data.Balance)
	require.Len(t, envelope.Data.History, 1)
	require.Equal(t, entry.ID, envelope.Data.History[0].ID)
}

func TestCustomerPoints_RejectsBadInput(t *testing.T) {
	svc := &stubLedgerService{
		balanceFn: func(ctx context.Context, id uuid.UUID) (int64, error) {
			t.Fatal("service must not be called for invalid input")
			return 0, nil
		},
		historyFn: func(ctx context.Context, id uuid.UUID, limit int) ([]ledger.Entry, error) {
			return nil, nil
		},
	}

	r := chi.NewRouter()
	r.Get("/api/v1/customers/{customerId}/points", CustomerPoints(svc, nil))

	for _, target := range []string{
		"/api/v1/customers/not-a-uuid/points",
		"/api/v1/customers/" + uuid.NewString() + "/points?limit=-1",
		"/api/v1/customers/" + uuid.NewString() + "/points?limit=abc",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}
