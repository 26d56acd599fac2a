// Package ledger owns the append-only point ledger. Entries are never
// updated or deleted; a customer's balance is always derived by summing
// deltas at read time.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hanamarche/hanamarche-backend/pkg/db/models"
	"github.com/hanamarche/hanamarche-backend/pkg/enums"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
)

// Entry is the read model returned for ledger history.
type Entry struct {
	ID            uuid.UUID         `json:"id"`
	TransactionID uuid.UUID         `json:"transaction_id"`
	Reason        enums.PointReason `json:"reason"`
	Delta         int64             `json:"delta"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Service records point movements and answers balance queries.
type Service interface {
	// Earn grants points for a completed purchase. Repeating the call for
	// the same transaction is a conflict, not a double grant.
	Earn(ctx context.Context, tx *gorm.DB, customerID, transactionID uuid.UUID, points int64) error
	// Redeem debits points spent on a purchase at settlement time.
	Redeem(ctx context.Context, tx *gorm.DB, customerID, transactionID uuid.UUID, points int64) error
	Balance(ctx context.Context, customerID uuid.UUID) (int64, error)
	History(ctx context.Context, customerID uuid.UUID, limit int) ([]Entry, error)
}

type service struct {
	repo Repository
}

// NewService wires a point ledger with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Earn(ctx context.Context, tx *gorm.DB, customerID, transactionID uuid.UUID, points int64) error {
	if points <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "earned points must be positive")
	}
	return s.append(ctx, tx, customerID, transactionID, enums.PointReasonEarned, points)
}

func (s *service) Redeem(ctx context.Context, tx *gorm.DB, customerID, transactionID uuid.UUID, points int64) error {
	if points <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "redeemed points must be positive")
	}
	return s.append(ctx, tx, customerID, transactionID, enums.PointReasonRedeemed, -points)
}

func (s *service) append(ctx context.Context, tx *gorm.DB, customerID, transactionID uuid.UUID, reason enums.PointReason, delta int64) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if transactionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}

	entry := &models.PointLedgerEntry{
		ID:            uuid.New(),
		CustomerID:    customerID,
		TransactionID: transactionID,
		Reason:        reason,
		Delta:         delta,
	}
	return s.repo.WithTx(tx).Create(ctx, entry)
}

func (s *service) Balance(ctx context.Context, customerID uuid.UUID) (int64, error) {
	if customerID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	return s.repo.SumByCustomer(ctx, customerID)
}

func (s *service) History(ctx context.Context, customerID uuid.UUID, limit int) ([]Entry, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	rows, err := s.repo.ListByCustomer(ctx, customerID, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(rows))
	for i, row := range rows {
		entries[i] = Entry{
			ID:            row.ID,
			TransactionID: row.TransactionID,
			Reason:        row.Reason,
			Delta:         row.Delta,
			CreatedAt:     row.CreatedAt,
		}
	}
	return entries, nil
}
