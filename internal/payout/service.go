// Package payout creates the auditable pending payout that settlement
// records for every completed transaction. Actual bank transfers happen in
// a separate back-office batch; this package only produces the records
// that batch consumes.
package payout

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hanamarche/hanamarche-backend/internal/bank"
	"github.com/hanamarche/hanamarche-backend/pkg/db/models"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
	"github.com/hanamarche/hanamarche-backend/pkg/logger"
)

// CreateInput carries the settled amounts a payout record is built from.
// Amount is the merchant's share of the gross; EstimatedProcessorFee rides
// along for reporting and is never subtracted here.
type CreateInput struct {
	StoreID               uuid.UUID
	TransactionID         uuid.UUID
	Amount                int64
	EstimatedProcessorFee int64
}

// bankSnapshot is the payout destination frozen at settlement time, so a
// later change to the store's bank account cannot redirect an owed payout.
type bankSnapshot struct {
	BankName      string `json:"bank_name"`
	BranchCode    string `json:"branch_code"`
	AccountType   string `json:"account_type"`
	AccountNumber string `json:"account_number"`
	HolderName    string `json:"holder_name"`
}

// Service records payouts owed to stores.
type Service interface {
	CreatePending(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.PayoutRecord, error)
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.PayoutRecord, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.PayoutRecord, error)
}

type service struct {
	repo  Repository
	banks bank.Repository
	log   *logger.Logger
}

// NewService wires a payout service with its repositories.
func NewService(repo Repository, banks bank.Repository, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payout repository required")
	}
	if banks == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bank repository required")
	}
	if log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{repo: repo, banks: banks, log: log}, nil
}

func (s *service) CreatePending(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.PayoutRecord, error) {
	if input.StoreID == uuid.Nil || input.TransactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store and transaction ids required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout amount must be positive")
	}

	record := &models.PayoutRecord{
		ID:                    uuid.New(),
		StoreID:               input.StoreID,
		TransactionID:         input.TransactionID,
		Amount:                input.Amount,
		EstimatedProcessorFee: input.EstimatedProcessorFee,
	}

	// Checkout gates on a registered bank account, so this lookup normally
	// succeeds. If the account vanished since then the payout is still owed;
	// record it without a snapshot and let back office chase the details.
	account, err := s.banks.WithTx(tx).FindByStoreID(ctx, input.StoreID)
	switch {
	case err == nil:
		snapshot, marshalErr := json.Marshal(bankSnapshot{
			BankName:      account.BankName,
			BranchCode:    account.BranchCode,
			AccountType:   account.AccountType,
			AccountNumber: account.AccountNumber,
			HolderName:    account.HolderName,
		})
		if marshalErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, marshalErr, "encode bank snapshot")
		}
		record.BankSnapshot = snapshot
	case pkgerrors.As(err) != nil && pkgerrors.As(err).Code() == pkgerrors.CodeNotFound:
		s.log.Warn(ctx, "store has no bank account at settlement time, payout recorded without snapshot")
	default:
		return nil, err
	}

	if err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.PayoutRecord, error) {
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	return s.repo.FindByTransactionID(ctx, transactionID)
}

func (s *service) ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.PayoutRecord, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	return s.repo.ListByStore(ctx, storeID, limit)
}
