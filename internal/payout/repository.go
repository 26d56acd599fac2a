package payout

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hanamarche/hanamarche-backend/pkg/db/models"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
)

// Repository is the persistence boundary for payout records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.PayoutRecord) error
	FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.PayoutRecord, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.PayoutRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payout repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts one pending record. The unique transaction_id key means a
// settlement replay cannot produce a second payout for the same charge.
func (r *repository) Create(ctx context.Context, record *models.PayoutRecord) error {
	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			pkgerrors.IsUniqueViolation(err, "idx_payout_records_transaction_id") {
			return pkgerrors.New(pkgerrors.CodeConflict, "payout already recorded for transaction")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout record")
	}
	return nil
}

func (r *repository) FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.PayoutRecord, error) {
	var record models.PayoutRecord
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout record")
	}
	return &record, nil
}

func (r *repository) ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.PayoutRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var records []models.PayoutRecord
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payout records")
	}
	return records, nil
}
