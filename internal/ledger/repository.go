package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hanamarche/hanamarche-backend/pkg/db/models"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
)

// Repository is the persistence boundary for point ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.PointLedgerEntry) error
	SumByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]models.PointLedgerEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create appends one immutable entry. The (transaction_id, reason) unique
// key turns a re-applied settlement into a conflict instead of a double
// grant.
func (r *repository) Create(ctx context.Context, entry *models.PointLedgerEntry) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			pkgerrors.IsUniqueViolation(err, "uq_point_ledger_txn_reason") {
			return pkgerrors.New(pkgerrors.CodeConflict, "ledger entry already recorded")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
	}
	return nil
}

func (r *repository) SumByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var total *int64
	err := r.db.WithContext(ctx).
		Model(&models.PointLedgerEntry{}).
		Select("SUM(delta)").
		Where("customer_id = ?", customerID).
		Scan(&total).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum ledger deltas")
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]models.PointLedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var entries []models.PointLedgerEntry
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	return entries, nil
}
