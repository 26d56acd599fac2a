// Package bank reads the payout destinations stores registered during
// onboarding. The payment core never edits them; it only checks presence
// and snapshots them onto payout records.
package bank

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hanamarche/hanamarche-backend/pkg/db/models"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
)

// Repository is the read boundary for registered bank accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByStoreID(ctx context.Context, storeID uuid.UUID) (*models.BankAccount, error)
	ExistsForStore(ctx context.Context, storeID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a bank account repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByStoreID(ctx context.Context, storeID uuid.UUID) (*models.BankAccount, error) {
	var record models.BankAccount
	err := r.db.WithContext(ctx).Where("store_id = ?", storeID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bank account not registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bank account")
	}
	return &record, nil
}

func (r *repository) ExistsForStore(ctx context.Context, storeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BankAccount{}).
		Where("store_id = ?", storeID).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count bank accounts")
	}
	return count > 0, nil
}
