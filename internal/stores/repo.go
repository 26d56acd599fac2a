package stores

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hanamarche/hanamarche-backend/pkg/db/models"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
)

// Repository is the persistence boundary for the store directory.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindByStripeAccountID(ctx context.Context, accountID string) (*models.Store, error)
	UpdateOnboarding(ctx context.Context, id uuid.UUID, chargesEnabled, payoutsEnabled bool, restrictions json.RawMessage) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a store repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var record models.Store
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	return &record, nil
}

func (r *repository) FindByStripeAccountID(ctx context.Context, accountID string) (*models.Store, error) {
	var record models.Store
	err := r.db.WithContext(ctx).Where("stripe_account_id = ?", accountID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store by account")
	}
	return &record, nil
}

func (r *repository) UpdateOnboarding(ctx context.Context, id uuid.UUID, chargesEnabled, payoutsEnabled bool, restrictions json.RawMessage) error {
	updates := map[string]any{
		"charges_enabled": chargesEnabled,
		"payouts_enabled": payoutsEnabled,
		"restrictions":    []byte(restrictions),
	}
	result := r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "update store onboarding")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	return nil
}
