package checkout

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hanamarche/hanamarche-backend/pkg/db/models"
	"github.com/hanamarche/hanamarche-backend/pkg/enums"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
)

// Repository is the persistence boundary for transactions. Settlement
// shares it: the status transition it needs is the guarded update below.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, transaction *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindByCheckoutSessionID(ctx context.Context, sessionID string) (*models.Transaction, error)
	FindByExternalPaymentID(ctx context.Context, paymentID string) (*models.Transaction, error)
	SetExternalPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error
	// TransitionIfPending moves the row to a terminal status only when it is
	// still pending, reporting whether this caller won the transition.
	TransitionIfPending(ctx context.Context, id uuid.UUID, status enums.TransactionStatus, failureReason *string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transaction repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, transaction *models.Transaction) error {
	err := r.db.WithContext(ctx).Create(transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return pkgerrors.New(pkgerrors.CodeConflict, "transaction already recorded for session")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transaction")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var record models.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	return &record, nil
}

func (r *repository) FindByCheckoutSessionID(ctx context.Context, sessionID string) (*models.Transaction, error) {
	var record models.Transaction
	err := r.db.WithContext(ctx).Where("checkout_session_id = ?", sessionID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction by session")
	}
	return &record, nil
}

func (r *repository) FindByExternalPaymentID(ctx context.Context, paymentID string) (*models.Transaction, error) {
	var record models.Transaction
	err := r.db.WithContext(ctx).Where("external_payment_id = ?", paymentID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction by payment")
	}
	return &record, nil
}

// SetExternalPaymentID records the processor's payment id the first time a
// settlement event reveals it. A different id already on the row means two
// payments raced the same session, which must surface, not overwrite.
func (r *repository) SetExternalPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND (external_payment_id IS NULL OR external_payment_id = ?)", id, paymentID).
		Update("external_payment_id", paymentID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment id already bound to another transaction")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "set external payment id")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction settled by a different payment")
	}
	return nil
}

func (r *repository) TransitionIfPending(ctx context.Context, id uuid.UUID, status enums.TransactionStatus, failureReason *string) (bool, error) {
	if !status.IsTerminal() {
		return false, pkgerrors.New(pkgerrors.CodeInternal, "transition target must be terminal")
	}
	updates := map[string]any{"status": status}
	if failureReason != nil {
		updates["failure_reason"] = *failureReason
	}
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, enums.TransactionStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "transition transaction")
	}
	return result.RowsAffected > 0, nil
}
