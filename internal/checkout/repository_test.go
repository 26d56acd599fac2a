package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hanamarche/hanamarche-backend/pkg/db/models"
	"github.com/hanamarche/hanamarche-backend/pkg/enums"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
)

func setupTransactionTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.Exec(`CREATE TABLE transactions (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  customer_id TEXT,
  payment_code_id TEXT NOT NULL,
  checkout_session_id TEXT UNIQUE,
  external_payment_id TEXT UNIQUE,
  amount INTEGER NOT NULL,
  platform_fee INTEGER NOT NULL,
  processor_fee_estimate INTEGER NOT NULL,
  merchant_amount INTEGER NOT NULL,
  points_used INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'pending',
  failure_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`).Error
	require.NoError(t, err)
	return db
}

func pendingTransaction(sessionID string) *models.Transaction {
	return &models.Transaction{
		ID:                   uuid.New(),
		StoreID:              uuid.New(),
		PaymentCodeID:        uuid.New(),
		CheckoutSessionID:    &sessionID,
		Amount:               10000,
		PlatformFee:          300,
		ProcessorFeeEstimate: 400,
		MerchantAmount:       9700,
		PointsUsed:           500,
		Status:               enums.TransactionStatusPending,
	}
}

func TestRepository_CreateAndLookups(t *testing.T) {
	db := setupTransactionTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	transaction := pendingTransaction("cs_test_1")
	require.NoError(t, repo.Create(ctx, transaction))

	bySession, err := repo.FindByCheckoutSessionID(ctx, "cs_test_1")
	require.NoError(t, err)
	require.Equal(t, transaction.ID, bySession.ID)

	byID, err := repo.FindByID(ctx, transaction.ID)
	require.NoError(t, err)
	require.Equal(t, enums.TransactionStatusPending, byID.Status)

	_, err = repo.FindByExternalPaymentID(ctx, "pi_missing")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRepository_CreateRejectsDuplicateSession(t *testing.T) {
	db := setupTransactionTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, pendingTransaction("cs_test_1")))

	err := repo.Create(ctx, pendingTransaction("cs_test_1"))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestRepository_TransitionIfPending(t *testing.T) {
	db := setupTransactionTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	transaction := pendingTransaction("cs_test_1")
	require.NoError(t, repo.Create(ctx, transaction))

	won, err := repo.TransitionIfPending(ctx, transaction.ID, enums.TransactionStatusCompleted, nil)
	require.NoError(t, err)
	require.True(t, won)

	// replay loses: the row is already terminal
	won, err = repo.TransitionIfPending(ctx, transaction.ID, enums.TransactionStatusCompleted, nil)
	require.NoError(t, err)
	require.False(t, won)

	// and a late failed event cannot flip a completed transaction
	reason := "card_declined"
	won, err = repo.TransitionIfPending(ctx, transaction.ID, enums.TransactionStatusFailed, &reason)
	require.NoError(t, err)
	require.False(t, won)

	final, err := repo.FindByID(ctx, transaction.ID)
	require.NoError(t, err)
	require.Equal(t, enums.TransactionStatusCompleted, final.Status)
	require.Nil(t, final.FailureReason)
}

func TestRepository_TransitionRejectsNonTerminalTarget(t *testing.T) {
	db := setupTransactionTestDB(t)
	repo := NewRepository(db)

	_, err := repo.TransitionIfPending(context.Background(), uuid.New(), enums.TransactionStatusPending, nil)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInternal, typed.Code())
}

func TestRepository_SetExternalPaymentID(t *testing.T) {
	db := setupTransactionTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	transaction := pendingTransaction("cs_test_1")
	require.NoError(t, repo.Create(ctx, transaction))

	require.NoError(t, repo.SetExternalPaymentID(ctx, transaction.ID, "pi_1"))
	// same id again is a no-op
	require.NoError(t, repo.SetExternalPaymentID(ctx, transaction.ID, "pi_1"))

	// a second payment id for the same transaction must not overwrite
	err := repo.SetExternalPaymentID(ctx, transaction.ID, "pi_2")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	found, err := repo.FindByExternalPaymentID(ctx, "pi_1")
	require.NoError(t, err)
	require.Equal(t, transaction.ID, found.ID)
}
