package bank

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hanamarche/hanamarche-backend/pkg/db/models"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
)

func setupBankTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.Exec(`CREATE TABLE bank_accounts (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL UNIQUE,
  bank_name TEXT NOT NULL,
  branch_code TEXT NOT NULL,
  account_type TEXT NOT NULL,
  account_number TEXT NOT NULL,
  holder_name TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`).Error
	require.NoError(t, err)
	return db
}

func TestRepository_FindByStoreID(t *testing.T) {
	db := setupBankTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	storeID := uuid.New()
	account := &models.BankAccount{
		ID:            uuid.New(),
		StoreID:       storeID,
		BankName:      "Mizuho",
		BranchCode:    "001",
		AccountType:   "ordinary",
		AccountNumber: "1234567",
		HolderName:    "HANA FLOWERS KK",
	}
	require.NoError(t, db.Create(account).Error)

	found, err := repo.FindByStoreID(ctx, storeID)
	require.NoError(t, err)
	require.Equal(t, "Mizuho", found.BankName)
	require.Equal(t, "1234567", found.AccountNumber)

	_, err = repo.FindByStoreID(ctx, uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRepository_ExistsForStore(t *testing.T) {
	db := setupBankTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	storeID := uuid.New()
	require.NoError(t, db.Create(&models.BankAccount{
		ID:            uuid.New(),
		StoreID:       storeID,
		BankName:      "Mizuho",
		BranchCode:    "001",
		AccountType:   "ordinary",
		AccountNumber: "1234567",
		HolderName:    "HANA FLOWERS KK",
	}).Error)

	ok, err := repo.ExistsForStore(ctx, storeID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.ExistsForStore(ctx, uuid.New())
	require.NoError(t, err)
	require.False(t, ok)
}
