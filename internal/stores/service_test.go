package stores

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hanamarche/hanamarche-backend/internal/bank"
	"github.com/hanamarche/hanamarche-backend/pkg/db/models"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
	"github.com/hanamarche/hanamarche-backend/pkg/logger"
)

type stubStoresRepo struct {
	findByID              func(ctx context.Context, id uuid.UUID) (*models.Store, error)
	findByStripeAccountID func(ctx context.Context, accountID string) (*models.Store, error)
	updateOnboarding      func(ctx context.Context, id uuid.UUID, chargesEnabled, payoutsEnabled bool, restrictions json.RawMessage) error
}

func (s *stubStoresRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubStoresRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	if s.findByID != nil {
		return s.findByID(ctx, id)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
}

func (s *stubStoresRepo) FindByStripeAccountID(ctx context.Context, accountID string) (*models.Store, error) {
	if s.findByStripeAccountID != nil {
		return s.findByStripeAccountID(ctx, accountID)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
}

func (s *stubStoresRepo) UpdateOnboarding(ctx context.Context, id uuid.UUID, chargesEnabled, payoutsEnabled bool, restrictions json.RawMessage) error {
	if s.updateOnboarding != nil {
		return s.updateOnboarding(ctx, id, chargesEnabled, payoutsEnabled, restrictions)
	}
	return nil
}

type stubBankRepo struct {
	exists bool
}

func (s *stubBankRepo) WithTx(tx *gorm.DB) bank.Repository { return s }

func (s *stubBankRepo) FindByStoreID(ctx context.Context, storeID uuid.UUID) (*models.BankAccount, error) {
	if !s.exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bank account not registered")
	}
	return &models.BankAccount{StoreID: storeID}, nil
}

func (s *stubBankRepo) ExistsForStore(ctx context.Context, storeID uuid.UUID) (bool, error) {
	return s.exists, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "stores-test", Output: io.Discard})
}

func readyStore() *models.Store {
	accountID := "acct_123"
	return &models.Store{
		ID:              uuid.New(),
		Name:            "Hana Flowers",
		StripeAccountID: &accountID,
		ChargesEnabled:  true,
		PayoutsEnabled:  true,
	}
}

func TestEnsureReadyForCheckout_AllGatesPass(t *testing.T) {
	store := readyStore()
	repo := &stubStoresRepo{
		findByID: func(ctx context.Context, id uuid.UUID) (*models.Store, error) {
			require.Equal(t, store.ID, id)
			return store, nil
		},
	}

	svc, err := NewService(repo, &stubBankRepo{exists: true}, testLogger())
	require.NoError(t, err)

	got, err := svc.EnsureReadyForCheckout(context.Background(), store.ID)
	require.NoError(t, err)
	require.Equal(t, store.ID, got.ID)
}

func TestEnsureReadyForCheckout_Gates(t *testing.T) {
	restricted, _ := json.Marshal([]string{"requirements.past_due"})

	cases := []struct {
		name    string
		mutate  func(store *models.Store)
		hasBank bool
	}{
		{
			name:    "no connected account",
			mutate:  func(store *models.Store) { store.StripeAccountID = nil },
			hasBank: true,
		},
		{
			name:    "charges disabled",
			mutate:  func(store *models.Store) { store.ChargesEnabled = false },
			hasBank: true,
		},
		{
			name:    "payouts disabled",
			mutate:  func(store *models.Store) { store.PayoutsEnabled = false },
			hasBank: true,
		},
		{
			name:    "restricted account",
			mutate:  func(store *models.Store) { store.RestrictionsJSON = restricted },
			hasBank: true,
		},
		{
			name:    "no bank account",
			mutate:  func(store *models.Store) {},
			hasBank: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := readyStore()
			tc.mutate(store)

			repo := &stubStoresRepo{
				findByID: func(ctx context.Context, id uuid.UUID) (*models.Store, error) {
					return store, nil
				},
			}
			svc, err := NewService(repo, &stubBankRepo{exists: tc.hasBank}, testLogger())
			require.NoError(t, err)

			_, err = svc.EnsureReadyForCheckout(context.Background(), store.ID)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			require.Equal(t, pkgerrors.CodeStoreNotReady, typed.Code())
		})
	}
}

func TestGetByID_BuildsDTO(t *testing.T) {
	store := readyStore()
	repo := &stubStoresRepo{
		findByID: func(ctx context.Context, id uuid.UUID) (*models.Store, error) {
			return store, nil
		},
	}
	svc, err := NewService(repo, &stubBankRepo{exists: true}, testLogger())
	require.NoError(t, err)

	dto, err := svc.GetByID(context.Background(), store.ID)
	require.NoError(t, err)
	require.Equal(t, "Hana Flowers", dto.Name)
	require.True(t, dto.ReadyForCheckout)
	require.Empty(t, dto.Restrictions)
}

func TestGetByID_NotReadyWithoutBank(t *testing.T) {
	store := readyStore()
	repo := &stubStoresRepo{
		findByID: func(ctx context.Context, id uuid.UUID) (*models.Store, error) {
			return store, nil
		},
	}
	svc, err := NewService(repo, &stubBankRepo{exists: false}, testLogger())
	require.NoError(t, err)

	dto, err := svc.GetByID(context.Background(), store.ID)
	require.NoError(t, err)
	require.False(t, dto.ReadyForCheckout)
}

func TestApplyAccountUpdate_SyncsOnboarding(t *testing.T) {
	store := readyStore()

	var gotCharges, gotPayouts bool
	var gotRestrictions json.RawMessage
	repo := &stubStoresRepo{
		findByStripeAccountID: func(ctx context.Context, accountID string) (*models.Store, error) {
			require.Equal(t, "acct_123", accountID)
			return store, nil
		},
		updateOnboarding: func(ctx context.Context, id uuid.UUID, chargesEnabled, payoutsEnabled bool, restrictions json.RawMessage) error {
			require.Equal(t, store.ID, id)
			gotCharges = chargesEnabled
			gotPayouts = payoutsEnabled
			gotRestrictions = restrictions
			return nil
		},
	}
	svc, err := NewService(repo, &stubBankRepo{exists: true}, testLogger())
	require.NoError(t, err)

	err = svc.ApplyAccountUpdate(context.Background(), AccountUpdate{
		StripeAccountID: "acct_123",
		ChargesEnabled:  false,
		PayoutsEnabled:  true,
		Restrictions:    []string{"requirements.past_due"},
	})
	require.NoError(t, err)
	require.False(t, gotCharges)
	require.True(t, gotPayouts)

	var restrictions []string
	require.NoError(t, json.Unmarshal(gotRestrictions, &restrictions))
	require.Equal(t, []string{"requirements.past_due"}, restrictions)
}

func TestApplyAccountUpdate_RequiresAccountID(t *testing.T) {
	svc, err := NewService(&stubStoresRepo{}, &stubBankRepo{}, testLogger())
	require.NoError(t, err)

	err = svc.ApplyAccountUpdate(context.Background(), AccountUpdate{})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
