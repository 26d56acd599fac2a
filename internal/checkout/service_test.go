package checkout

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/hanamarche/hanamarche-backend/internal/paycode"
	"github.com/hanamarche/hanamarche-backend/internal/stores"
	"github.com/hanamarche/hanamarche-backend/pkg/config"
	"github.com/hanamarche/hanamarche-backend/pkg/db/models"
	"github.com/hanamarche/hanamarche-backend/pkg/enums"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
	"github.com/hanamarche/hanamarche-backend/pkg/logger"
	pkgstripe "github.com/hanamarche/hanamarche-backend/pkg/stripe"
)

type stubTransactionRepo struct {
	create                  func(ctx context.Context, transaction *models.Transaction) error
	findByCheckoutSessionID func(ctx context.Context, sessionID string) (*models.Transaction, error)
}

func (s *stubTransactionRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubTransactionRepo) Create(ctx context.Context, transaction *models.Transaction) error {
	if s.create != nil {
		return s.create(ctx, transaction)
	}
	return nil
}

func (s *stubTransactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
}

func (s *stubTransactionRepo) FindByCheckoutSessionID(ctx context.Context, sessionID string) (*models.Transaction, error) {
	if s.findByCheckoutSessionID != nil {
		return s.findByCheckoutSessionID(ctx, sessionID)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
}

func (s *stubTransactionRepo) FindByExternalPaymentID(ctx context.Context, paymentID string) (*models.Transaction, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
}

func (s *stubTransactionRepo) SetExternalPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error {
	return nil
}

func (s *stubTransactionRepo) TransitionIfPending(ctx context.Context, id uuid.UUID, status enums.TransactionStatus, failureReason *string) (bool, error) {
	return false, nil
}

type stubCodeRegistry struct {
	validateAndFetch func(ctx context.Context, code string) (*paycode.CartPayload, error)
}

func (s *stubCodeRegistry) ValidateAndFetch(ctx context.Context, code string) (*paycode.CartPayload, error) {
	if s.validateAndFetch != nil {
		return s.validateAndFetch(ctx, code)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment code not found")
}

func (s *stubCodeRegistry) MarkUsed(ctx context.Context, tx *gorm.DB, codeID uuid.UUID, usedAt time.Time) (bool, error) {
	return true, nil
}

type stubStoreDirectory struct {
	ensureReady func(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

func (s *stubStoreDirectory) GetByID(ctx context.Context, id uuid.UUID) (*stores.StoreDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
}

func (s *stubStoreDirectory) EnsureReadyForCheckout(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	if s.ensureReady != nil {
		return s.ensureReady(ctx, id)
	}
	return nil, pkgerrors.New(pkgerrors.CodeStoreNotReady, "store not ready")
}

func (s *stubStoreDirectory) ApplyAccountUpdate(ctx context.Context, update stores.AccountUpdate) error {
	return nil
}

type stubGateway struct {
	createSession func(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	calls         int
	keys          []string
}

func (s *stubGateway) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.calls++
	if params.IdempotencyKey != nil {
		s.keys = append(s.keys, *params.IdempotencyKey)
	}
	if s.createSession != nil {
		return s.createSession(ctx, params)
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://pay.example/cs_test_1"}, nil
}

func testCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		SuccessURL:     "https://shop.example/done?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:      "https://shop.example/cancel?session_id={CHECKOUT_SESSION_ID}",
		SessionTimeout: time.Second,
		RetryAttempts:  2,
	}
}

func testStripeKeys(t *testing.T) *pkgstripe.Client {
	t.Helper()
	client, err := pkgstripe.NewClient(context.Background(), config.StripeConfig{
		APIKey: "sk_test_123",
		Secret: "whsec_123",
	}, nil)
	require.NoError(t, err)
	return client
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})
}

func testPayload() *paycode.CartPayload {
	return &paycode.CartPayload{
		CodeID:      uuid.New(),
		Code:        "12345",
		Family:      enums.CodeFamilyStore,
		StoreID:     uuid.New(),
		GrossAmount: 10000,
		PointsUsed:  500,
		Items: []paycode.CartItem{
			{Name: "Seasonal bouquet", UnitAmount: 3500, Quantity: 2},
			{Name: "Vase", UnitAmount: 3000, Quantity: 1},
		},
		ExpiresAt: time.Now().Add(14 * time.Minute),
	}
}

func readyStoreFor(payload *paycode.CartPayload) *models.Store {
	accountID := "acct_123"
	return &models.Store{
		ID:              payload.StoreID,
		Name:            "Hana Flowers",
		StripeAccountID: &accountID,
		ChargesEnabled:  true,
	}
}

func newCheckoutService(t *testing.T, repo Repository, codes paycode.Service, directory stores.Service, gateway StripeCheckoutClient) Service {
	t.Helper()
	svc, err := NewService(repo, codes, directory, gateway, testStripeKeys(t), testCheckoutConfig(), testLogger(), nil)
	require.NoError(t, err)
	return svc
}

func TestStart_CreatesSessionAndPendingTransaction(t *testing.T) {
	payload := testPayload()
	store := readyStoreFor(payload)

	var created *models.Transaction
	repo := &stubTransactionRepo{
		create: func(ctx context.Context, transaction *models.Transaction) error {
			created = transaction
			return nil
		},
	}
	codes := &stubCodeRegistry{
		validateAndFetch: func(ctx context.Context, code string) (*paycode.CartPayload, error) {
			require.Equal(t, "12345", code)
			return payload, nil
		},
	}
	directory := &stubStoreDirectory{
		ensureReady: func(ctx context.Context, id uuid.UUID) (*models.Store, error) {
			require.Equal(t, payload.StoreID, id)
			return store, nil
		},
	}

	var gotParams *stripe.CheckoutSessionParams
	gateway := &stubGateway{
		createSession: func(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			gotParams = params
			return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://pay.example/cs_test_1"}, nil
		},
	}

	svc := newCheckoutService(t, repo, codes, directory, gateway)

	dto, err := svc.Start(context.Background(), StartInput{Code: "12345"})
	require.NoError(t, err)
	require.Equal(t, "cs_test_1", dto.SessionID)
	require.Equal(t, "https://pay.example/cs_test_1", dto.RedirectURL)
	require.EqualValues(t, 10000, dto.Amount)
	require.EqualValues(t, 300, dto.PlatformFee)

	// pending row persisted with the fee snapshot before returning
	require.NotNil(t, created)
	require.Equal(t, dto.TransactionID, created.ID)
	require.Equal(t, enums.TransactionStatusPending, created.Status)
	require.EqualValues(t, 300, created.PlatformFee)
	require.EqualValues(t, 400, created.ProcessorFeeEstimate)
	require.EqualValues(t, 9700, created.MerchantAmount)
	require.Equal(t, "cs_test_1", *created.CheckoutSessionID)
	require.Nil(t, created.ExternalPaymentID)

	// destination charge wiring
	require.NotNil(t, gotParams.PaymentIntentData)
	require.EqualValues(t, 300, *gotParams.PaymentIntentData.ApplicationFeeAmount)
	require.Equal(t, "acct_123", *gotParams.PaymentIntentData.TransferData.Destination)
	require.Len(t, gotParams.LineItems, 2)

	// metadata must let settlement rebuild the full context
	meta, err := ParseMetadata(gotParams.PaymentIntentData.Metadata)
	require.NoError(t, err)
	require.Equal(t, dto.TransactionID, meta.TransactionID)
	require.Equal(t, payload.CodeID, meta.CodeID)
	require.EqualValues(t, 500, meta.PointsUsed)
	require.EqualValues(t, 9700, meta.MerchantAmount)
}

func TestStart_AggregatesWhenItemsDoNotReconcile(t *testing.T) {
	payload := testPayload()
	payload.Items = []paycode.CartItem{{Name: "Bouquet", UnitAmount: 1, Quantity: 1}}

	var gotParams *stripe.CheckoutSessionParams
	gateway := &stubGateway{
		createSession: func(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			gotParams = params
			return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://pay.example/cs_test_1"}, nil
		},
	}
	svc := newCheckoutService(t,
		&stubTransactionRepo{},
		&stubCodeRegistry{validateAndFetch: func(ctx context.Context, code string) (*paycode.CartPayload, error) { return payload, nil }},
		&stubStoreDirectory{ensureReady: func(ctx context.Context, id uuid.UUID) (*models.Store, error) { return readyStoreFor(payload), nil }},
		gateway,
	)

	_, err := svc.Start(context.Background(), StartInput{Code: "12345"})
	require.NoError(t, err)
	require.Len(t, gotParams.LineItems, 1)
	require.EqualValues(t, 10000, *gotParams.LineItems[0].PriceData.UnitAmount)
}

func TestStart_StoreGateRejectsBeforeGateway(t *testing.T) {
	payload := testPayload()
	gateway := &stubGateway{}

	svc := newCheckoutService(t,
		&stubTransactionRepo{},
		&stubCodeRegistry{validateAndFetch: func(ctx context.Context, code string) (*paycode.CartPayload, error) { return payload, nil }},
		&stubStoreDirectory{},
		gateway,
	)

	_, err := svc.Start(context.Background(), StartInput{Code: "12345"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStoreNotReady, typed.Code())
	require.Zero(t, gateway.calls)
}

func TestStart_InvalidCodeShortCircuits(t *testing.T) {
	gateway := &stubGateway{}
	svc := newCheckoutService(t, &stubTransactionRepo{}, &stubCodeRegistry{}, &stubStoreDirectory{}, gateway)

	_, err := svc.Start(context.Background(), StartInput{Code: "99999"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
	require.Zero(t, gateway.calls)
}

func TestStart_RetriesWithFreshIdempotencyKey(t *testing.T) {
	payload := testPayload()

	gateway := &stubGateway{}
	gateway.createSession = func(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		if gateway.calls == 1 {
			return nil, &stripe.Error{Type: stripe.ErrorTypeAPI, HTTPStatusCode: 500}
		}
		return &stripe.CheckoutSession{ID: "cs_test_2", URL: "https://pay.example/cs_test_2"}, nil
	}

	svc := newCheckoutService(t,
		&stubTransactionRepo{},
		&stubCodeRegistry{validateAndFetch: func(ctx context.Context, code string) (*paycode.CartPayload, error) { return payload, nil }},
		&stubStoreDirectory{ensureReady: func(ctx context.Context, id uuid.UUID) (*models.Store, error) { return readyStoreFor(payload), nil }},
		gateway,
	)

	dto, err := svc.Start(context.Background(), StartInput{Code: "12345"})
	require.NoError(t, err)
	require.Equal(t, "cs_test_2", dto.SessionID)
	require.Equal(t, 2, gateway.calls)
	require.Len(t, gateway.keys, 2)
	require.NotEqual(t, gateway.keys[0], gateway.keys[1])
}

func TestStart_NonRetryableGatewayErrorFailsFast(t *testing.T) {
	payload := testPayload()

	gateway := &stubGateway{
		createSession: func(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			return nil, &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, HTTPStatusCode: 400}
		},
	}
	svc := newCheckoutService(t,
		&stubTransactionRepo{},
		&stubCodeRegistry{validateAndFetch: func(ctx context.Context, code string) (*paycode.CartPayload, error) { return payload, nil }},
		&stubStoreDirectory{ensureReady: func(ctx context.Context, id uuid.UUID) (*models.Store, error) { return readyStoreFor(payload), nil }},
		gateway,
	)

	_, err := svc.Start(context.Background(), StartInput{Code: "12345"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())
	require.Equal(t, 1, gateway.calls)
}

func TestGetSession_ReturnsTransactionState(t *testing.T) {
	transactionID := uuid.New()
	repo := &stubTransactionRepo{
		findByCheckoutSessionID: func(ctx context.Context, sessionID string) (*models.Transaction, error) {
			require.Equal(t, "cs_test_1", sessionID)
			return &models.Transaction{
				ID:          transactionID,
				Amount:      10000,
				PlatformFee: 300,
				PointsUsed:  500,
				Status:      enums.TransactionStatusCompleted,
			}, nil
		},
	}
	svc := newCheckoutService(t, repo, &stubCodeRegistry{}, &stubStoreDirectory{}, &stubGateway{})

	dto, err := svc.GetSession(context.Background(), "cs_test_1")
	require.NoError(t, err)
	require.Equal(t, transactionID, dto.TransactionID)
	require.Equal(t, enums.TransactionStatusCompleted, dto.Status)
	require.EqualValues(t, 10000, dto.Amount)
}
