// Package checkout orchestrates payment-code redemption into a hosted
// processor session. It never marks a code used; that happens only after a
// verified settlement event.
package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/hanamarche/hanamarche-backend/internal/fees"
	"github.com/hanamarche/hanamarche-backend/internal/paycode"
	"github.com/hanamarche/hanamarche-backend/internal/stores"
	"github.com/hanamarche/hanamarche-backend/pkg/config"
	"github.com/hanamarche/hanamarche-backend/pkg/db/models"
	"github.com/hanamarche/hanamarche-backend/pkg/enums"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
	"github.com/hanamarche/hanamarche-backend/pkg/logger"
	"github.com/hanamarche/hanamarche-backend/pkg/metrics"
	pkgstripe "github.com/hanamarche/hanamarche-backend/pkg/stripe"
)

// StartInput is a redemption request: the payer's code plus an optional
// authenticated customer.
type StartInput struct {
	Code       string
	CustomerID *uuid.UUID
}

// SessionDTO is returned to the caller that will redirect the payer.
type SessionDTO struct {
	TransactionID uuid.UUID               `json:"transaction_id"`
	SessionID     string                  `json:"session_id"`
	RedirectURL   string                  `json:"redirect_url"`
	Status        enums.TransactionStatus `json:"status"`
	Amount        int64                   `json:"amount"`
	PlatformFee   int64                   `json:"platform_fee"`
	PointsUsed    int64                   `json:"points_used"`
}

// Service creates hosted checkout sessions for payment codes.
type Service interface {
	Start(ctx context.Context, input StartInput) (*SessionDTO, error)
	GetSession(ctx context.Context, sessionID string) (*SessionDTO, error)
}

type service struct {
	repo     Repository
	codes    paycode.Service
	storeSvc stores.Service
	gateway  StripeCheckoutClient
	keys     *pkgstripe.Client
	cfg      config.CheckoutConfig
	log      *logger.Logger
	metrics  *metrics.PaymentMetrics
}

// NewService builds the checkout orchestrator.
func NewService(
	repo Repository,
	codes paycode.Service,
	storeSvc stores.Service,
	gateway StripeCheckoutClient,
	keys *pkgstripe.Client,
	cfg config.CheckoutConfig,
	log *logger.Logger,
	payMetrics *metrics.PaymentMetrics,
) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction repository required")
	}
	if codes == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "code registry required")
	}
	if storeSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "store service required")
	}
	if gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe gateway required")
	}
	if keys == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{
		repo:     repo,
		codes:    codes,
		storeSvc: storeSvc,
		gateway:  gateway,
		keys:     keys,
		cfg:      cfg,
		log:      log,
		metrics:  payMetrics,
	}, nil
}

func (s *service) Start(ctx context.Context, input StartInput) (*SessionDTO, error) {
	payload, err := s.codes.ValidateAndFetch(ctx, input.Code)
	if err != nil {
		s.metrics.IncCheckoutSession("rejected")
		return nil, err
	}
	ctx = s.log.WithStoreID(ctx, payload.StoreID.String())

	store, err := s.storeSvc.EnsureReadyForCheckout(ctx, payload.StoreID)
	if err != nil {
		s.metrics.IncCheckoutSession("rejected")
		return nil, err
	}

	breakdown := fees.Compute(payload.GrossAmount)
	transactionID := uuid.New()

	meta := Metadata{
		TransactionID:        transactionID,
		StoreID:              payload.StoreID,
		CustomerID:           input.CustomerID,
		CodeID:               payload.CodeID,
		Code:                 payload.Code,
		PointsUsed:           payload.PointsUsed,
		GrossAmount:          breakdown.GrossAmount,
		PlatformFee:          breakdown.PlatformFee,
		ProcessorFeeEstimate: breakdown.ProcessorFeeEstimate,
		MerchantAmount:       breakdown.MerchantAmount,
	}

	session, err := s.createSession(ctx, payload, *store.StripeAccountID, breakdown, meta)
	if err != nil {
		s.metrics.IncCheckoutSession("gateway_error")
		return nil, err
	}

	transaction := &models.Transaction{
		ID:                   transactionID,
		StoreID:              payload.StoreID,
		CustomerID:           input.CustomerID,
		PaymentCodeID:        payload.CodeID,
		CheckoutSessionID:    &session.ID,
		Amount:               breakdown.GrossAmount,
		PlatformFee:          breakdown.PlatformFee,
		ProcessorFeeEstimate: breakdown.ProcessorFeeEstimate,
		MerchantAmount:       breakdown.MerchantAmount,
		PointsUsed:           payload.PointsUsed,
		Status:               enums.TransactionStatusPending,
	}
	// The pending row must exist before the payer is redirected, so an
	// abandoned checkout still leaves an auditable trace.
	if err := s.repo.Create(ctx, transaction); err != nil {
		s.metrics.IncCheckoutSession("persist_error")
		return nil, err
	}

	ctx = s.log.WithTransactionID(ctx, transactionID.String())
	s.log.Info(ctx, "checkout session created")
	s.metrics.IncCheckoutSession("created")

	return &SessionDTO{
		TransactionID: transactionID,
		SessionID:     session.ID,
		RedirectURL:   session.URL,
		Status:        enums.TransactionStatusPending,
		Amount:        breakdown.GrossAmount,
		PlatformFee:   breakdown.PlatformFee,
		PointsUsed:    payload.PointsUsed,
	}, nil
}

func (s *service) GetSession(ctx context.Context, sessionID string) (*SessionDTO, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	transaction, err := s.repo.FindByCheckoutSessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionDTO{
		TransactionID: transaction.ID,
		SessionID:     sessionID,
		Status:        transaction.Status,
		Amount:        transaction.Amount,
		PlatformFee:   transaction.PlatformFee,
		PointsUsed:    transaction.PointsUsed,
	}, nil
}

func (s *service) createSession(
	ctx context.Context,
	payload *paycode.CartPayload,
	destination string,
	breakdown fees.Breakdown,
	meta Metadata,
) (*stripe.CheckoutSession, error) {
	attempts := s.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		params := s.buildSessionParams(payload, destination, breakdown, meta)
		// Fresh key per attempt: after a timeout the previous outcome is
		// unknown and replaying its key could resurrect a stale session.
		params.IdempotencyKey = stripe.String(s.keys.NewIdempotencyKey("checkout"))

		attemptCtx, cancel := context.WithTimeout(ctx, s.sessionTimeout())
		session, err := s.gateway.CreateSession(attemptCtx, params)
		cancel()
		if err == nil {
			return session, nil
		}

		lastErr = err
		s.log.Error(ctx, "checkout session attempt failed", err)
		if !isRetryableStripeErr(err) {
			break
		}
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "create checkout session")
}

func (s *service) sessionTimeout() time.Duration {
	if s.cfg.SessionTimeout <= 0 {
		return 10 * time.Second
	}
	return s.cfg.SessionTimeout
}

func (s *service) buildSessionParams(
	payload *paycode.CartPayload,
	destination string,
	breakdown fees.Breakdown,
	meta Metadata,
) *stripe.CheckoutSessionParams {
	encoded := meta.Encode()
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(appendCodeParam(s.cfg.SuccessURL, payload.Code)),
		CancelURL:  stripe.String(appendCodeParam(s.cfg.CancelURL, payload.Code)),
		LineItems:  buildLineItems(payload),
		Metadata:   encoded,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(breakdown.PlatformFee),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(destination),
			},
			Metadata: encoded,
		},
	}
	return params
}

// buildLineItems itemizes the cart when line amounts reconcile with the
// gross; otherwise it falls back to a single aggregate line so the charged
// total always matches the code.
func buildLineItems(payload *paycode.CartPayload) []*stripe.CheckoutSessionLineItemParams {
	var sum int64
	for _, item := range payload.Items {
		sum += item.UnitAmount * item.Quantity
	}
	if len(payload.Items) == 0 || sum != payload.GrossAmount {
		return []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(enums.CurrencyJPY)),
					UnitAmount: stripe.Int64(payload.GrossAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Store purchase " + payload.Code),
					},
				},
			},
		}
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, len(payload.Items))
	for i, item := range payload.Items {
		lineItems[i] = &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(enums.CurrencyJPY)),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		}
	}
	return lineItems
}

func appendCodeParam(template, code string) string {
	separator := "?"
	if strings.Contains(template, "?") {
		separator = "&"
	}
	return template + separator + "code=" + code
}

func isRetryableStripeErr(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Type {
		case stripe.ErrorTypeAPI:
			return true
		case stripe.ErrorTypeCard, stripe.ErrorTypeInvalidRequest:
			return false
		}
		return stripeErr.HTTPStatusCode >= 500 || stripeErr.HTTPStatusCode == 429
	}
	// transport-level failures (timeouts, resets) are worth one more try
	return true
}
