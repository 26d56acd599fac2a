// Package settlement applies verified processor events to the payment
// core: transaction transitions, point movements, code consumption, and
// payout recording. Events arrive at-least-once and possibly reordered, so
// every side effect here is guarded to apply exactly once.
package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/hanamarche/hanamarche-backend/internal/checkout"
	"github.com/hanamarche/hanamarche-backend/internal/fees"
	"github.com/hanamarche/hanamarche-backend/internal/ledger"
	"github.com/hanamarche/hanamarche-backend/internal/paycode"
	"github.com/hanamarche/hanamarche-backend/internal/payout"
	"github.com/hanamarche/hanamarche-backend/internal/stores"
	"github.com/hanamarche/hanamarche-backend/pkg/enums"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
	"github.com/hanamarche/hanamarche-backend/pkg/logger"
	"github.com/hanamarche/hanamarche-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// errCodeConsumed rolls back a settlement unit whose code was already
// consumed by a different transaction. The single-use guarantee holds even
// when two distinct payments reference the same code.
var errCodeConsumed = errors.New("payment code consumed by another transaction")

// ServiceParams collects the collaborators settlement composes.
type ServiceParams struct {
	Transactions      checkout.Repository
	Codes             paycode.Service
	Ledger            ledger.Service
	Payouts           payout.Service
	Stores            stores.Service
	TransactionRunner txRunner
	Logger            *logger.Logger
	Metrics           *metrics.PaymentMetrics
}

// Service is the settlement webhook event handler.
type Service struct {
	transactions checkout.Repository
	codes        paycode.Service
	ledger       ledger.Service
	payouts      payout.Service
	stores       stores.Service
	txRunner     txRunner
	log          *logger.Logger
	metrics      *metrics.PaymentMetrics
	now          func() time.Time
}

// NewService wires the settlement handler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Transactions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction repository required")
	}
	if params.Codes == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "code registry required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	if params.Payouts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payout service required")
	}
	if params.Stores == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "store service required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		transactions: params.Transactions,
		codes:        params.Codes,
		ledger:       params.Ledger,
		payouts:      params.Payouts,
		stores:       params.Stores,
		txRunner:     params.TransactionRunner,
		log:          params.Logger,
		metrics:      params.Metrics,
		now:          time.Now,
	}, nil
}

// HandleEvent applies one verified event. Unrecognized event types are
// acknowledged without side effects so the processor stops redelivering
// them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	started := s.now()
	eventType := string(event.Type)

	var err error
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if decodeErr := json.Unmarshal(event.Data.Raw, &intent); decodeErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, decodeErr, "decode payment intent event")
		}
		err = s.applySucceeded(ctx, &intent)
	case stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if decodeErr := json.Unmarshal(event.Data.Raw, &intent); decodeErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, decodeErr, "decode payment intent event")
		}
		err = s.applyFailed(ctx, &intent)
	case stripe.EventTypeAccountUpdated:
		var account stripe.Account
		if decodeErr := json.Unmarshal(event.Data.Raw, &account); decodeErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, decodeErr, "decode account event")
		}
		err = s.applyAccountUpdated(ctx, &account)
	default:
		s.metrics.IncWebhookEvent(eventType, "ignored")
		return nil
	}

	if err != nil {
		s.metrics.IncWebhookEvent(eventType, "error")
		return err
	}
	s.metrics.IncWebhookEvent(eventType, "applied")
	s.metrics.ObserveSettlement(eventType, s.now().Sub(started))
	return nil
}

// applySucceeded commits the full settlement unit atomically: the status
// transition, both point entries, the used stamp, and the payout record
// land together or not at all.
func (s *Service) applySucceeded(ctx context.Context, intent *stripe.PaymentIntent) error {
	meta, err := checkout.ParseMetadata(intent.Metadata)
	if err != nil {
		return err
	}
	ctx = s.log.WithTransactionID(ctx, meta.TransactionID.String())
	ctx = s.log.WithStoreID(ctx, meta.StoreID.String())

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.transactions.WithTx(tx)

		if err := repo.SetExternalPaymentID(ctx, meta.TransactionID, intent.ID); err != nil {
			typed := pkgerrors.As(err)
			if typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
				// a different payment already settled this transaction;
				// first terminal event wins, this delivery is acknowledged
				s.log.Warn(ctx, "duplicate payment for settled transaction, event ignored")
				return nil
			}
			return err
		}

		won, err := repo.TransitionIfPending(ctx, meta.TransactionID, enums.TransactionStatusCompleted, nil)
		if err != nil {
			return err
		}
		if !won {
			current, err := repo.FindByID(ctx, meta.TransactionID)
			if err != nil {
				return err
			}
			// completed: redelivery of an applied event, side effects are
			// already committed. failed: a terminal state was reached first
			// and stays.
			s.log.Warn(ctx, "settlement event for already "+string(current.Status)+" transaction, no-op")
			return nil
		}

		if meta.PointsUsed > 0 {
			if meta.CustomerID == nil {
				s.log.Warn(ctx, "points used without customer, redemption skipped")
			} else if err := s.ledger.Redeem(ctx, tx, *meta.CustomerID, meta.TransactionID, meta.PointsUsed); err != nil {
				return err
			}
		}
		if meta.CustomerID != nil {
			if earned := fees.PointsEarned(meta.GrossAmount); earned > 0 {
				if err := s.ledger.Earn(ctx, tx, *meta.CustomerID, meta.TransactionID, earned); err != nil {
					return err
				}
			}
		}

		stamped, err := s.codes.MarkUsed(ctx, tx, meta.CodeID, s.now().UTC())
		if err != nil {
			return err
		}
		if !stamped {
			// redeliveries never get here: they lose the pending transition
			// above. A fresh stamp failure means a different payment already
			// settled this code.
			return errCodeConsumed
		}

		if _, err := s.payouts.CreatePending(ctx, tx, payout.CreateInput{
			StoreID:               meta.StoreID,
			TransactionID:         meta.TransactionID,
			Amount:                meta.MerchantAmount,
			EstimatedProcessorFee: meta.ProcessorFeeEstimate,
		}); err != nil {
			return err
		}

		s.log.Info(ctx, "settlement applied")
		return nil
	})
	if errors.Is(err, errCodeConsumed) {
		return s.failConsumedCode(ctx, meta.TransactionID)
	}
	return err
}

// failConsumedCode settles the losing side of a code race: the full unit
// rolled back, so the losing transaction moves to failed and the event is
// acknowledged instead of redelivered forever.
func (s *Service) failConsumedCode(ctx context.Context, transactionID uuid.UUID) error {
	reason := "code_already_used"
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.transactions.WithTx(tx).TransitionIfPending(ctx, transactionID, enums.TransactionStatusFailed, &reason); err != nil {
			return err
		}
		s.log.Warn(ctx, "payment code already consumed, transaction failed")
		return nil
	})
}

func (s *Service) applyFailed(ctx context.Context, intent *stripe.PaymentIntent) error {
	meta, err := checkout.ParseMetadata(intent.Metadata)
	if err != nil {
		return err
	}
	ctx = s.log.WithTransactionID(ctx, meta.TransactionID.String())

	reason := "payment_failed"
	if intent.LastPaymentError != nil && intent.LastPaymentError.Code != "" {
		reason = string(intent.LastPaymentError.Code)
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.transactions.WithTx(tx)

		won, err := repo.TransitionIfPending(ctx, meta.TransactionID, enums.TransactionStatusFailed, &reason)
		if err != nil {
			return err
		}
		if !won {
			s.log.Warn(ctx, "failed event for already terminal transaction, no-op")
			return nil
		}
		// the code stays untouched: the customer may retry with the same
		// still-valid code
		s.log.Info(ctx, "transaction marked failed")
		return nil
	})
}

func (s *Service) applyAccountUpdated(ctx context.Context, account *stripe.Account) error {
	update := stores.AccountUpdate{
		StripeAccountID: account.ID,
		ChargesEnabled:  account.ChargesEnabled,
		PayoutsEnabled:  account.PayoutsEnabled,
	}
	if account.Requirements != nil {
		update.Restrictions = account.Requirements.CurrentlyDue
	}

	err := s.stores.ApplyAccountUpdate(ctx, update)
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
		// accounts not in the directory are none of our business
		s.log.Warn(ctx, "account event for unknown store, ignored")
		return nil
	}
	return err
}
