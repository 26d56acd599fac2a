// Package stores is the merchant directory the payment core consults. Each
// store row mirrors the state of its connected processor account; the
// checkout gate lives here so every caller applies the same readiness
// rules.
package stores

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/hanamarche/hanamarche-backend/internal/bank"
	"github.com/hanamarche/hanamarche-backend/pkg/db/models"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
	"github.com/hanamarche/hanamarche-backend/pkg/logger"
)

// AccountUpdate mirrors the fields the processor reports when a connected
// account changes.
type AccountUpdate struct {
	StripeAccountID string
	ChargesEnabled  bool
	PayoutsEnabled  bool
	Restrictions    []string
}

// Service exposes directory reads and the checkout readiness gate.
type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*StoreDTO, error)
	// EnsureReadyForCheckout returns the store only when every gate holds:
	// a connected account exists, charges are enabled, the account carries
	// no restrictions, and a payout bank account is registered.
	EnsureReadyForCheckout(ctx context.Context, id uuid.UUID) (*models.Store, error)
	// ApplyAccountUpdate syncs directory state from a processor account
	// event.
	ApplyAccountUpdate(ctx context.Context, update AccountUpdate) error
}

type service struct {
	repo  Repository
	banks bank.Repository
	log   *logger.Logger
}

// NewService builds a store directory service.
func NewService(repo Repository, banks bank.Repository, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "store repository required")
	}
	if banks == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bank repository required")
	}
	if log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{repo: repo, banks: banks, log: log}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*StoreDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	store, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	bankRegistered, err := s.banks.ExistsForStore(ctx, id)
	if err != nil {
		return nil, err
	}
	return toStoreDTO(store, bankRegistered), nil
}

func (s *service) EnsureReadyForCheckout(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	store, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if store.StripeAccountID == nil || *store.StripeAccountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStoreNotReady, "store has not completed payment onboarding")
	}
	if !store.ChargesEnabled {
		return nil, pkgerrors.New(pkgerrors.CodeStoreNotReady, "store cannot accept charges yet")
	}
	if !store.PayoutsEnabled {
		return nil, pkgerrors.New(pkgerrors.CodeStoreNotReady, "store payouts are disabled")
	}
	if restrictions := decodeRestrictions(store.RestrictionsJSON); len(restrictions) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStoreNotReady, "store account is restricted")
	}

	bankRegistered, err := s.banks.ExistsForStore(ctx, id)
	if err != nil {
		return nil, err
	}
	if !bankRegistered {
		return nil, pkgerrors.New(pkgerrors.CodeStoreNotReady, "store has no payout bank account")
	}
	return store, nil
}

func (s *service) ApplyAccountUpdate(ctx context.Context, update AccountUpdate) error {
	if update.StripeAccountID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	store, err := s.repo.FindByStripeAccountID(ctx, update.StripeAccountID)
	if err != nil {
		return err
	}

	var restrictions json.RawMessage
	if len(update.Restrictions) > 0 {
		restrictions, err = json.Marshal(update.Restrictions)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode restrictions")
		}
	}

	ctx = s.log.WithStoreID(ctx, store.ID.String())
	if err := s.repo.UpdateOnboarding(ctx, store.ID, update.ChargesEnabled, update.PayoutsEnabled, restrictions); err != nil {
		return err
	}
	s.log.Info(ctx, "store onboarding state synced from processor account")
	return nil
}
