// Package paycode is the registry for short-lived payment codes. It resolves
// both code families into one canonical cart payload and owns every code
// transition except the final used stamp, which settlement drives.
package paycode

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hanamarche/hanamarche-backend/pkg/db/models"
	"github.com/hanamarche/hanamarche-backend/pkg/enums"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
)

// CartItem is one purchasable line in the canonical payload.
type CartItem struct {
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"`
	Quantity   int64  `json:"quantity"`
}

// CartPayload is the normalized view of a redeemable code, identical in
// shape for both code families.
type CartPayload struct {
	CodeID      uuid.UUID        `json:"code_id"`
	Code        string           `json:"code"`
	Family      enums.CodeFamily `json:"family"`
	StoreID     uuid.UUID        `json:"store_id"`
	GrossAmount int64            `json:"gross_amount"`
	PointsUsed  int64            `json:"points_used"`
	Items       []CartItem       `json:"items"`
	ExpiresAt   time.Time        `json:"expires_at"`
}

// Service validates and resolves payment codes.
type Service interface {
	// ValidateAndFetch is read-only and idempotent: repeated calls return
	// the same payload until the code is marked used or expires.
	ValidateAndFetch(ctx context.Context, code string) (*CartPayload, error)
	// MarkUsed stamps the code inside the caller's transaction and reports
	// whether this call consumed it. A false return means another
	// transaction already holds the code. Only settlement may call it.
	MarkUsed(ctx context.Context, tx *gorm.DB, codeID uuid.UUID, usedAt time.Time) (bool, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a code registry with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "paycode repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) ValidateAndFetch(ctx context.Context, code string) (*CartPayload, error) {
	normalized, family, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if record.Family != family {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment code not found")
	}

	if record.UsedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeCodeUsed, "payment code was already used")
	}
	if !s.now().Before(record.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeCodeExpired, "payment code has expired")
	}

	switch record.Family {
	case enums.CodeFamilyStore:
		return s.storePayload(record)
	case enums.CodeFamilyInvoice:
		return s.invoicePayload(ctx, record)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "unknown code family")
	}
}

func (s *service) MarkUsed(ctx context.Context, tx *gorm.DB, codeID uuid.UUID, usedAt time.Time) (bool, error) {
	if codeID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "code id required")
	}
	return s.repo.WithTx(tx).MarkUsed(ctx, codeID, usedAt)
}

// storeItem is the wire shape embedded on five-digit store codes.
type storeItem struct {
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"`
	Qty        int64  `json:"qty"`
}

func (s *service) storePayload(record *models.PaymentCode) (*CartPayload, error) {
	if record.GrossAmount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment code carries no amount")
	}

	items, err := decodeStoreItems(record.Items)
	if err != nil {
		return nil, err
	}

	return &CartPayload{
		CodeID:      record.ID,
		Code:        record.Code,
		Family:      record.Family,
		StoreID:     record.StoreID,
		GrossAmount: record.GrossAmount,
		PointsUsed:  record.PointsUsed,
		Items:       items,
		ExpiresAt:   record.ExpiresAt,
	}, nil
}

// invoiceItem is the wire shape stored on invoices for six-digit codes.
type invoiceItem struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Quantity    int64  `json:"quantity"`
}

func (s *service) invoicePayload(ctx context.Context, record *models.PaymentCode) (*CartPayload, error) {
	if record.InvoiceID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "invoice code missing invoice reference")
	}
	invoice, err := s.repo.FindInvoiceByID(ctx, *record.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.StoreID != record.StoreID {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invoice belongs to a different store")
	}
	if invoice.TotalAmount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice carries no amount")
	}

	items, err := decodeInvoiceItems(invoice.Items)
	if err != nil {
		return nil, err
	}

	return &CartPayload{
		CodeID:      record.ID,
		Code:        record.Code,
		Family:      record.Family,
		StoreID:     record.StoreID,
		GrossAmount: invoice.TotalAmount,
		PointsUsed:  record.PointsUsed,
		Items:       items,
		ExpiresAt:   record.ExpiresAt,
	}, nil
}

func decodeStoreItems(raw json.RawMessage) ([]CartItem, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var decoded []storeItem
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart items")
	}
	items := make([]CartItem, len(decoded))
	for i, item := range decoded {
		items[i] = CartItem{Name: item.Name, UnitAmount: item.UnitAmount, Quantity: item.Qty}
	}
	return items, nil
}

func decodeInvoiceItems(raw json.RawMessage) ([]CartItem, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var decoded []invoiceItem
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode invoice items")
	}
	items := make([]CartItem, len(decoded))
	for i, item := range decoded {
		items[i] = CartItem{Name: item.Description, UnitAmount: item.Amount, Quantity: item.Quantity}
	}
	return items, nil
}

func normalizeCode(raw string) (string, enums.CodeFamily, error) {
	code := ""
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			code += string(r)
		case r == ' ' || r == '-':
			// tolerated separators, stripped
		default:
			return "", "", pkgerrors.New(pkgerrors.CodeValidation, "payment code must be numeric")
		}
	}
	family, err := enums.CodeFamilyForLength(len(code))
	if err != nil {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "payment code must be 5 or 6 digits")
	}
	return code, family, nil
}
