package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hanamarche/hanamarche-backend/pkg/enums"
)

// PaymentCode is a short-lived, single-use code identifying a cart. Store
// codes (five digits) embed their cart payload inline; invoice codes (six
// digits) resolve amount and items through InvoiceID. UsedAt is set exactly
// once, by settlement, never at validation or session-creation time.
type PaymentCode struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code        string           `gorm:"column:code;not null;uniqueIndex"`
	Family      enums.CodeFamily `gorm:"column:family;type:code_family_enum;not null"`
	StoreID     uuid.UUID        `gorm:"column:store_id;type:uuid;not null"`
	InvoiceID   *uuid.UUID       `gorm:"column:invoice_id;type:uuid"`
	GrossAmount int64            `gorm:"column:gross_amount;not null;default:0"`
	PointsUsed  int64            `gorm:"column:points_used;not null;default:0"`
	Items       json.RawMessage  `gorm:"column:items;type:jsonb"`
	IssuedAt    time.Time        `gorm:"column:issued_at;not null"`
	ExpiresAt   time.Time        `gorm:"column:expires_at;not null"`
	UsedAt      *time.Time       `gorm:"column:used_at"`
}
