package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hanamarche/hanamarche-backend/pkg/enums"
)

// PayoutRecord is the auditable pending payout created once per completed
// transaction. Amount is what the merchant is owed in the primary
// settlement path (gross minus platform fee); EstimatedProcessorFee is
// reporting-only and never subtracted from Amount.
type PayoutRecord struct {
	ID                    uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID               uuid.UUID          `gorm:"column:store_id;type:uuid;not null;index"`
	TransactionID         uuid.UUID          `gorm:"column:transaction_id;type:uuid;not null;uniqueIndex"`
	Amount                int64              `gorm:"column:amount;not null"`
	EstimatedProcessorFee int64              `gorm:"column:estimated_processor_fee;not null;default:0"`
	BankSnapshot          json.RawMessage    `gorm:"column:bank_snapshot;type:jsonb"`
	Status                enums.PayoutStatus `gorm:"column:status;type:payout_status_enum;not null;default:'pending'"`
	CreatedAt             time.Time          `gorm:"column:created_at;autoCreateTime"`
}
