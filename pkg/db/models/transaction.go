package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hanamarche/hanamarche-backend/pkg/enums"
)

// Transaction is the auditable record of one checkout attempt. It is
// created pending before the payer is redirected and only the settlement
// handler moves it to a terminal status. Amount fields are minor units;
// JPY is zero-decimal so minor units equal yen.
type Transaction struct {
	ID                   uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID              uuid.UUID               `gorm:"column:store_id;type:uuid;not null"`
	CustomerID           *uuid.UUID              `gorm:"column:customer_id;type:uuid"`
	PaymentCodeID        uuid.UUID               `gorm:"column:payment_code_id;type:uuid;not null"`
	CheckoutSessionID    *string                 `gorm:"column:checkout_session_id;uniqueIndex"`
	ExternalPaymentID    *string                 `gorm:"column:external_payment_id;uniqueIndex"`
	Amount               int64                   `gorm:"column:amount;not null"`
	PlatformFee          int64                   `gorm:"column:platform_fee;not null"`
	ProcessorFeeEstimate int64                   `gorm:"column:processor_fee_estimate;not null"`
	MerchantAmount       int64                   `gorm:"column:merchant_amount;not null"`
	PointsUsed           int64                   `gorm:"column:points_used;not null;default:0"`
	Status               enums.TransactionStatus `gorm:"column:status;type:transaction_status_enum;not null;default:'pending'"`
	FailureReason        *string                 `gorm:"column:failure_reason"`
	CreatedAt            time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
