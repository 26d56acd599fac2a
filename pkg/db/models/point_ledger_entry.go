package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hanamarche/hanamarche-backend/pkg/enums"
)

// PointLedgerEntry is an immutable point grant or debit. A customer's
// balance is the sum of deltas. The (transaction_id, reason) pair is unique
// so re-applying a settlement event is rejected by the database.
type PointLedgerEntry struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID    uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index"`
	TransactionID uuid.UUID         `gorm:"column:transaction_id;type:uuid;not null;uniqueIndex:uq_point_ledger_txn_reason"`
	Reason        enums.PointReason `gorm:"column:reason;type:point_reason_enum;not null;uniqueIndex:uq_point_ledger_txn_reason"`
	Delta         int64             `gorm:"column:delta;not null"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
}
