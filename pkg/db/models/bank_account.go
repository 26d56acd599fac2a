package models

import (
	"time"

	"github.com/google/uuid"
)

// BankAccount stores the payout destination a store registered. Fields are
// validated upstream; the payment core only snapshots them onto payouts.
type BankAccount struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID       uuid.UUID `gorm:"column:store_id;type:uuid;not null;uniqueIndex"`
	BankName      string    `gorm:"column:bank_name;not null"`
	BranchCode    string    `gorm:"column:branch_code;not null"`
	AccountType   string    `gorm:"column:account_type;not null"`
	AccountNumber string    `gorm:"column:account_number;not null"`
	HolderName    string    `gorm:"column:holder_name;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
