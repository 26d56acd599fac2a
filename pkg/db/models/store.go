package models

import (
	"time"

	"github.com/google/uuid"
)

// Store is the merchant directory row the payment core reads. Onboarding
// state mirrors the connected account held by the payment processor.
type Store struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string    `gorm:"column:name;not null"`
	StripeAccountID  *string   `gorm:"column:stripe_account_id;uniqueIndex"`
	ChargesEnabled   bool      `gorm:"column:charges_enabled;not null;default:false"`
	PayoutsEnabled   bool      `gorm:"column:payouts_enabled;not null;default:false"`
	RestrictionsJSON []byte    `gorm:"column:restrictions;type:jsonb"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
