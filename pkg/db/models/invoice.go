package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Invoice backs the six-digit code family. A payment code references its
// invoice by id; amounts are never resolved by store recency.
type Invoice struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID     uuid.UUID       `gorm:"column:store_id;type:uuid;not null"`
	TotalAmount int64           `gorm:"column:total_amount;not null"`
	Items       json.RawMessage `gorm:"column:items;type:jsonb"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
