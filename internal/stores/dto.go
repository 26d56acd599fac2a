package stores

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hanamarche/hanamarche-backend/pkg/db/models"
)

// StoreDTO is the directory read model handed to API consumers. The raw
// processor account id stays internal; callers only see readiness.
type StoreDTO struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	ChargesEnabled   bool      `json:"charges_enabled"`
	PayoutsEnabled   bool      `json:"payouts_enabled"`
	Restrictions     []string  `json:"restrictions,omitempty"`
	ReadyForCheckout bool      `json:"ready_for_checkout"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toStoreDTO(store *models.Store, bankRegistered bool) *StoreDTO {
	dto := &StoreDTO{
		ID:             store.ID,
		Name:           store.Name,
		ChargesEnabled: store.ChargesEnabled,
		PayoutsEnabled: store.PayoutsEnabled,
		Restrictions:   decodeRestrictions(store.RestrictionsJSON),
		UpdatedAt:      store.UpdatedAt,
	}
	dto.ReadyForCheckout = store.StripeAccountID != nil &&
		store.ChargesEnabled &&
		len(dto.Restrictions) == 0 &&
		bankRegistered
	return dto
}

func decodeRestrictions(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var restrictions []string
	if err := json.Unmarshal(raw, &restrictions); err != nil {
		return nil
	}
	return restrictions
}
