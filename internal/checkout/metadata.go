package checkout

import (
	"strconv"

	"github.com/google/uuid"

	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
)

// Metadata is the context pinned onto the processor session. It travels to
// the payment object and back on webhook events, and is the only channel
// settlement has for recovering what a charge was for.
type Metadata struct {
	TransactionID        uuid.UUID
	StoreID              uuid.UUID
	CustomerID           *uuid.UUID
	CodeID               uuid.UUID
	Code                 string
	PointsUsed           int64
	GrossAmount          int64
	PlatformFee          int64
	ProcessorFeeEstimate int64
	MerchantAmount       int64
}

const (
	metaTransactionID        = "transaction_id"
	metaStoreID              = "store_id"
	metaCustomerID           = "customer_id"
	metaCodeID               = "code_id"
	metaCode                 = "code"
	metaPointsUsed           = "points_used"
	metaGrossAmount          = "gross_amount"
	metaPlatformFee          = "platform_fee"
	metaProcessorFeeEstimate = "processor_fee_estimate"
	metaMerchantAmount       = "merchant_amount"
)

// Encode renders the metadata as the string map the processor accepts.
func (m Metadata) Encode() map[string]string {
	encoded := map[string]string{
		metaTransactionID:        m.TransactionID.String(),
		metaStoreID:              m.StoreID.String(),
		metaCodeID:               m.CodeID.String(),
		metaCode:                 m.Code,
		metaPointsUsed:           strconv.FormatInt(m.PointsUsed, 10),
		metaGrossAmount:          strconv.FormatInt(m.GrossAmount, 10),
		metaPlatformFee:          strconv.FormatInt(m.PlatformFee, 10),
		metaProcessorFeeEstimate: strconv.FormatInt(m.ProcessorFeeEstimate, 10),
		metaMerchantAmount:       strconv.FormatInt(m.MerchantAmount, 10),
	}
	if m.CustomerID != nil {
		encoded[metaCustomerID] = m.CustomerID.String()
	}
	return encoded
}

// ParseMetadata rebuilds the pinned context from an event's metadata map.
func ParseMetadata(raw map[string]string) (*Metadata, error) {
	if len(raw) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event carries no metadata")
	}

	parsed := &Metadata{Code: raw[metaCode]}

	var err error
	if parsed.TransactionID, err = parseUUIDField(raw, metaTransactionID); err != nil {
		return nil, err
	}
	if parsed.StoreID, err = parseUUIDField(raw, metaStoreID); err != nil {
		return nil, err
	}
	if parsed.CodeID, err = parseUUIDField(raw, metaCodeID); err != nil {
		return nil, err
	}
	if value, ok := raw[metaCustomerID]; ok && value != "" {
		customerID, parseErr := uuid.Parse(value)
		if parseErr != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "metadata customer_id is not a uuid")
		}
		parsed.CustomerID = &customerID
	}

	if parsed.PointsUsed, err = parseIntField(raw, metaPointsUsed); err != nil {
		return nil, err
	}
	if parsed.GrossAmount, err = parseIntField(raw, metaGrossAmount); err != nil {
		return nil, err
	}
	if parsed.PlatformFee, err = parseIntField(raw, metaPlatformFee); err != nil {
		return nil, err
	}
	if parsed.ProcessorFeeEstimate, err = parseIntField(raw, metaProcessorFeeEstimate); err != nil {
		return nil, err
	}
	if parsed.MerchantAmount, err = parseIntField(raw, metaMerchantAmount); err != nil {
		return nil, err
	}
	return parsed, nil
}

func parseUUIDField(raw map[string]string, key string) (uuid.UUID, error) {
	value, ok := raw[key]
	if !ok || value == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "metadata missing "+key)
	}
	parsed, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "metadata "+key+" is not a uuid")
	}
	return parsed, nil
}

func parseIntField(raw map[string]string, key string) (int64, error) {
	value, ok := raw[key]
	if !ok || value == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "metadata missing "+key)
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "metadata "+key+" is not an integer")
	}
	return parsed, nil
}
