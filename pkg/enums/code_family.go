package enums

import "fmt"

// CodeFamily distinguishes the two payment-code formats. Store codes are
// five digits and carry their cart payload inline; invoice codes are six
// digits and reference an invoice row.
type CodeFamily string

const (
	CodeFamilyStore   CodeFamily = "store"
	CodeFamilyInvoice CodeFamily = "invoice"
)

const (
	StoreCodeLength   = 5
	InvoiceCodeLength = 6
)

var validCodeFamilies = []CodeFamily{
	CodeFamilyStore,
	CodeFamilyInvoice,
}

// String implements fmt.Stringer.
func (f CodeFamily) String() string {
	return string(f)
}

// IsValid reports whether the value is a known CodeFamily.
func (f CodeFamily) IsValid() bool {
	for _, candidate := range validCodeFamilies {
		if candidate == f {
			return true
		}
	}
	return false
}

// CodeFamilyForLength resolves a payment code's family from its length.
func CodeFamilyForLength(length int) (CodeFamily, error) {
	switch length {
	case StoreCodeLength:
		return CodeFamilyStore, nil
	case InvoiceCodeLength:
		return CodeFamilyInvoice, nil
	default:
		return "", fmt.Errorf("no code family for length %d", length)
	}
}
