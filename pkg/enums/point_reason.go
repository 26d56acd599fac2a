package enums

import "fmt"

// PointReason maps to the point_reason_enum enum in Postgres. Together with
// the transaction id it forms the point ledger's uniqueness key.
type PointReason string

const (
	PointReasonEarned   PointReason = "earned"
	PointReasonRedeemed PointReason = "redeemed"
)

var validPointReasons = []PointReason{
	PointReasonEarned,
	PointReasonRedeemed,
}

// String implements fmt.Stringer.
func (r PointReason) String() string {
	return string(r)
}

// IsValid reports whether the value matches the canonical point reason enum.
func (r PointReason) IsValid() bool {
	for _, candidate := range validPointReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParsePointReason converts raw input into a PointReason.
func ParsePointReason(value string) (PointReason, error) {
	for _, candidate := range validPointReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid point reason %q", value)
}
