package enums

import "fmt"

// QuotaType names a per-plan allowance.
type QuotaType string

const (
	QuotaTypeProposal QuotaType = "proposal"
	QuotaTypeFollowup QuotaType = "followup"
	QuotaTypeInvoice  QuotaType = "invoice"
	QuotaTypeClient   QuotaType = "client"
)

var validQuotaTypes = []QuotaType{
	QuotaTypeProposal,
	QuotaTypeFollowup,
	QuotaTypeInvoice,
	QuotaTypeClient,
}

// String implements fmt.Stringer.
func (v QuotaType) String() string {
	return string(v)
}

// IsValid reports whether the value is known.
func (v QuotaType) IsValid() bool {
	for _, candidate := range validQuotaTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseQuotaType converts raw input into a QuotaType.
func ParseQuotaType(value string) (QuotaType, error) {
	for _, candidate := range validQuotaTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quota type %q", value)
}

// Ledger reports whether the quota is tracked by the monthly usage ledger
// rather than counted from stored records.
func (v QuotaType) Ledger() bool {
	return v == QuotaTypeProposal || v == QuotaTypeFollowup
}
