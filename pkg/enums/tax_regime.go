package enums

import "fmt"

// TaxRegime selects the income tax slab set.
type TaxRegime string

const (
	TaxRegimeNew TaxRegime = "new"
	TaxRegimeOld TaxRegime = "old"
)

var validTaxRegimes = []TaxRegime{
	TaxRegimeNew,
	TaxRegimeOld,
}

// String implements fmt.Stringer.
func (v TaxRegime) String() string {
	return string(v)
}

// IsValid reports whether the value is known.
func (v TaxRegime) IsValid() bool {
	for _, candidate := range validTaxRegimes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseTaxRegime converts raw input into a TaxRegime.
func ParseTaxRegime(value string) (TaxRegime, error) {
	for _, candidate := range validTaxRegimes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tax regime %q", value)
}
