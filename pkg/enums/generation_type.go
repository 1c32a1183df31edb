package enums

import "fmt"

// GenerationType is the kind of AI content requested.
type GenerationType string

const (
	GenerationTypeProposal GenerationType = "proposal"
	GenerationTypeFollowup GenerationType = "followup"
)

var validGenerationTypes = []GenerationType{
	GenerationTypeProposal,
	GenerationTypeFollowup,
}

// String implements fmt.Stringer.
func (v GenerationType) String() string {
	return string(v)
}

// IsValid reports whether the value is known.
func (v GenerationType) IsValid() bool {
	for _, candidate := range validGenerationTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseGenerationType converts raw input into a GenerationType.
func ParseGenerationType(value string) (GenerationType, error) {
	for _, candidate := range validGenerationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid generation type %q", value)
}

// QuotaType maps the generation kind onto the ledger counter it consumes.
func (v GenerationType) QuotaType() QuotaType {
	if v == GenerationTypeFollowup {
		return QuotaTypeFollowup
	}
	return QuotaTypeProposal
}
