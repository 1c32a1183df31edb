package enums

import "fmt"

// PlanID identifies a subscription tier.
type PlanID string

const (
	PlanIDStarter PlanID = "starter"
	PlanIDBasic   PlanID = "basic"
	PlanIDPro     PlanID = "pro"
)

var validPlanIDs = []PlanID{
	PlanIDStarter,
	PlanIDBasic,
	PlanIDPro,
}

// String implements fmt.Stringer.
func (v PlanID) String() string {
	return string(v)
}

// IsValid reports whether the value is known.
func (v PlanID) IsValid() bool {
	for _, candidate := range validPlanIDs {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePlanID converts raw input into a PlanID.
func ParsePlanID(value string) (PlanID, error) {
	for _, candidate := range validPlanIDs {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan %q", value)
}
