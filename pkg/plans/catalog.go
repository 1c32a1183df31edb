// Package plans holds the static subscription catalog: monthly allowances and
// prices per tier.
package plans

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
)

// Currency is the ISO code every catalog price is quoted in.
const Currency = "INR"

// PlanLimits bounds monthly usage for a tier.
type PlanLimits struct {
	Plan        enums.PlanID    `json:"plan"`
	DisplayName string          `json:"display_name"`
	Proposals   int             `json:"proposals"`
	Followups   int             `json:"followups"`
	Invoices    int             `json:"invoices"`
	Clients     int             `json:"clients"`
	Price       decimal.Decimal `json:"price"`
}

// Limit returns the allowance for the given quota. Unknown quotas allow nothing.
func (p PlanLimits) Limit(quota enums.QuotaType) int {
	switch quota {
	case enums.QuotaTypeProposal:
		return p.Proposals
	case enums.QuotaTypeFollowup:
		return p.Followups
	case enums.QuotaTypeInvoice:
		return p.Invoices
	case enums.QuotaTypeClient:
		return p.Clients
	default:
		return 0
	}
}

// PriceMinorUnits returns the monthly price in paise.
func (p PlanLimits) PriceMinorUnits() int64 {
	return p.Price.Shift(2).Round(0).IntPart()
}

// Paid reports whether the tier is billed.
func (p PlanLimits) Paid() bool {
	return p.Price.IsPositive()
}

// Catalog maps plan identifiers to limits. Treat it as read-only.
type Catalog map[enums.PlanID]PlanLimits

var defaultCatalog = Catalog{
	enums.PlanIDStarter: {
		Plan:        enums.PlanIDStarter,
		DisplayName: "Starter",
		Proposals:   5,
		Followups:   5,
		Invoices:    5,
		Clients:     3,
		Price:       decimal.Zero,
	},
	enums.PlanIDBasic: {
		Plan:        enums.PlanIDBasic,
		DisplayName: "Basic",
		Proposals:   50,
		Followups:   50,
		Invoices:    50,
		Clients:     25,
		Price:       decimal.NewFromInt(499),
	},
	enums.PlanIDPro: {
		Plan:        enums.PlanIDPro,
		DisplayName: "Pro",
		Proposals:   300,
		Followups:   300,
		Invoices:    500,
		Clients:     250,
		Price:       decimal.NewFromInt(999),
	},
}

// Default returns the built-in catalog.
func Default() Catalog {
	return defaultCatalog
}

// Lookup returns the limits for plan, falling back to starter for anything
// unrecognised.
func (c Catalog) Lookup(plan string) PlanLimits {
	if limits, ok := c[enums.PlanID(plan)]; ok {
		return limits
	}
	if limits, ok := c[enums.PlanIDStarter]; ok {
		return limits
	}
	return defaultCatalog[enums.PlanIDStarter]
}

// Lookup resolves plan against the default catalog.
func Lookup(plan string) PlanLimits {
	return defaultCatalog.Lookup(plan)
}

// List returns all tiers ordered by price.
func (c Catalog) List() []PlanLimits {
	out := make([]PlanLimits, 0, len(c))
	for _, limits := range c {
		out = append(out, limits)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Price.LessThan(out[j].Price)
	})
	return out
}

// ParsePurchasable validates a plan that can be bought through checkout.
func (c Catalog) ParsePurchasable(raw string) (PlanLimits, bool) {
	limits, ok := c[enums.PlanID(raw)]
	if !ok || !limits.Paid() {
		return PlanLimits{}, false
	}
	return limits, true
}

// ParsePlan strictly validates a plan identifier from request input.
func ParsePlan(raw string) (enums.PlanID, error) {
	return enums.ParsePlanID(strings.ToLower(strings.TrimSpace(raw)))
}

// IsPaid reports whether plan is a billed tier of the default catalog.
func IsPaid(plan enums.PlanID) bool {
	limits, ok := defaultCatalog[plan]
	return ok && limits.Paid()
}

// PriceMinorUnits returns the default catalog price of plan in paise.
func PriceMinorUnits(plan enums.PlanID) int64 {
	return Lookup(string(plan)).PriceMinorUnits()
}
