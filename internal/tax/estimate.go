// Package tax estimates Indian income tax for freelancers under both regimes.
package tax

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
)

// Regime selects the slab table.
type Regime = enums.TaxRegime

const (
	RegimeNew = enums.TaxRegimeNew
	RegimeOld = enums.TaxRegimeOld
)

// ParseRegime accepts "new", "old" or empty (compare both).
func ParseRegime(raw string) (Regime, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", nil
	}
	return enums.ParseTaxRegime(raw)
}

type slab struct {
	upTo decimal.Decimal // zero means unbounded
	rate decimal.Decimal
}

type regimeRules struct {
	slabs             []slab
	standardDeduction decimal.Decimal
	rebateCeiling     decimal.Decimal
	allowsDeductions  bool
	marginalRelief    bool
}

func lakh(n int64) decimal.Decimal {
	return decimal.NewFromInt(n * 100000)
}

func pct(n int64) decimal.Decimal {
	return decimal.NewFromInt(n).Div(decimal.NewFromInt(100))
}

// FY 2025-26 tables.
var rules = map[Regime]regimeRules{
	RegimeNew: {
		slabs: []slab{
			{upTo: lakh(4), rate: pct(0)},
			{upTo: lakh(8), rate: pct(5)},
			{upTo: lakh(12), rate: pct(10)},
			{upTo: lakh(16), rate: pct(15)},
			{upTo: lakh(20), rate: pct(20)},
			{upTo: lakh(24), rate: pct(25)},
			{rate: pct(30)},
		},
		standardDeduction: decimal.NewFromInt(75000),
		rebateCeiling:     lakh(12),
		marginalRelief:    true,
	},
	RegimeOld: {
		slabs: []slab{
			{upTo: decimal.NewFromInt(250000), rate: pct(0)},
			{upTo: lakh(5), rate: pct(5)},
			{upTo: lakh(10), rate: pct(20)},
			{rate: pct(30)},
		},
		standardDeduction: decimal.NewFromInt(50000),
		rebateCeiling:     lakh(5),
		allowsDeductions:  true,
	},
}

var (
	cessRate           = pct(4)
	presumptiveShare   = pct(50)
	presumptiveCeiling = lakh(75)
)

// Input describes a year's income.
type Input struct {
	GrossReceipts decimal.Decimal `json:"gross_receipts"`
	Expenses      decimal.Decimal `json:"expenses"`
	Presumptive   bool            `json:"presumptive"`
	SalaryIncome  decimal.Decimal `json:"salary_income"`
	OtherIncome   decimal.Decimal `json:"other_income"`
	Deductions    decimal.Decimal `json:"deductions"`
	Regime        string          `json:"regime" validate:"omitempty,oneof=new old"`
}

// Estimate is the computation under one regime. Amounts are whole rupees.
type Estimate struct {
	Regime            Regime          `json:"regime"`
	BusinessIncome    decimal.Decimal `json:"business_income"`
	GrossIncome       decimal.Decimal `json:"gross_income"`
	StandardDeduction decimal.Decimal `json:"standard_deduction"`
	Deductions        decimal.Decimal `json:"deductions"`
	TaxableIncome     decimal.Decimal `json:"taxable_income"`
	SlabTax           decimal.Decimal `json:"slab_tax"`
	Rebate            decimal.Decimal `json:"rebate"`
	Cess              decimal.Decimal `json:"cess"`
	TotalTax          decimal.Decimal `json:"total_tax"`
	EffectiveRate     decimal.Decimal `json:"effective_rate"`
}

// Comparison holds the requested regimes and the cheaper one.
type Comparison struct {
	Estimates   []Estimate `json:"estimates"`
	Recommended Regime     `json:"recommended"`
}

// Compute estimates tax for the requested regime, or both when none is set.
func Compute(in Input) (*Comparison, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	regime, err := ParseRegime(in.Regime)
	if err != nil {
		return nil, err
	}

	regimes := []Regime{RegimeNew, RegimeOld}
	if regime != "" {
		regimes = []Regime{regime}
	}

	out := &Comparison{Estimates: make([]Estimate, 0, len(regimes))}
	for _, r := range regimes {
		est := ComputeRegime(in, r)
		out.Estimates = append(out.Estimates, est)
		if out.Recommended == "" || est.TotalTax.LessThan(taxFor(out, out.Recommended)) {
			out.Recommended = r
		}
	}
	return out, nil
}

func taxFor(c *Comparison, r Regime) decimal.Decimal {
	for _, est := range c.Estimates {
		if est.Regime == r {
			return est.TotalTax
		}
	}
	return decimal.Zero
}

func validate(in Input) error {
	fields := map[string]decimal.Decimal{
		"gross_receipts": in.GrossReceipts,
		"expenses":       in.Expenses,
		"salary_income":  in.SalaryIncome,
		"other_income":   in.OtherIncome,
		"deductions":     in.Deductions,
	}
	for name, v := range fields {
		if v.IsNegative() {
			return fmt.Errorf("%s cannot be negative", name)
		}
	}
	if in.Presumptive && in.GrossReceipts.GreaterThan(presumptiveCeiling) {
		return fmt.Errorf("presumptive taxation applies to receipts up to %s", presumptiveCeiling.String())
	}
	return nil
}

// ComputeRegime applies one regime's rules.
func ComputeRegime(in Input, regime Regime) Estimate {
	r := rules[regime]

	business := in.GrossReceipts.Mul(presumptiveShare)
	if !in.Presumptive {
		business = decimal.Max(in.GrossReceipts.Sub(in.Expenses), decimal.Zero)
	}
	gross := business.Add(in.SalaryIncome).Add(in.OtherIncome)

	std := decimal.Min(r.standardDeduction, in.SalaryIncome)
	deductions := decimal.Zero
	if r.allowsDeductions {
		deductions = in.Deductions
	}
	taxable := decimal.Max(gross.Sub(std).Sub(deductions), decimal.Zero).Round(0)

	slabTax := applySlabs(r.slabs, taxable)
	rebate := decimal.Zero
	if taxable.LessThanOrEqual(r.rebateCeiling) {
		rebate = slabTax
	} else if r.marginalRelief {
		// Tax may not exceed the income above the rebate ceiling.
		excess := taxable.Sub(r.rebateCeiling)
		if slabTax.GreaterThan(excess) {
			rebate = slabTax.Sub(excess)
		}
	}

	afterRebate := slabTax.Sub(rebate)
	cess := afterRebate.Mul(cessRate).Round(0)
	total := afterRebate.Add(cess).Round(0)

	effective := decimal.Zero
	if gross.IsPositive() {
		effective = total.Div(gross).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return Estimate{
		Regime:            regime,
		BusinessIncome:    business.Round(0),
		GrossIncome:       gross.Round(0),
		StandardDeduction: std,
		Deductions:        deductions,
		TaxableIncome:     taxable,
		SlabTax:           slabTax.Round(0),
		Rebate:            rebate.Round(0),
		Cess:              cess,
		TotalTax:          total,
		EffectiveRate:     effective,
	}
}

func applySlabs(slabs []slab, income decimal.Decimal) decimal.Decimal {
	tax := decimal.Zero
	lower := decimal.Zero
	for _, s := range slabs {
		if !income.GreaterThan(lower) {
			break
		}
		upper := income
		if !s.upTo.IsZero() && s.upTo.LessThan(income) {
			upper = s.upTo
		}
		tax = tax.Add(upper.Sub(lower).Mul(s.rate))
		if s.upTo.IsZero() {
			break
		}
		lower = s.upTo
	}
	return tax
}
