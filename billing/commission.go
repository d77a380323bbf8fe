/*
commission.go - Revenue split between institute and professional

PURPOSE:
  Applies a professional's commission percentage to completed-appointment
  revenue. The institute share rounds half-up to 2 places; the
  professional keeps the exact remainder, so the two shares always sum
  back to the rounded revenue and the split is stable under
  recomputation.
*/
package billing

import (
	"github.com/shopspring/decimal"

	"github.com/solhealth/clinic-core/ledger"
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// PERCENT - Commission percentage, always within [0,100]
// =============================================================================

// Percent is a commission percentage. Constructors clamp to [0,100]
// rather than reject: out-of-range input is a configuration mistake, not
// a reason to block a completion, and clamping guarantees no negative
// share can ever be computed.
type Percent struct {
	value decimal.Decimal
}

func NewPercent(value float64) Percent {
	return clampPercent(decimal.NewFromFloat(value))
}

func NewPercentFromDecimal(d decimal.Decimal) Percent {
	return clampPercent(d)
}

func clampPercent(d decimal.Decimal) Percent {
	if d.IsNegative() {
		return Percent{value: decimal.Zero}
	}
	if d.GreaterThan(hundred) {
		return Percent{value: hundred}
	}
	return Percent{value: d}
}

func (p Percent) Decimal() decimal.Decimal { return p.value }
func (p Percent) IsZero() bool             { return p.value.IsZero() }

func (p Percent) Float64() float64 {
	f, _ := p.value.Float64()
	return f
}

func (p Percent) String() string { return p.value.String() }

// =============================================================================
// SPLIT
// =============================================================================

type Split struct {
	InstituteShare    ledger.Money
	ProfessionalShare ledger.Money
}

// ComputeSplit divides session revenue between the institute and the
// professional.
//
//	instituteShare    = round2(revenue * percent / 100)
//	professionalShare = round2(revenue) - instituteShare
//
// Invariant: InstituteShare + ProfessionalShare == round2(revenue), and
// recomputing with the same inputs yields identical outputs.
func ComputeSplit(revenue ledger.Money, commission Percent) Split {
	gross := revenue.Round2()
	institute := ledger.Money{Value: gross.Value.Mul(commission.Decimal()).Div(hundred)}.Round2()
	return Split{
		InstituteShare:    institute,
		ProfessionalShare: gross.Sub(institute),
	}
}
