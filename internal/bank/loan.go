package bank

import (
	"github.com/shopspring/decimal"
)

// emiPrecision bounds the digits kept while compounding.
const emiPrecision = 30

var twelve = decimal.NewFromInt(12)

// CalculateLoanEMI returns the monthly instalment of an amortizing loan,
// rounded to cents:
//
//	EMI = P * r * (1+r)^n / ((1+r)^n - 1), r = rate/100/12, n = years*12
//
// A monthly rate that is zero at decimal precision is rejected rather than
// special-cased.
func (e *Engine) CalculateLoanEMI(principal, annualRate decimal.Decimal, years int) (decimal.Decimal, error) {
	return CalculateLoanEMI(principal, annualRate, years)
}

// CalculateLoanEMI is the session-free form of Engine.CalculateLoanEMI.
func CalculateLoanEMI(principal, annualRate decimal.Decimal, years int) (decimal.Decimal, error) {
	if !principal.IsPositive() || !annualRate.IsPositive() || years <= 0 {
		return decimal.Decimal{}, invalid("Principal, rate, and years must be positive values.")
	}
	monthly := annualRate.Div(hundred).Div(twelve)
	if monthly.IsZero() {
		return decimal.Decimal{}, invalid("Interest rate is too small to calculate an EMI.")
	}

	growth := pow(decimal.NewFromInt(1).Add(monthly), int64(years)*12)
	denom := growth.Sub(decimal.NewFromInt(1))
	if denom.IsZero() {
		return decimal.Decimal{}, invalid("Interest rate is too small to calculate an EMI.")
	}
	return principal.Mul(monthly).Mul(growth).Div(denom).Round(2), nil
}

// pow raises base to a non-negative integer power by squaring, rounding each
// step to emiPrecision places.
func pow(base decimal.Decimal, n int64) decimal.Decimal {
	result := decimal.NewFromInt(1)
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(emiPrecision)
		}
		base = base.Mul(base).Round(emiPrecision)
		n >>= 1
	}
	return result
}
