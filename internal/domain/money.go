package domain

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of fractional digits kept for amounts and percentages.
const MoneyPlaces = 2

var (
	// Cent is the smallest representable unit and the equality tolerance.
	Cent = decimal.New(1, -MoneyPlaces)
	// Hundred is the percentage base.
	Hundred = decimal.NewFromInt(100)
)

// RoundMoney rounds half away from zero to two decimal places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// MoneyEqual reports whether a and b differ by at most one cent.
func MoneyEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Cent)
}

// PercentageOf returns pct percent of amount, rounded to cents.
func PercentageOf(amount, pct decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(pct).Div(Hundred))
}

// PercentageShare returns the share part represents of total, in percent.
func PercentageShare(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return RoundMoney(part.Div(total).Mul(Hundred))
}

// SumMoney adds amounts exactly.
func SumMoney(amounts ...decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(a)
	}
	return sum
}
