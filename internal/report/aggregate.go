package report

import (
	"github.com/shopspring/decimal"

	"github.com/smartspendr/bfa-go/internal/domain"
)

// GroupByCategory splits records per category, preserving input order within
// each group. Records with a missing or unknown category land in the
// CategoryOther bucket. Empty input yields an empty map.
func GroupByCategory(records []domain.Expense) map[domain.Category][]domain.Expense {
	groups := make(map[domain.Category][]domain.Expense)
	for _, r := range records {
		c := r.Category.Normalize()
		groups[c] = append(groups[c], r)
	}
	return groups
}

// SumAmounts totals the amounts of records. Accumulation happens in
// decimals so thousands of float64 amounts do not drift; empty input
// returns 0.
func SumAmounts(records []domain.Expense) float64 {
	sum := sumDecimal(records)
	f, _ := sum.Float64()
	return f
}

func sumDecimal(records []domain.Expense) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(decimal.NewFromFloat(r.Amount))
	}
	return sum
}

// DailyAverage returns the mean daily spend across windowDays. A window of
// zero or fewer days returns 0 rather than dividing by zero; the windowing
// helpers guarantee at least one day by construction.
func DailyAverage(records []domain.Expense, windowDays int) float64 {
	if windowDays <= 0 {
		return 0
	}
	avg := sumDecimal(records).Div(decimal.NewFromInt(int64(windowDays)))
	f, _ := avg.Float64()
	return f
}
