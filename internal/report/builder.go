package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smartspendr/bfa-go/internal/domain"
)

// Options narrows a report. An empty Category means all categories.
type Options struct {
	Category domain.Category
}

// Build produces a Report for records inside [start, end), optionally
// restricted to one category.
//
// The pipeline is fixed: category filter, then window filter, then totals,
// then per-category percentages, then ordering. Percentages are rounded to
// one decimal and forced to 0 when the window total is 0. CategoryTotals
// sort descending by total with ties broken by category value, so equal
// inputs always produce the same report.
func Build(records []domain.Expense, start, end time.Time, opts Options) (*domain.Report, error) {
	if end.Before(start) {
		return nil, &domain.ErrInvalidRange{
			Start: start.Format("2006-01-02"),
			End:   end.Format("2006-01-02"),
		}
	}

	filtered := records
	if opts.Category != "" {
		filtered = make([]domain.Expense, 0, len(records))
		for _, r := range records {
			if r.Category.Normalize() == opts.Category {
				filtered = append(filtered, r)
			}
		}
	}
	filtered = FilterByWindow(filtered, start, end)

	grand := sumDecimal(filtered)
	totals := make([]domain.CategoryTotal, 0, len(filtered))
	for cat, group := range GroupByCategory(filtered) {
		sum := sumDecimal(group)
		pct := decimal.Zero
		if grand.Sign() > 0 {
			pct = sum.Div(grand).Mul(decimal.NewFromInt(100)).Round(1)
		}
		totalF, _ := sum.Float64()
		pctF, _ := pct.Float64()
		totals = append(totals, domain.CategoryTotal{
			Category:   cat,
			Total:      totalF,
			Count:      len(group),
			Percentage: pctF,
		})
	}

	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Total != totals[j].Total {
			return totals[i].Total > totals[j].Total
		}
		return totals[i].Category < totals[j].Category
	})

	grandF, _ := grand.Float64()
	return &domain.Report{
		TotalAmount:    grandF,
		TotalExpenses:  len(filtered),
		CategoryTotals: totals,
		DailyAverage:   DailyAverage(filtered, WholeDays(start, end)),
	}, nil
}

// BuildWindow is Build for a named relative window ending at now, using
// (start, now] semantics for the record filter.
func BuildWindow(records []domain.Expense, w Window, now time.Time, opts Options) (*domain.Report, error) {
	filtered := FilterLastWindow(records, w, now)
	start, bounded := w.Start(now)
	if !bounded {
		// All-time report: derive the span from the records themselves.
		start = now
		for _, r := range filtered {
			if r.Date.Before(start) {
				start = r.Date
			}
		}
	}
	// The relative filter already applied (start, now]; Build's [start, end)
	// window must not re-trim, so pass a boundary just past now.
	return Build(filtered, start, now.Add(time.Nanosecond), opts)
}

// MonthlySeries returns per-month spending totals for the trailing months
// window, oldest first, including months with no records.
func MonthlySeries(records []domain.Expense, now time.Time, months int) []domain.MonthlyTrend {
	if months <= 0 {
		return []domain.MonthlyTrend{}
	}
	byMonth := make(map[string]decimal.Decimal)
	for _, r := range records {
		k := r.Date.Format("2006-01")
		byMonth[k] = byMonth[k].Add(decimal.NewFromFloat(r.Amount))
	}

	out := make([]domain.MonthlyTrend, 0, months)
	for i := months - 1; i >= 0; i-- {
		m := addMonthsClamped(now, -i)
		key := m.Format("2006-01")
		total, _ := byMonth[key].Float64()
		out = append(out, domain.MonthlyTrend{
			Month: key,
			Label: m.Format("Jan"),
			Total: total,
		})
	}
	return out
}
