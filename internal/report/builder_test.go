package report_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/smartspendr/bfa-go/internal/domain"
	"github.com/smartspendr/bfa-go/internal/report"
)

func TestBuild_InvalidRange(t *testing.T) {
	_, err := report.Build(nil, day("2024-02-01"), day("2024-01-01"), report.Options{})

	var invalid *domain.ErrInvalidRange
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestBuild_Empty(t *testing.T) {
	rep, err := report.Build(nil, day("2024-01-01"), day("2024-02-01"), report.Options{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rep.TotalAmount != 0 || rep.TotalExpenses != 0 || rep.DailyAverage != 0 {
		t.Errorf("empty report should be all zeros, got %+v", rep)
	}
	if rep.CategoryTotals == nil || len(rep.CategoryTotals) != 0 {
		t.Errorf("empty report should have an empty (not nil) category list, got %v", rep.CategoryTotals)
	}
}

func TestBuild_TotalsAndPercentages(t *testing.T) {
	records := []domain.Expense{
		{Date: day("2024-01-05"), Amount: 60, Category: domain.CategoryFood},
		{Date: day("2024-01-10"), Amount: 30, Category: domain.CategoryTransport},
		{Date: day("2024-01-20"), Amount: 10, Category: domain.CategoryFood},
	}

	rep, err := report.Build(records, day("2024-01-01"), day("2024-02-01"), report.Options{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rep.TotalAmount != 100 {
		t.Errorf("totalAmount = %v, want 100", rep.TotalAmount)
	}
	if rep.TotalExpenses != 3 {
		t.Errorf("totalExpenses = %d, want 3", rep.TotalExpenses)
	}

	if len(rep.CategoryTotals) != 2 {
		t.Fatalf("expected 2 category rows, got %d", len(rep.CategoryTotals))
	}
	food := rep.CategoryTotals[0]
	if food.Category != domain.CategoryFood || food.Total != 70 || food.Count != 2 || food.Percentage != 70.0 {
		t.Errorf("food row wrong: %+v", food)
	}
	transport := rep.CategoryTotals[1]
	if transport.Category != domain.CategoryTransport || transport.Percentage != 30.0 {
		t.Errorf("transport row wrong: %+v", transport)
	}

	// January has 31 days.
	if math.Abs(rep.DailyAverage-100.0/31.0) > 1e-9 {
		t.Errorf("dailyAverage = %v, want %v", rep.DailyAverage, 100.0/31.0)
	}
}

func TestBuild_CategoryFilter(t *testing.T) {
	records := []domain.Expense{
		{Date: day("2024-01-05"), Amount: 60, Category: domain.CategoryFood},
		{Date: day("2024-01-10"), Amount: 30, Category: domain.CategoryTransport},
	}

	rep, err := report.Build(records, day("2024-01-01"), day("2024-02-01"),
		report.Options{Category: domain.CategoryTransport})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rep.TotalAmount != 30 || rep.TotalExpenses != 1 {
		t.Errorf("filtered report wrong: %+v", rep)
	}
	if len(rep.CategoryTotals) != 1 || rep.CategoryTotals[0].Percentage != 100.0 {
		t.Errorf("single-category report should be 100%%, got %+v", rep.CategoryTotals)
	}
}

func TestBuild_DeterministicTieBreak(t *testing.T) {
	records := []domain.Expense{
		{Date: day("2024-01-05"), Amount: 25, Category: domain.CategoryTravel},
		{Date: day("2024-01-06"), Amount: 25, Category: domain.CategoryBills},
		{Date: day("2024-01-07"), Amount: 25, Category: domain.CategoryShopping},
	}

	rep, err := report.Build(records, day("2024-01-01"), day("2024-02-01"), report.Options{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []domain.Category{domain.CategoryBills, domain.CategoryShopping, domain.CategoryTravel}
	for i, ct := range rep.CategoryTotals {
		if ct.Category != want[i] {
			t.Errorf("position %d = %s, want %s (lexicographic tie-break)", i, ct.Category, want[i])
		}
	}
}

func TestBuild_Invariants(t *testing.T) {
	// Randomized record sets: category totals must add up to the grand
	// total and percentages must land near 100.
	rng := rand.New(rand.NewSource(42))
	cats := domain.Categories()

	for trial := 0; trial < 20; trial++ {
		n := rng.Intn(200) + 1
		records := make([]domain.Expense, n)
		for i := range records {
			records[i] = domain.Expense{
				Date:     day("2024-01-01").AddDate(0, 0, rng.Intn(28)),
				Amount:   float64(rng.Intn(100000)+1) / 100,
				Category: cats[rng.Intn(len(cats))].Value,
			}
		}

		rep, err := report.Build(records, day("2024-01-01"), day("2024-02-01"), report.Options{})
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}

		var sumTotals, sumPct float64
		for _, ct := range rep.CategoryTotals {
			sumTotals += ct.Total
			sumPct += ct.Percentage
		}
		if math.Abs(sumTotals-rep.TotalAmount) > 1e-6 {
			t.Errorf("trial %d: category totals %v != totalAmount %v", trial, sumTotals, rep.TotalAmount)
		}
		if rep.TotalAmount > 0 && math.Abs(sumPct-100) > 0.5 {
			t.Errorf("trial %d: percentages sum to %v, want ~100", trial, sumPct)
		}
	}
}

func TestBuildWindow_LastMonth(t *testing.T) {
	records := []domain.Expense{
		{Date: day("2024-01-15"), Amount: 10, Category: domain.CategoryFood},
		{Date: day("2024-02-15"), Amount: 20, Category: domain.CategoryTransport},
	}

	rep, err := report.BuildWindow(records, report.WindowMonth, day("2024-02-20"), report.Options{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rep.TotalAmount != 20 || rep.TotalExpenses != 1 {
		t.Errorf("last-month report wrong: %+v", rep)
	}
	if len(rep.CategoryTotals) != 1 {
		t.Fatalf("expected one category row, got %+v", rep.CategoryTotals)
	}
	row := rep.CategoryTotals[0]
	if row.Category != domain.CategoryTransport || row.Total != 20 || row.Count != 1 || row.Percentage != 100.0 {
		t.Errorf("transport row wrong: %+v", row)
	}
}

func TestBuildWindow_ZeroTotalPercentages(t *testing.T) {
	records := []domain.Expense{
		{Date: day("2024-02-15"), Amount: 0, Category: domain.CategoryFood},
	}

	rep, err := report.BuildWindow(records, report.WindowMonth, day("2024-02-20"), report.Options{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, ct := range rep.CategoryTotals {
		if ct.Percentage != 0 {
			t.Errorf("zero-total report must force percentage 0, got %v", ct.Percentage)
		}
	}
}

func TestMonthlySeries(t *testing.T) {
	records := []domain.Expense{
		{Date: day("2024-03-10"), Amount: 15},
		{Date: day("2024-03-20"), Amount: 5},
		{Date: day("2024-01-02"), Amount: 7},
	}

	series := report.MonthlySeries(records, day("2024-03-31"), 3)
	if len(series) != 3 {
		t.Fatalf("expected 3 months, got %d", len(series))
	}
	if series[0].Month != "2024-01" || series[0].Total != 7 {
		t.Errorf("oldest month wrong: %+v", series[0])
	}
	if series[1].Month != "2024-02" || series[1].Total != 0 {
		t.Errorf("empty month should still appear: %+v", series[1])
	}
	if series[2].Month != "2024-03" || series[2].Total != 20 {
		t.Errorf("current month wrong: %+v", series[2])
	}
}
