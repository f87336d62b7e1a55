package service_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/smartspendr/bfa-go/internal/appstate"
	"github.com/smartspendr/bfa-go/internal/domain"
	"github.com/smartspendr/bfa-go/internal/infra/cache"
	"github.com/smartspendr/bfa-go/internal/infra/kvstore"
	"github.com/smartspendr/bfa-go/internal/infra/observability"
	"github.com/smartspendr/bfa-go/internal/offline"
	"github.com/smartspendr/bfa-go/internal/report"
	"github.com/smartspendr/bfa-go/internal/service"
)

func newReportFixture(expenses []domain.Expense) (*service.ReportService, *mockExpenseStore) {
	store := &mockExpenseStore{expenses: expenses}
	metrics := observability.NewMetrics()
	sq := offline.NewSyncQueue(kvstore.NewMemoryStore(), store, metrics, zap.NewNop())
	repCache := cache.New[*domain.Report](time.Minute)
	es := service.NewExpenseService(store, sq, appstate.NewStore(), cache.New[[]domain.Expense](time.Minute), repCache, metrics, zap.NewNop())
	rs := service.NewReportService(es, repCache, metrics, zap.NewNop())
	return rs, store
}

func reportRecords() []domain.Expense {
	day := func(d string) time.Time {
		t, _ := time.Parse("2006-01-02", d)
		return t
	}
	return []domain.Expense{
		{ID: "e1", Title: "Groceries", Amount: 60, Category: domain.CategoryFood, Date: day("2024-06-10")},
		{ID: "e2", Title: "Fuel", Amount: 30, Category: domain.CategoryTransport, Date: day("2024-06-05")},
		{ID: "e3", Title: "Old rent", Amount: 900, Category: domain.CategoryBills, Date: day("2023-01-15")},
	}
}

func TestBuild_ExplicitRange(t *testing.T) {
	rs, _ := newReportFixture(reportRecords())

	rep, err := rs.Build(context.Background(), "u1", service.ReportQuery{
		Start: "2024-06-01",
		End:   "2024-07-01",
	})
	if err != nil {
		t.Fatal(err)
	}
	if rep.TotalExpenses != 2 || rep.TotalAmount != 90 {
		t.Errorf("report = %+v", rep)
	}
}

func TestBuild_DefaultsToMonthWindow(t *testing.T) {
	rs, _ := newReportFixture(reportRecords())

	// The window is relative to the current clock, so only verify the
	// old record is excluded and the call succeeds with no explicit query.
	rep, err := rs.Build(context.Background(), "u1", service.ReportQuery{})
	if err != nil {
		t.Fatal(err)
	}
	for _, ct := range rep.CategoryTotals {
		if ct.Category == domain.CategoryBills {
			t.Errorf("year-old record leaked into the default month window: %+v", rep)
		}
	}
}

func TestBuild_RejectsUnknownWindow(t *testing.T) {
	rs, _ := newReportFixture(nil)

	_, err := rs.Build(context.Background(), "u1", service.ReportQuery{Window: report.Window("decade")})
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Fatalf("got %v, want validation error", err)
	}
}

func TestBuild_RejectsBadDates(t *testing.T) {
	rs, _ := newReportFixture(nil)

	_, err := rs.Build(context.Background(), "u1", service.ReportQuery{Start: "June 1st"})
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Fatalf("got %v, want validation error", err)
	}

	_, err = rs.Build(context.Background(), "u1", service.ReportQuery{Start: "2024-06-10", End: "2024-06-01"})
	var ir *domain.ErrInvalidRange
	if !errors.As(err, &ir) {
		t.Fatalf("got %v, want invalid range", err)
	}
}

func TestBuild_MemoizesPerQuery(t *testing.T) {
	rs, store := newReportFixture(reportRecords())

	q := service.ReportQuery{Start: "2024-06-01", End: "2024-07-01"}
	for i := 0; i < 3; i++ {
		if _, err := rs.Build(context.Background(), "u1", q); err != nil {
			t.Fatal(err)
		}
	}
	if store.listCalls != 1 {
		t.Errorf("store saw %d list calls, want 1", store.listCalls)
	}
}

func TestBuild_RefreshesAfterMutation(t *testing.T) {
	store := &mockExpenseStore{expenses: reportRecords()}
	metrics := observability.NewMetrics()
	sq := offline.NewSyncQueue(kvstore.NewMemoryStore(), store, metrics, zap.NewNop())
	expCache := cache.New[[]domain.Expense](time.Minute)
	repCache := cache.New[*domain.Report](time.Minute)
	es := service.NewExpenseService(store, sq, appstate.NewStore(), expCache, repCache, metrics, zap.NewNop())
	rs := service.NewReportService(es, repCache, metrics, zap.NewNop())

	q := service.ReportQuery{Start: "2024-06-01", End: "2024-07-01"}
	rep, err := rs.Build(context.Background(), "u1", q)
	if err != nil {
		t.Fatal(err)
	}
	if rep.TotalExpenses != 2 || rep.TotalAmount != 90 {
		t.Fatalf("report before mutation = %+v", rep)
	}

	if _, err := es.Add(context.Background(), "u1", &domain.ExpenseInput{
		Title:    "Cinema",
		Amount:   10,
		Category: domain.CategoryEntertainment,
		Date:     "2024-06-20",
	}); err != nil {
		t.Fatal(err)
	}

	// Both cache TTLs are still live, so the write itself must have
	// dropped the memoized report.
	rep, err = rs.Build(context.Background(), "u1", q)
	if err != nil {
		t.Fatal(err)
	}
	if rep.TotalExpenses != 3 || rep.TotalAmount != 100 {
		t.Errorf("report after mutation = %+v", rep)
	}
}

func TestTrend_TrailingMonths(t *testing.T) {
	rs, _ := newReportFixture(reportRecords())

	trend, err := rs.Trend(context.Background(), "u1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(trend) != 3 {
		t.Fatalf("got %d months", len(trend))
	}
	if trend[0].Month >= trend[2].Month {
		t.Errorf("trend not oldest-first: %+v", trend)
	}
}

func TestExportCSV(t *testing.T) {
	rs, _ := newReportFixture(reportRecords())

	var buf bytes.Buffer
	if err := rs.ExportCSV(context.Background(), "u1", &buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	if lines[0] != `"Date","Title","Category","Amount","Notes"` {
		t.Errorf("header = %s", lines[0])
	}
	if !strings.Contains(lines[1], `"Groceries"`) {
		t.Errorf("first row = %s", lines[1])
	}
}
