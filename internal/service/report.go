package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/smartspendr/bfa-go/internal/domain"
	"github.com/smartspendr/bfa-go/internal/infra/observability"
	"github.com/smartspendr/bfa-go/internal/port"
	"github.com/smartspendr/bfa-go/internal/report"
)

// ReportQuery selects what to report on. Either Window or the explicit
// Start/End pair is set; explicit dates win when both are present.
type ReportQuery struct {
	Window   report.Window
	Start    string // YYYY-MM-DD, inclusive
	End      string // YYYY-MM-DD, exclusive
	Category domain.Category
}

// ReportService builds reports, trend series and CSV exports from the
// user's expense records. Everything is derived on demand; built reports
// are memoized briefly per user and query.
type ReportService struct {
	expenses *ExpenseService
	cache    port.Cache[*domain.Report]
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportService creates the report service. The expense service is the
// record source so reports see the same offline fallbacks the list API does.
func NewReportService(
	expenses *ExpenseService,
	cache port.Cache[*domain.Report],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		expenses: expenses,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Build produces a report for one user and query.
func (s *ReportService) Build(ctx context.Context, userID string, q ReportQuery) (*domain.Report, error) {
	ctx, span := tracer.Start(ctx, "ReportService.Build")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("report.window", string(q.Window)),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("report_build", time.Since(start))
	}()

	cacheKey := reportKey(userID, q)
	if cached, ok := s.cache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("report")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("report")

	records, err := s.expenses.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	var rep *domain.Report
	if q.Start != "" || q.End != "" {
		from, to, err := parseRange(q.Start, q.End, s.now())
		if err != nil {
			return nil, err
		}
		rep, err = report.Build(records, from, to, report.Options{Category: q.Category})
		if err != nil {
			return nil, err
		}
	} else {
		w := q.Window
		if w == "" {
			w = report.WindowMonth
		}
		if !w.Valid() {
			return nil, &domain.ErrValidation{Field: "window", Message: fmt.Sprintf("unknown window %q", w)}
		}
		rep, err = report.BuildWindow(records, w, s.now(), report.Options{Category: q.Category})
		if err != nil {
			return nil, err
		}
	}

	s.cache.Set(cacheKey, rep)
	return rep, nil
}

// Trend returns the trailing monthly spending series for the line chart.
func (s *ReportService) Trend(ctx context.Context, userID string, months int) ([]domain.MonthlyTrend, error) {
	ctx, span := tracer.Start(ctx, "ReportService.Trend")
	defer span.End()

	if months <= 0 {
		months = 12
	}
	records, err := s.expenses.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return report.MonthlySeries(records, s.now(), months), nil
}

// ExportCSV writes every expense of the user as CSV.
func (s *ReportService) ExportCSV(ctx context.Context, userID string, w io.Writer) error {
	ctx, span := tracer.Start(ctx, "ReportService.ExportCSV")
	defer span.End()

	records, err := s.expenses.List(ctx, userID)
	if err != nil {
		return err
	}
	return report.WriteCSV(w, records)
}

func reportKey(userID string, q ReportQuery) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", reportPrefix(userID), q.Window, q.Start, q.End, q.Category)
}

// reportPrefix covers every cached report for one user, whatever the query.
func reportPrefix(userID string) string {
	return "report:" + userID + ":"
}

// parseRange turns optional YYYY-MM-DD bounds into a [start, end) pair.
// A missing start means "from the beginning"; a missing end means "up to
// and including today".
func parseRange(startStr, endStr string, now time.Time) (time.Time, time.Time, error) {
	start := time.Time{}
	if startStr != "" {
		t, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, &domain.ErrValidation{Field: "start", Message: "start must be YYYY-MM-DD"}
		}
		start = t
	}

	end := now.AddDate(0, 0, 1).Truncate(24 * time.Hour)
	if endStr != "" {
		t, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, &domain.ErrValidation{Field: "end", Message: "end must be YYYY-MM-DD"}
		}
		end = t
	}
	return start, end, nil
}
