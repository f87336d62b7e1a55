package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/smartspendr/bfa-go/internal/domain"
	"github.com/smartspendr/bfa-go/internal/report"
	"github.com/smartspendr/bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Reports — /v1/reports
// ============================================================

func getReportHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports")
		defer span.End()

		q := service.ReportQuery{
			Window:   report.Window(r.URL.Query().Get("window")),
			Start:    r.URL.Query().Get("start"),
			End:      r.URL.Query().Get("end"),
			Category: domain.Category(r.URL.Query().Get("category")),
		}
		span.SetAttributes(attribute.String("report.window", string(q.Window)))

		rep, err := svc.Build(ctx, userID(r), q)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

func getTrendHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/trend")
		defer span.End()

		months := 0
		if v := r.URL.Query().Get("months"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				months = n
			}
		}

		trend, err := svc.Trend(ctx, userID(r), months)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"trend": trend})
	}
}

// exportReportHandler streams the user's full expense history as CSV.
// The export is buffered so a mid-export store failure still produces a
// clean error response instead of a truncated file.
func exportReportHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/export.csv")
		defer span.End()

		var buf bytes.Buffer
		if err := svc.ExportCSV(ctx, userID(r), &buf); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="expenses.csv"`)
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}
