package handler

import (
	"net/http"
	"time"

	"github.com/smartspendr/bfa-go/internal/infra/observability"
	"github.com/smartspendr/bfa-go/internal/offline"
	"github.com/smartspendr/bfa-go/internal/port"
	"github.com/smartspendr/bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles the application services the router exposes.
type Services struct {
	Expenses *service.ExpenseService
	Reports  *service.ReportService
	Advice   *service.AdviceService
	Insights *service.InsightsService
}

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract defined for the SmartSpendr frontend.
func NewRouter(svcs Services, verifier port.IdentityVerifier, ctrl *offline.Controller, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(requestMetricsMiddleware(metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(ctrl))
	r.Get("/readyz", readyzHandler(ctrl))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- Cached app shell ---
	if ctrl != nil {
		r.Get("/app/*", assetHandler(ctrl, logger))
	}

	// --- API v1 (session protected) ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(SessionMiddleware(verifier, logger))

		r.Get("/expenses", listExpensesHandler(svcs.Expenses, logger))
		r.Post("/expenses", addExpenseHandler(svcs.Expenses, logger))
		r.Put("/expenses/{expenseId}", updateExpenseHandler(svcs.Expenses, logger))
		r.Delete("/expenses/{expenseId}", deleteExpenseHandler(svcs.Expenses, logger))

		r.Get("/budgets", listBudgetsHandler(svcs.Expenses, logger))
		r.Put("/budgets/{category}", setBudgetHandler(svcs.Expenses, logger))

		r.Get("/reports", getReportHandler(svcs.Reports, logger))
		r.Get("/reports/trend", getTrendHandler(svcs.Reports, logger))
		r.Get("/reports/export.csv", exportReportHandler(svcs.Reports, logger))

		r.Get("/insights", getInsightsHandler(svcs.Insights, logger))
		r.Get("/categories", listCategoriesHandler())
		r.Post("/advice", adviceHandler(svcs.Advice, logger))

		r.Get("/status", opsStatusHandler(metrics))
	})

	return r
}

// requestMetricsMiddleware feeds the request counters that back /v1/status.
// The route pattern, not the raw path, labels the duration histogram so
// per-user URLs do not explode series cardinality.
func requestMetricsMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = "unmatched"
			}
			outcome := "success"
			if ww.Status() >= http.StatusInternalServerError {
				outcome = "error"
			}
			metrics.IncrRequest(outcome)
			metrics.RecordRequestDuration(r.Method+" "+pattern, time.Since(start))
		})
	}
}

func healthzHandler(ctrl *offline.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"status": "healthy"}
		if ctrl != nil {
			resp["cache_generation"] = ctrl.Generation()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// readyzHandler reports ready only once the resource cache controller has
// activated; load balancers hold traffic until the shell is servable offline.
func readyzHandler(ctrl *offline.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctrl != nil && !ctrl.Ready() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "installing"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func opsStatusHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetOpsSnapshot())
	}
}
