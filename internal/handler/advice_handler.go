package handler

import (
	"encoding/json"
	"net/http"

	"github.com/smartspendr/bfa-go/internal/domain"
	"github.com/smartspendr/bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Advice — POST /v1/advice
// ============================================================

func adviceHandler(svc *service.AdviceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/advice")
		defer span.End()

		var req domain.AdviceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		uid := userID(r)
		span.SetAttributes(attribute.String("user.id", uid))

		// Advise never fails; agent outages surface as fallback answers.
		writeJSON(w, http.StatusOK, svc.Advise(ctx, uid, &req))
	}
}

// ============================================================
// Insights — GET /v1/insights
// ============================================================

func getInsightsHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/insights")
		defer span.End()

		insights, err := svc.Generate(ctx, userID(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, insights)
	}
}

// ============================================================
// Categories — GET /v1/categories
// ============================================================

func listCategoriesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"categories": domain.Categories()})
	}
}
