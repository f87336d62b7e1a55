package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/smartspendr/bfa-go/internal/domain"
	"github.com/smartspendr/bfa-go/internal/report"
	"github.com/smartspendr/bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Expenses — /v1/expenses
// ============================================================

func listExpensesHandler(svc *service.ExpenseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/expenses")
		defer span.End()

		uid := userID(r)
		span.SetAttributes(attribute.String("user.id", uid))

		expenses, err := svc.List(ctx, uid)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		// Filter by category if provided, e.g. ?category=food
		if catFilter := r.URL.Query().Get("category"); catFilter != "" {
			cat := domain.Category(catFilter).Normalize()
			filtered := make([]domain.Expense, 0, len(expenses))
			for _, e := range expenses {
				if e.Category.Normalize() == cat {
					filtered = append(filtered, e)
				}
			}
			expenses = filtered
		}

		if limit := parseLimit(r); limit > 0 && limit < len(expenses) {
			expenses = expenses[:limit]
		}

		// The list view shows relative dates ("Today", "Yesterday"), so
		// each record carries its display label alongside the raw date.
		now := time.Now()
		items := make([]expenseItem, 0, len(expenses))
		for _, e := range expenses {
			items = append(items, expenseItem{
				Expense:   e,
				DateLabel: report.RelativeDateLabel(e.Date, now),
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{"expenses": items})
	}
}

type expenseItem struct {
	domain.Expense
	DateLabel string `json:"dateLabel"`
}

func addExpenseHandler(svc *service.ExpenseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/expenses")
		defer span.End()

		var in domain.ExpenseInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := svc.Add(ctx, userID(r), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, mutationStatus(result, http.StatusCreated), result)
	}
}

func updateExpenseHandler(svc *service.ExpenseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/expenses/{expenseId}")
		defer span.End()

		expenseID := chi.URLParam(r, "expenseId")
		if expenseID == "" {
			writeError(w, http.StatusBadRequest, "expenseId is required")
			return
		}

		var in domain.ExpenseInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := svc.Update(ctx, userID(r), expenseID, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, mutationStatus(result, http.StatusOK), result)
	}
}

func deleteExpenseHandler(svc *service.ExpenseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/expenses/{expenseId}")
		defer span.End()

		expenseID := chi.URLParam(r, "expenseId")
		if expenseID == "" {
			writeError(w, http.StatusBadRequest, "expenseId is required")
			return
		}

		result, err := svc.Delete(ctx, userID(r), expenseID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if result.Queued {
			writeJSON(w, http.StatusAccepted, result)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// mutationStatus picks the response status for a write: the given success
// status when the store accepted it, 202 when it was captured offline.
func mutationStatus(result *service.MutationResult, ok int) int {
	if result.Queued {
		return http.StatusAccepted
	}
	return ok
}

// ============================================================
// Budgets — /v1/budgets
// ============================================================

func listBudgetsHandler(svc *service.ExpenseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budgets")
		defer span.End()

		budgets, err := svc.Budgets(ctx, userID(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if budgets == nil {
			budgets = []domain.Budget{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"budgets": budgets})
	}
}

func setBudgetHandler(svc *service.ExpenseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/budgets/{category}")
		defer span.End()

		category := domain.Category(chi.URLParam(r, "category"))

		var body struct {
			Amount float64 `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := svc.SetBudget(ctx, userID(r), category, body.Amount); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
