package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/smartspendr/bfa-go/internal/domain"
	"github.com/smartspendr/bfa-go/internal/infra/resilience"
)

// expenseDoc maps document-store fields to our domain.
type expenseDoc struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Amount    float64 `json:"amount"`
	Category  string  `json:"category"`
	Date      string  `json:"date"`
	Notes     string  `json:"notes,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

type budgetDoc struct {
	ID        string  `json:"id"`
	Category  string  `json:"category"`
	Amount    float64 `json:"amount"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

func expensesPath(userID string) string {
	return fmt.Sprintf("users/%s/expenses", userID)
}

func budgetsPath(userID string) string {
	return fmt.Sprintf("users/%s/budgets", userID)
}

// ListExpenses fetches every expense document for one user, newest first.
func (c *Client) ListExpenses(ctx context.Context, userID string) ([]domain.Expense, error) {
	ctx, span := tracer.Start(ctx, "Docstore.ListExpenses")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var expenses []domain.Expense
	err := c.execute(ctx, "list_expenses", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, expensesPath(userID)+"?order=date.desc", nil)
		if err != nil {
			return err
		}
		if body == nil {
			expenses = []domain.Expense{}
			return nil
		}

		var docs []expenseDoc
		if err := json.Unmarshal(body, &docs); err != nil {
			return resilience.Permanent(fmt.Errorf("decode expenses: %w", err))
		}

		expenses = make([]domain.Expense, 0, len(docs))
		for _, d := range docs {
			expenses = append(expenses, d.toDomain(userID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

// AddExpense creates one expense document and returns its store-assigned id.
func (c *Client) AddExpense(ctx context.Context, userID string, in *domain.ExpenseInput) (string, error) {
	ctx, span := tracer.Start(ctx, "Docstore.AddExpense")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var id string
	err := c.execute(ctx, "add_expense", func() error {
		body, err := c.doRequest(ctx, http.MethodPost, expensesPath(userID), inputDoc(in))
		if err != nil {
			return err
		}

		var created expenseDoc
		if err := json.Unmarshal(body, &created); err != nil {
			return resilience.Permanent(fmt.Errorf("decode created expense: %w", err))
		}
		if created.ID == "" {
			return resilience.Permanent(fmt.Errorf("store returned no id"))
		}
		id = created.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateExpense patches one expense document.
func (c *Client) UpdateExpense(ctx context.Context, userID, expenseID string, in *domain.ExpenseInput) error {
	ctx, span := tracer.Start(ctx, "Docstore.UpdateExpense")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("expense.id", expenseID),
	)

	return c.execute(ctx, "update_expense", func() error {
		path := fmt.Sprintf("%s/%s", expensesPath(userID), expenseID)
		_, err := c.doRequest(ctx, http.MethodPatch, path, inputDoc(in))
		return err
	})
}

// DeleteExpense removes one expense document.
func (c *Client) DeleteExpense(ctx context.Context, userID, expenseID string) error {
	ctx, span := tracer.Start(ctx, "Docstore.DeleteExpense")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("expense.id", expenseID),
	)

	return c.execute(ctx, "delete_expense", func() error {
		path := fmt.Sprintf("%s/%s", expensesPath(userID), expenseID)
		_, err := c.doRequest(ctx, http.MethodDelete, path, nil)
		return err
	})
}

// ListBudgets fetches the user's per-category budget preferences.
func (c *Client) ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "Docstore.ListBudgets")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var budgets []domain.Budget
	err := c.execute(ctx, "list_budgets", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, budgetsPath(userID), nil)
		if err != nil {
			return err
		}
		if body == nil {
			budgets = []domain.Budget{}
			return nil
		}

		var docs []budgetDoc
		if err := json.Unmarshal(body, &docs); err != nil {
			return resilience.Permanent(fmt.Errorf("decode budgets: %w", err))
		}

		budgets = make([]domain.Budget, 0, len(docs))
		for _, d := range docs {
			b := domain.Budget{
				ID:       d.ID,
				UserID:   userID,
				Category: domain.Category(d.Category).Normalize(),
				Amount:   d.Amount,
			}
			if ts, err := time.Parse(time.RFC3339, d.UpdatedAt); err == nil {
				b.UpdatedAt = ts
			}
			budgets = append(budgets, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return budgets, nil
}

// UpdateBudget upserts one per-category budget preference.
func (c *Client) UpdateBudget(ctx context.Context, userID string, category domain.Category, amount float64) error {
	ctx, span := tracer.Start(ctx, "Docstore.UpdateBudget")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("budget.category", string(category)),
	)

	return c.execute(ctx, "update_budget", func() error {
		path := fmt.Sprintf("%s/%s", budgetsPath(userID), category)
		_, err := c.doRequest(ctx, http.MethodPut, path, map[string]any{
			"category": string(category),
			"amount":   amount,
		})
		return err
	})
}

func inputDoc(in *domain.ExpenseInput) map[string]any {
	return map[string]any{
		"title":    in.Title,
		"amount":   in.Amount,
		"category": string(in.Category),
		"date":     in.Date,
		"notes":    in.Notes,
	}
}

func (d expenseDoc) toDomain(userID string) domain.Expense {
	e := domain.Expense{
		ID:       d.ID,
		UserID:   userID,
		Title:    d.Title,
		Amount:   d.Amount,
		Category: domain.Category(d.Category).Normalize(),
		Notes:    d.Notes,
	}
	if ts, err := time.Parse("2006-01-02", d.Date); err == nil {
		e.Date = ts
	} else if ts, err := time.Parse(time.RFC3339, d.Date); err == nil {
		e.Date = ts
	}
	if ts, err := time.Parse(time.RFC3339, d.CreatedAt); err == nil {
		e.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339, d.UpdatedAt); err == nil {
		e.UpdatedAt = ts
	}
	return e
}
