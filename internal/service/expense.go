package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/smartspendr/bfa-go/internal/appstate"
	"github.com/smartspendr/bfa-go/internal/domain"
	"github.com/smartspendr/bfa-go/internal/infra/observability"
	"github.com/smartspendr/bfa-go/internal/offline"
	"github.com/smartspendr/bfa-go/internal/port"
)

var tracer = otel.Tracer("service")

// MutationResult reports how a write landed: directly in the store, or
// captured by the sync queue because the store was unreachable.
type MutationResult struct {
	ID     string `json:"id"`
	Queued bool   `json:"queued"`
}

// ExpenseService owns expense validation and CRUD. Writes go to the
// document store; when the store is unreachable they are captured by the
// sync queue instead of failing, mirroring what the offline UI promises.
type ExpenseService struct {
	store   port.ExpenseStore
	queue   *offline.SyncQueue
	state   *appstate.Store
	cache   port.Cache[[]domain.Expense]
	reports port.Cache[*domain.Report]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewExpenseService creates the expense service with all dependencies
// injected. The reports cache is shared with the report service so every
// mutation can drop the user's derived views alongside the expense list.
func NewExpenseService(
	store port.ExpenseStore,
	queue *offline.SyncQueue,
	state *appstate.Store,
	cache port.Cache[[]domain.Expense],
	reports port.Cache[*domain.Report],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ExpenseService {
	return &ExpenseService{
		store:   store,
		queue:   queue,
		state:   state,
		cache:   cache,
		reports: reports,
		metrics: metrics,
		logger:  logger,
	}
}

// ValidateExpense checks an expense input against the form rules. The
// first failing field wins.
func ValidateExpense(in *domain.ExpenseInput) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return &domain.ErrValidation{Field: "title", Message: "title is required"}
	}
	if len(title) > domain.MaxTitleLen {
		return &domain.ErrValidation{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", domain.MaxTitleLen)}
	}
	if in.Amount <= 0 {
		return &domain.ErrValidation{Field: "amount", Message: "amount must be greater than zero"}
	}
	if in.Amount > domain.MaxAmount {
		return &domain.ErrValidation{Field: "amount", Message: fmt.Sprintf("amount must be at most %d", domain.MaxAmount)}
	}
	if !in.Category.Valid() {
		return &domain.ErrValidation{Field: "category", Message: fmt.Sprintf("unknown category %q", in.Category)}
	}
	if in.Date == "" {
		return &domain.ErrValidation{Field: "date", Message: "date is required"}
	}
	if _, err := time.Parse("2006-01-02", in.Date); err != nil {
		return &domain.ErrValidation{Field: "date", Message: "date must be YYYY-MM-DD"}
	}
	return nil
}

// List returns the user's expenses, newest first. Results are cached per
// user; if the store is down, the last published snapshot is served so
// the app keeps working offline.
func (s *ExpenseService) List(ctx context.Context, userID string) ([]domain.Expense, error) {
	ctx, span := tracer.Start(ctx, "ExpenseService.List")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	cacheKey := expensesKey(userID)
	if cached, ok := s.cache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("expenses")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("expenses")

	expenses, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		if snap, ok := s.state.Snapshot(userID); ok && storeUnreachable(err) {
			s.logger.Warn("store unreachable, serving last known expenses",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			s.markOffline()
			return snap.Expenses, nil
		}
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	s.cache.Set(cacheKey, expenses)
	s.state.PublishExpenses(userID, expenses)
	s.markOnline()
	return expenses, nil
}

// Add validates and creates one expense. An unreachable store queues the
// mutation instead of failing.
func (s *ExpenseService) Add(ctx context.Context, userID string, in *domain.ExpenseInput) (*MutationResult, error) {
	ctx, span := tracer.Start(ctx, "ExpenseService.Add")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("expense_add", time.Since(start))
	}()

	if err := ValidateExpense(in); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)

	id, err := s.store.AddExpense(ctx, userID, in)
	if err != nil {
		if !storeUnreachable(err) {
			return nil, fmt.Errorf("add expense: %w", err)
		}
		clientID, qErr := s.queue.QueueAdd(ctx, userID, in)
		if qErr != nil {
			return nil, fmt.Errorf("add expense: store down and queue failed: %w", qErr)
		}
		s.markOffline()
		s.invalidate(userID)
		return &MutationResult{ID: clientID, Queued: true}, nil
	}

	s.markOnline()
	s.invalidate(userID)
	return &MutationResult{ID: id}, nil
}

// Update validates and rewrites one expense.
func (s *ExpenseService) Update(ctx context.Context, userID, expenseID string, in *domain.ExpenseInput) (*MutationResult, error) {
	ctx, span := tracer.Start(ctx, "ExpenseService.Update")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("expense.id", expenseID),
	)

	if err := ValidateExpense(in); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)

	if err := s.store.UpdateExpense(ctx, userID, expenseID, in); err != nil {
		if !storeUnreachable(err) {
			return nil, fmt.Errorf("update expense: %w", err)
		}
		clientID, qErr := s.queue.QueueUpdate(ctx, userID, expenseID, in)
		if qErr != nil {
			return nil, fmt.Errorf("update expense: store down and queue failed: %w", qErr)
		}
		s.markOffline()
		s.invalidate(userID)
		return &MutationResult{ID: clientID, Queued: true}, nil
	}

	s.markOnline()
	s.invalidate(userID)
	return &MutationResult{ID: expenseID}, nil
}

// Delete removes one expense.
func (s *ExpenseService) Delete(ctx context.Context, userID, expenseID string) (*MutationResult, error) {
	ctx, span := tracer.Start(ctx, "ExpenseService.Delete")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("expense.id", expenseID),
	)

	if err := s.store.DeleteExpense(ctx, userID, expenseID); err != nil {
		if !storeUnreachable(err) {
			return nil, fmt.Errorf("delete expense: %w", err)
		}
		clientID, qErr := s.queue.QueueDelete(ctx, userID, expenseID)
		if qErr != nil {
			return nil, fmt.Errorf("delete expense: store down and queue failed: %w", qErr)
		}
		s.markOffline()
		s.invalidate(userID)
		return &MutationResult{ID: clientID, Queued: true}, nil
	}

	s.markOnline()
	s.invalidate(userID)
	return &MutationResult{ID: expenseID}, nil
}

// Budgets returns the user's per-category budget preferences.
func (s *ExpenseService) Budgets(ctx context.Context, userID string) ([]domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "ExpenseService.Budgets")
	defer span.End()

	budgets, err := s.store.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

// SetBudget upserts one per-category budget preference.
func (s *ExpenseService) SetBudget(ctx context.Context, userID string, category domain.Category, amount float64) error {
	ctx, span := tracer.Start(ctx, "ExpenseService.SetBudget")
	defer span.End()

	if !category.Valid() {
		return &domain.ErrValidation{Field: "category", Message: fmt.Sprintf("unknown category %q", category)}
	}
	if amount < 0 {
		return &domain.ErrValidation{Field: "amount", Message: "budget must not be negative"}
	}
	if err := s.store.UpdateBudget(ctx, userID, category, amount); err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return nil
}

// invalidate drops every cached view derived from the user's expenses.
// Queued mutations invalidate too: the list the client sees next must not
// contradict what it was just promised.
func (s *ExpenseService) invalidate(userID string) {
	s.cache.Delete(expensesKey(userID))
	s.reports.DeletePrefix(reportPrefix(userID))
}

func (s *ExpenseService) markOnline() {
	if !s.state.Online() {
		s.state.SetOnline(true)
		// Connectivity is back; drain whatever piled up while offline.
		s.queue.Kick()
	}
}

func (s *ExpenseService) markOffline() {
	s.state.SetOnline(false)
}

func expensesKey(userID string) string {
	return "expenses:" + userID
}

// storeUnreachable reports whether the error means the store could not be
// reached at all, as opposed to rejecting the request.
func storeUnreachable(err error) bool {
	var se *domain.ErrStore
	var open *domain.ErrCircuitOpen
	return errors.As(err, &se) || errors.As(err, &open)
}
