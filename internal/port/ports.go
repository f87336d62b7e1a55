// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/smartspendr/bfa-go/internal/domain"
)

// ExpenseStore is the remote document-store boundary for expense and
// budget records. All failures surface as *domain.ErrStore; a failed
// write must not be assumed to have partially succeeded.
type ExpenseStore interface {
	ListExpenses(ctx context.Context, userID string) ([]domain.Expense, error)
	AddExpense(ctx context.Context, userID string, in *domain.ExpenseInput) (string, error)
	UpdateExpense(ctx context.Context, userID, expenseID string, in *domain.ExpenseInput) error
	DeleteExpense(ctx context.Context, userID, expenseID string) error

	ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error)
	UpdateBudget(ctx context.Context, userID string, category domain.Category, amount float64) error
}

// AdviceAgent invokes the remote advice-generation API.
type AdviceAgent interface {
	Advise(ctx context.Context, req *domain.AgentRequest) (*domain.AgentResponse, error)
}

// IdentityVerifier validates a provider-issued session token and returns
// the user it identifies.
type IdentityVerifier interface {
	VerifyToken(token string) (*domain.User, error)
}

// Cache provides generic in-process caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	DeletePrefix(prefix string)
}

// ResourceStore is the durable key-value store backing the resource cache
// controller. Entries are namespaced by cache generation; lookups that find
// nothing return *domain.ErrCacheMiss. Implementations must make Put and
// Match individually atomic; the controller never synchronizes through
// shared in-memory state.
type ResourceStore interface {
	Put(ctx context.Context, generation, key string, res domain.CachedResource) error
	Match(ctx context.Context, generation, key string) (domain.CachedResource, error)
	Generations(ctx context.Context) ([]string, error)
	DeleteGeneration(ctx context.Context, generation string) error
}

// MutationQueue is the durable queue of expense mutations captured while
// offline. Entries survive until acknowledged; Ack after a confirmed remote
// write gives at-least-once delivery.
type MutationQueue interface {
	Enqueue(ctx context.Context, m domain.QueuedMutation) error
	Pending(ctx context.Context) ([]domain.QueuedMutation, error)
	Ack(ctx context.Context, clientID string) error
}
