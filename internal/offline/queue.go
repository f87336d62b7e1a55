package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartspendr/bfa-go/internal/domain"
	"github.com/smartspendr/bfa-go/internal/infra/observability"
	"github.com/smartspendr/bfa-go/internal/port"
)

// SyncQueue captures expense mutations while the document store is
// unreachable and replays them once connectivity returns. Delivery is
// at-least-once: a mutation is acknowledged only after the remote write
// is confirmed, so a crash between write and ack redelivers it under the
// same client id.
type SyncQueue struct {
	queue   port.MutationQueue
	store   port.ExpenseStore
	metrics *observability.Metrics
	logger  *zap.Logger

	kick chan struct{}
}

// NewSyncQueue builds a sync queue over a durable mutation queue and the
// remote expense store it replays into.
func NewSyncQueue(queue port.MutationQueue, store port.ExpenseStore, metrics *observability.Metrics, logger *zap.Logger) *SyncQueue {
	return &SyncQueue{
		queue:   queue,
		store:   store,
		metrics: metrics,
		logger:  logger,
		kick:    make(chan struct{}, 1),
	}
}

// QueueAdd records an expense creation for later replay and returns the
// client id assigned to it.
func (q *SyncQueue) QueueAdd(ctx context.Context, userID string, in *domain.ExpenseInput) (string, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("queue add: %w", err)
	}
	m := domain.QueuedMutation{
		ClientID: uuid.NewString(),
		UserID:   userID,
		Kind:     domain.MutationAdd,
		Payload:  payload,
		QueuedAt: time.Now().UTC(),
	}
	if err := q.queue.Enqueue(ctx, m); err != nil {
		return "", err
	}
	q.logger.Info("expense add queued for sync", zap.String("client_id", m.ClientID))
	return m.ClientID, nil
}

// QueueUpdate records an expense update for later replay.
func (q *SyncQueue) QueueUpdate(ctx context.Context, userID, expenseID string, in *domain.ExpenseInput) (string, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("queue update: %w", err)
	}
	m := domain.QueuedMutation{
		ClientID:  uuid.NewString(),
		UserID:    userID,
		Kind:      domain.MutationUpdate,
		ExpenseID: expenseID,
		Payload:   payload,
		QueuedAt:  time.Now().UTC(),
	}
	if err := q.queue.Enqueue(ctx, m); err != nil {
		return "", err
	}
	q.logger.Info("expense update queued for sync",
		zap.String("client_id", m.ClientID),
		zap.String("expense_id", expenseID),
	)
	return m.ClientID, nil
}

// QueueDelete records an expense deletion for later replay.
func (q *SyncQueue) QueueDelete(ctx context.Context, userID, expenseID string) (string, error) {
	m := domain.QueuedMutation{
		ClientID:  uuid.NewString(),
		UserID:    userID,
		Kind:      domain.MutationDelete,
		ExpenseID: expenseID,
		QueuedAt:  time.Now().UTC(),
	}
	if err := q.queue.Enqueue(ctx, m); err != nil {
		return "", err
	}
	q.logger.Info("expense delete queued for sync",
		zap.String("client_id", m.ClientID),
		zap.String("expense_id", expenseID),
	)
	return m.ClientID, nil
}

// Kick nudges the run loop to flush immediately, typically after a
// request that proves the store is reachable again. Safe to call from
// any goroutine; redundant kicks coalesce.
func (q *SyncQueue) Kick() {
	select {
	case q.kick <- struct{}{}:
	default:
	}
}

// Run flushes pending mutations on every kick and on a steady interval,
// until the context is cancelled.
func (q *SyncQueue) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.kick:
		case <-ticker.C:
		}

		flushed, err := q.Flush(ctx)
		if err != nil {
			q.logger.Warn("sync flush stopped early",
				zap.Int("flushed", flushed),
				zap.Error(err),
			)
		}
	}
}

// Flush replays pending mutations in queue order, acknowledging each one
// after its remote write succeeds. It stops at the first failure so order
// is preserved across retries, and returns how many were flushed.
func (q *SyncQueue) Flush(ctx context.Context) (int, error) {
	pending, err := q.queue.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("sync flush: %w", err)
	}

	flushed := 0
	for _, m := range pending {
		dropped := false
		if err := q.apply(ctx, m); err != nil {
			// Deleting something already gone is a success for our purposes,
			// and a payload that cannot be decoded will never succeed, so
			// neither may block the rest of the queue.
			var nf *domain.ErrNotFound
			deleted := m.Kind == domain.MutationDelete && errors.As(err, &nf)
			if !deleted && !errors.Is(err, errPoisonPayload) {
				q.metrics.IncrSyncFlush("failed")
				return flushed, fmt.Errorf("sync flush %s (%s): %w", m.ClientID, m.Kind, err)
			}
			if errors.Is(err, errPoisonPayload) {
				dropped = true
				q.logger.Warn("dropping undecodable queued mutation",
					zap.String("client_id", m.ClientID),
					zap.Error(err),
				)
			}
		}
		if err := q.queue.Ack(ctx, m.ClientID); err != nil {
			return flushed, fmt.Errorf("sync ack %s: %w", m.ClientID, err)
		}
		if dropped {
			q.metrics.IncrSyncFlush("dropped")
			continue
		}
		q.metrics.IncrSyncFlush("ok")
		flushed++
	}

	if flushed > 0 {
		q.logger.Info("sync queue flushed", zap.Int("mutations", flushed))
	}
	return flushed, nil
}

// errPoisonPayload marks mutations that can never be applied.
var errPoisonPayload = errors.New("undecodable mutation payload")

func (q *SyncQueue) apply(ctx context.Context, m domain.QueuedMutation) error {
	switch m.Kind {
	case domain.MutationAdd:
		var in domain.ExpenseInput
		if err := json.Unmarshal(m.Payload, &in); err != nil {
			return fmt.Errorf("%w: %v", errPoisonPayload, err)
		}
		_, err := q.store.AddExpense(ctx, m.UserID, &in)
		return err
	case domain.MutationUpdate:
		var in domain.ExpenseInput
		if err := json.Unmarshal(m.Payload, &in); err != nil {
			return fmt.Errorf("%w: %v", errPoisonPayload, err)
		}
		return q.store.UpdateExpense(ctx, m.UserID, m.ExpenseID, &in)
	case domain.MutationDelete:
		return q.store.DeleteExpense(ctx, m.UserID, m.ExpenseID)
	default:
		return fmt.Errorf("%w: unknown mutation kind %q", errPoisonPayload, m.Kind)
	}
}
