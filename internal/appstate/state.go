// Package appstate holds the per-user application state the handlers and
// the sync queue coordinate through: the latest known expense list and
// the connectivity bit. State is exposed only as immutable snapshots;
// writers publish a new snapshot, subscribers are notified after it is
// visible.
package appstate

import (
	"sync"
	"time"

	"github.com/smartspendr/bfa-go/internal/domain"
)

// Snapshot is one immutable view of a user's state. Fields are never
// mutated after publication; Expenses must not be appended to by readers.
type Snapshot struct {
	UserID    string
	Expenses  []domain.Expense
	Online    bool
	UpdatedAt time.Time
}

// Store keeps the latest snapshot per user and notifies subscribers on
// every publication.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
	online    bool
	subs      []chan Snapshot
}

// NewStore creates an empty state store. Connectivity starts optimistic.
func NewStore() *Store {
	return &Store{
		snapshots: make(map[string]Snapshot),
		online:    true,
	}
}

// Snapshot returns the latest snapshot for one user. The second return
// is false when the user has no published state yet.
func (s *Store) Snapshot(userID string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[userID]
	return snap, ok
}

// Online reports the last known connectivity state.
func (s *Store) Online() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

// PublishExpenses installs a new expense snapshot for one user. The slice
// is copied so later mutation by the caller cannot leak into a published
// snapshot.
func (s *Store) PublishExpenses(userID string, expenses []domain.Expense) Snapshot {
	owned := make([]domain.Expense, len(expenses))
	copy(owned, expenses)

	s.mu.Lock()
	snap := Snapshot{
		UserID:    userID,
		Expenses:  owned,
		Online:    s.online,
		UpdatedAt: time.Now().UTC(),
	}
	s.snapshots[userID] = snap
	subs := make([]chan Snapshot, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	notify(subs, snap)
	return snap
}

// SetOnline records a connectivity change and republishes every user's
// snapshot with the new bit, so subscribers see the transition.
func (s *Store) SetOnline(online bool) {
	s.mu.Lock()
	if s.online == online {
		s.mu.Unlock()
		return
	}
	s.online = online
	changed := make([]Snapshot, 0, len(s.snapshots))
	for id, snap := range s.snapshots {
		snap.Online = online
		snap.UpdatedAt = time.Now().UTC()
		s.snapshots[id] = snap
		changed = append(changed, snap)
	}
	subs := make([]chan Snapshot, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, snap := range changed {
		notify(subs, snap)
	}
}

// Subscribe registers for snapshot publications. The channel is buffered;
// a slow subscriber drops notifications rather than blocking publishers.
// The returned cancel function releases the subscription.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 16)

	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
	return ch, cancel
}

func notify(subs []chan Snapshot, snap Snapshot) {
	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
