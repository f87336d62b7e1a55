package kvstore

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartspendr/bfa-go/internal/domain"
)

// store is the union of the two ports both implementations satisfy.
type store interface {
	Put(ctx context.Context, generation, key string, res domain.CachedResource) error
	Match(ctx context.Context, generation, key string) (domain.CachedResource, error)
	Generations(ctx context.Context) ([]string, error)
	DeleteGeneration(ctx context.Context, generation string) error

	Enqueue(ctx context.Context, m domain.QueuedMutation) error
	Pending(ctx context.Context) ([]domain.QueuedMutation, error)
	Ack(ctx context.Context, clientID string) error
}

func eachStore(t *testing.T, run func(t *testing.T, s store)) {
	t.Run("memory", func(t *testing.T) {
		run(t, NewMemoryStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "offline.db"))
		if err != nil {
			t.Fatalf("open sqlite store: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		run(t, s)
	})
}

func TestResourceRoundTrip(t *testing.T) {
	eachStore(t, func(t *testing.T, s store) {
		ctx := context.Background()
		res := domain.CachedResource{
			Key:       "GET /",
			Status:    200,
			Header:    http.Header{"Content-Type": []string{"text/html"}},
			Body:      []byte("<html>shell</html>"),
			FetchedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		}
		if err := s.Put(ctx, "v1", res.Key, res); err != nil {
			t.Fatalf("Put: %v", err)
		}

		got, err := s.Match(ctx, "v1", "GET /")
		if err != nil {
			t.Fatalf("Match: %v", err)
		}
		if string(got.Body) != string(res.Body) {
			t.Errorf("body = %q", got.Body)
		}
		if got.Status != 200 {
			t.Errorf("status = %d", got.Status)
		}
		if ct := got.Header.Get("Content-Type"); ct != "text/html" {
			t.Errorf("Content-Type = %q", ct)
		}
		if !got.FetchedAt.Equal(res.FetchedAt) {
			t.Errorf("fetchedAt = %v, want %v", got.FetchedAt, res.FetchedAt)
		}
	})
}

func TestMatchMissAndGenerationIsolation(t *testing.T) {
	eachStore(t, func(t *testing.T, s store) {
		ctx := context.Background()
		res := domain.CachedResource{Key: "GET /", Status: 200, Header: http.Header{}, Body: []byte("x"), FetchedAt: time.Now().UTC()}
		if err := s.Put(ctx, "v1", res.Key, res); err != nil {
			t.Fatal(err)
		}

		var miss *domain.ErrCacheMiss
		if _, err := s.Match(ctx, "v1", "GET /nope"); !errors.As(err, &miss) {
			t.Errorf("unknown key: got %v, want ErrCacheMiss", err)
		}
		// Same key in a different generation is still a miss.
		if _, err := s.Match(ctx, "v2", "GET /"); !errors.As(err, &miss) {
			t.Errorf("other generation: got %v, want ErrCacheMiss", err)
		}
	})
}

func TestPutOverwritesExistingEntry(t *testing.T) {
	eachStore(t, func(t *testing.T, s store) {
		ctx := context.Background()
		old := domain.CachedResource{Key: "GET /", Status: 200, Header: http.Header{}, Body: []byte("old"), FetchedAt: time.Now().UTC()}
		if err := s.Put(ctx, "v1", old.Key, old); err != nil {
			t.Fatal(err)
		}
		fresh := old
		fresh.Body = []byte("fresh")
		if err := s.Put(ctx, "v1", fresh.Key, fresh); err != nil {
			t.Fatal(err)
		}

		got, err := s.Match(ctx, "v1", "GET /")
		if err != nil {
			t.Fatal(err)
		}
		if string(got.Body) != "fresh" {
			t.Errorf("body = %q after overwrite", got.Body)
		}
	})
}

func TestGenerationsAndDelete(t *testing.T) {
	eachStore(t, func(t *testing.T, s store) {
		ctx := context.Background()
		res := domain.CachedResource{Key: "GET /", Status: 200, Header: http.Header{}, Body: []byte("x"), FetchedAt: time.Now().UTC()}
		for _, g := range []string{"v1", "v2"} {
			if err := s.Put(ctx, g, res.Key, res); err != nil {
				t.Fatal(err)
			}
		}

		gens, err := s.Generations(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(gens) != 2 {
			t.Fatalf("generations = %v", gens)
		}

		if err := s.DeleteGeneration(ctx, "v1"); err != nil {
			t.Fatal(err)
		}
		gens, err = s.Generations(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(gens) != 1 || gens[0] != "v2" {
			t.Errorf("generations after delete = %v", gens)
		}
	})
}

func TestMutationQueueOrderAndAck(t *testing.T) {
	eachStore(t, func(t *testing.T, s store) {
		ctx := context.Background()
		base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
		for i, id := range []string{"m-1", "m-2", "m-3"} {
			m := domain.QueuedMutation{
				ClientID: id,
				UserID:   "u1",
				Kind:     domain.MutationAdd,
				Payload:  []byte(`{"title":"x"}`),
				QueuedAt: base.Add(time.Duration(i) * time.Second),
			}
			if err := s.Enqueue(ctx, m); err != nil {
				t.Fatal(err)
			}
		}

		pending, err := s.Pending(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(pending) != 3 {
			t.Fatalf("pending = %d", len(pending))
		}
		for i, want := range []string{"m-1", "m-2", "m-3"} {
			if pending[i].ClientID != want {
				t.Errorf("pending[%d] = %s, want %s", i, pending[i].ClientID, want)
			}
		}

		// Ack the middle one; order of the rest is unchanged.
		if err := s.Ack(ctx, "m-2"); err != nil {
			t.Fatal(err)
		}
		pending, err = s.Pending(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(pending) != 2 || pending[0].ClientID != "m-1" || pending[1].ClientID != "m-3" {
			t.Errorf("pending after ack = %+v", pending)
		}

		// Acking something unknown is a no-op.
		if err := s.Ack(ctx, "m-2"); err != nil {
			t.Errorf("double ack: %v", err)
		}
	})
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "offline.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	res := domain.CachedResource{Key: "GET /", Status: 200, Header: http.Header{}, Body: []byte("x"), FetchedAt: time.Now().UTC()}
	if err := s.Put(ctx, "v1", res.Key, res); err != nil {
		t.Fatal(err)
	}
	if err := s.Enqueue(ctx, domain.QueuedMutation{ClientID: "m-1", UserID: "u1", Kind: domain.MutationDelete, ExpenseID: "e1", QueuedAt: time.Now().UTC()}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.Match(ctx, "v1", "GET /"); err != nil {
		t.Errorf("resource lost across reopen: %v", err)
	}
	pending, err := s.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ClientID != "m-1" {
		t.Errorf("mutations lost across reopen: %+v", pending)
	}
}
