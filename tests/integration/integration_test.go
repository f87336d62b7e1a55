package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smartspendr/bfa-go/internal/appstate"
	"github.com/smartspendr/bfa-go/internal/domain"
	"github.com/smartspendr/bfa-go/internal/handler"
	"github.com/smartspendr/bfa-go/internal/infra/cache"
	"github.com/smartspendr/bfa-go/internal/infra/client"
	"github.com/smartspendr/bfa-go/internal/infra/docstore"
	"github.com/smartspendr/bfa-go/internal/infra/kvstore"
	"github.com/smartspendr/bfa-go/internal/infra/observability"
	"github.com/smartspendr/bfa-go/internal/infra/resilience"
	"github.com/smartspendr/bfa-go/internal/offline"
	"github.com/smartspendr/bfa-go/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const sessionSecret = "integration-test-secret"

// fakeDocstore is an in-memory document-store backend speaking the same
// REST shape the docstore client expects. Setting down makes every
// request fail with 500 to simulate an outage.
type fakeDocstore struct {
	mu       sync.Mutex
	down     bool
	nextID   int
	expenses map[string]map[string]any // id -> doc
}

func newFakeDocstore() *fakeDocstore {
	return &fakeDocstore{expenses: make(map[string]map[string]any)}
}

func (f *fakeDocstore) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *fakeDocstore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.expenses)
}

func (f *fakeDocstore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.down {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v1/"), "/")
	// users/{uid}/expenses[/{id}] or users/{uid}/budgets[/{cat}]
	if len(parts) < 3 || parts[0] != "users" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	collection := parts[2]

	switch {
	case collection == "expenses" && len(parts) == 3 && r.Method == http.MethodGet:
		docs := make([]map[string]any, 0, len(f.expenses))
		for _, d := range f.expenses {
			docs = append(docs, d)
		}
		json.NewEncoder(w).Encode(docs)

	case collection == "expenses" && len(parts) == 3 && r.Method == http.MethodPost:
		var doc map[string]any
		json.NewDecoder(r.Body).Decode(&doc)
		f.nextID++
		doc["id"] = fmt.Sprintf("srv-%d", f.nextID)
		doc["created_at"] = time.Now().UTC().Format(time.RFC3339)
		f.expenses[doc["id"].(string)] = doc
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(doc)

	case collection == "expenses" && len(parts) == 4 && r.Method == http.MethodPatch:
		id := parts[3]
		doc, ok := f.expenses[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var patch map[string]any
		json.NewDecoder(r.Body).Decode(&patch)
		for k, v := range patch {
			doc[k] = v
		}
		json.NewEncoder(w).Encode(doc)

	case collection == "expenses" && len(parts) == 4 && r.Method == http.MethodDelete:
		id := parts[3]
		if _, ok := f.expenses[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(f.expenses, id)
		w.WriteHeader(http.StatusNoContent)

	case collection == "budgets" && r.Method == http.MethodGet:
		json.NewEncoder(w).Encode([]map[string]any{})

	case collection == "budgets" && r.Method == http.MethodPut:
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type stack struct {
	router    http.Handler
	syncQueue *offline.SyncQueue
	backend   *fakeDocstore
}

func newStack(t *testing.T, agentURL string) *stack {
	t.Helper()

	backend := newFakeDocstore()
	backendSrv := httptest.NewServer(backend)
	t.Cleanup(backendSrv.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cfg := resilience.Config{
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		MaxConcurrency: 10,
	}
	httpClient := &http.Client{Timeout: 5 * time.Second}

	expenseStore := docstore.NewClient(
		httpClient,
		backendSrv.URL,
		"test-api-key",
		resilience.NewCircuitBreaker("docstore-it"),
		resilience.NewBulkhead(10),
		cfg,
		metrics,
		logger,
	)

	var agent *client.AgentClient
	if agentURL != "" {
		agent = client.NewAgentClient(httpClient, agentURL, "agent-key", resilience.NewCircuitBreaker("agent-it"), cfg)
	}

	kv := kvstore.NewMemoryStore()
	syncQueue := offline.NewSyncQueue(kv, expenseStore, metrics, logger)
	state := appstate.NewStore()

	expCache := cache.New[[]domain.Expense](10 * time.Millisecond)
	t.Cleanup(expCache.Close)
	repCache := cache.New[*domain.Report](10 * time.Millisecond)
	t.Cleanup(repCache.Close)

	expenses := service.NewExpenseService(expenseStore, syncQueue, state, expCache, repCache, metrics, logger)
	svcs := handler.Services{
		Expenses: expenses,
		Reports:  service.NewReportService(expenses, repCache, metrics, logger),
		Insights: service.NewInsightsService(expenses, logger),
	}
	if agent != nil {
		svcs.Advice = service.NewAdviceService(agent, expenses, metrics, logger)
	} else {
		svcs.Advice = service.NewAdviceService(nil, expenses, metrics, logger)
	}

	verifier := service.NewSessionVerifier(sessionSecret)
	router := handler.NewRouter(svcs, verifier, nil, metrics, logger)

	return &stack{router: router, syncQueue: syncQueue, backend: backend}
}

func sessionToken(t *testing.T) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   "user-int",
		"name":  "Integration User",
		"email": "int@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(sessionSecret))
	if err != nil {
		t.Fatalf("sign session token: %v", err)
	}
	return signed
}

func (s *stack) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// TestIntegration_ExpenseLifecycle drives create, list, report and export
// through the real router, services and docstore client.
func TestIntegration_ExpenseLifecycle(t *testing.T) {
	s := newStack(t, "")
	token := sessionToken(t)
	today := time.Now().Format("2006-01-02")

	// Create two expenses.
	for _, body := range []string{
		fmt.Sprintf(`{"title":"Groceries","amount":60,"category":"food","date":%q}`, today),
		fmt.Sprintf(`{"title":"Taxi","amount":30,"category":"transport","date":%q}`, today),
	} {
		rec := s.do(http.MethodPost, "/v1/expenses", token, body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create expense: expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var result service.MutationResult
		json.Unmarshal(rec.Body.Bytes(), &result)
		if result.ID == "" || result.Queued {
			t.Fatalf("expected direct write, got %+v", result)
		}
	}

	// List them back.
	rec := s.do(http.MethodGet, "/v1/expenses", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list expenses: expected 200, got %d", rec.Code)
	}
	var listResp struct {
		Expenses []domain.Expense `json:"expenses"`
	}
	json.Unmarshal(rec.Body.Bytes(), &listResp)
	if len(listResp.Expenses) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(listResp.Expenses))
	}

	// Monthly report over them.
	rec = s.do(http.MethodGet, "/v1/reports?window=month", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("report: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var rep domain.Report
	json.Unmarshal(rec.Body.Bytes(), &rep)
	if rep.TotalAmount != 90 || rep.TotalExpenses != 2 {
		t.Errorf("unexpected report: %+v", rep)
	}

	// CSV export carries both records.
	rec = s.do(http.MethodGet, "/v1/reports/export.csv", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"Groceries"`) || !strings.Contains(rec.Body.String(), `"Taxi"`) {
		t.Errorf("export missing rows: %s", rec.Body.String())
	}

	// Delete one and confirm the backend dropped it.
	rec = s.do(http.MethodDelete, "/v1/expenses/"+listResp.Expenses[0].ID, token, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	if s.backend.count() != 1 {
		t.Errorf("expected 1 expense left in backend, got %d", s.backend.count())
	}
}

// TestIntegration_OfflineQueueReplay verifies that writes during a store
// outage are captured and replayed once the store returns.
func TestIntegration_OfflineQueueReplay(t *testing.T) {
	s := newStack(t, "")
	token := sessionToken(t)
	today := time.Now().Format("2006-01-02")

	s.backend.setDown(true)

	body := fmt.Sprintf(`{"title":"Metro card","amount":25,"category":"transport","date":%q}`, today)
	rec := s.do(http.MethodPost, "/v1/expenses", token, body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 while store down, got %d: %s", rec.Code, rec.Body.String())
	}
	var result service.MutationResult
	json.Unmarshal(rec.Body.Bytes(), &result)
	if !result.Queued || result.ID == "" {
		t.Fatalf("expected queued mutation with client id, got %+v", result)
	}
	if s.backend.count() != 0 {
		t.Fatalf("backend should be empty during outage")
	}

	s.backend.setDown(false)

	flushed, err := s.syncQueue.Flush(context.Background())
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if flushed != 1 {
		t.Errorf("expected 1 replayed mutation, got %d", flushed)
	}
	if s.backend.count() != 1 {
		t.Errorf("expected backend to hold replayed expense, got %d", s.backend.count())
	}

	// A second flush finds nothing; the queue acked the entry.
	flushed, err = s.syncQueue.Flush(context.Background())
	if err != nil || flushed != 0 {
		t.Errorf("expected empty queue after replay, got flushed=%d err=%v", flushed, err)
	}
}

// TestIntegration_AdviceWithAgent exercises the advice path against a mock
// generation API, and the fallback path when that API errors.
func TestIntegration_AdviceWithAgent(t *testing.T) {
	agentSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/generate" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(domain.AgentResponse{
			Answer: "Consider meal planning to trim your food spending.",
		})
	}))
	defer agentSrv.Close()

	s := newStack(t, agentSrv.URL)
	token := sessionToken(t)

	rec := s.do(http.MethodPost, "/v1/advice", token, `{"query":"where can I cut back?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("advice: expected 200, got %d", rec.Code)
	}
	var resp domain.AdviceResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Fallback {
		t.Errorf("expected agent answer, got fallback")
	}
	if !strings.Contains(resp.Answer, "meal planning") {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
	if resp.ConversationID == "" {
		t.Error("expected conversation id")
	}
}

func TestIntegration_AdviceFallbackOnAgentFailure(t *testing.T) {
	agentSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer agentSrv.Close()

	s := newStack(t, agentSrv.URL)
	token := sessionToken(t)

	rec := s.do(http.MethodPost, "/v1/advice", token, `{"query":"help me budget"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("advice: expected 200, got %d", rec.Code)
	}
	var resp domain.AdviceResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Fallback || resp.Answer == "" {
		t.Errorf("expected fallback answer, got %+v", resp)
	}
	if !strings.Contains(resp.Answer, "50/30/20") {
		t.Errorf("expected budgeting fallback, got %q", resp.Answer)
	}
}

func TestIntegration_RejectsForeignToken(t *testing.T) {
	s := newStack(t, "")

	claims := jwt.MapClaims{"sub": "intruder", "exp": time.Now().Add(time.Hour).Unix()}
	signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("some-other-secret"))

	rec := s.do(http.MethodGet, "/v1/expenses", signed, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for foreign token, got %d", rec.Code)
	}
}
