// Package docstore implements port.ExpenseStore against the hosted
// document-store REST API that owns expense and budget records. Every
// call goes through the bulkhead, the circuit breaker and the retry
// policy; failures surface as typed domain errors, never raw transport
// errors.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/smartspendr/bfa-go/internal/domain"
	"github.com/smartspendr/bfa-go/internal/infra/observability"
	"github.com/smartspendr/bfa-go/internal/infra/resilience"
)

var tracer = otel.Tracer("docstore")

// Client wraps HTTP calls to the document-store REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewClient creates a document-store client.
func NewClient(
	httpClient *http.Client,
	baseURL, apiKey string,
	cb *gobreaker.CircuitBreaker,
	bulkhead *resilience.Bulkhead,
	cfg resilience.Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		cb:         cb,
		bulkhead:   bulkhead,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

// execute runs one store operation under the full resilience stack.
// Returned errors are already typed: *domain.ErrNotFound passes through,
// an open breaker becomes *domain.ErrCircuitOpen, anything else is
// wrapped in *domain.ErrStore.
func (c *Client) execute(ctx context.Context, op string, fn func() error) error {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return &domain.ErrStore{Op: op, Err: err}
	}
	defer c.bulkhead.Release()

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, fn)
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: "docstore"}
	}
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		return nf
	}

	c.metrics.IncrExternalError("docstore")
	return &domain.ErrStore{Op: op, Err: err}
}

// doRequest executes one authenticated request and returns the response
// body. A 404 comes back as a Permanent not-found so the retry loop and
// the breaker both treat it as a definitive answer.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, resilience.Permanent(fmt.Errorf("encode payload: %w", err))
		}
		reqBody = bytes.NewReader(raw)
	}

	url := fmt.Sprintf("%s/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, resilience.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("docstore: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, resilience.Permanent(&domain.ErrNotFound{Resource: "document", ID: path})
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		c.logger.Warn("docstore: request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, resilience.Permanent(fmt.Errorf("docstore returned %d: %s", resp.StatusCode, string(body)))
	case resp.StatusCode >= 300:
		c.logger.Warn("docstore: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("docstore returned %d: %s", resp.StatusCode, string(body))
	}

	c.logger.Debug("docstore: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return body, nil
}
