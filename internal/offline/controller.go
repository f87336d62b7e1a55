// Package offline implements the resource cache controller and the
// background sync queue: the pieces that keep the SmartSpendr shell usable
// without connectivity.
//
// The controller manages named cache generations over a durable
// port.ResourceStore and intercepts same-origin GET requests cache-first.
// It never shares in-memory state with request handlers; coordination
// happens only through the store's own atomic Put/Match operations.
package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/smartspendr/bfa-go/internal/domain"
	"github.com/smartspendr/bfa-go/internal/infra/observability"
	"github.com/smartspendr/bfa-go/internal/port"
)

// manifestPath is the one resource that gets a synthesized fallback when
// both cache and network fail.
const manifestPath = "/manifest.json"

// DefaultManifest is the fixed set of critical resources cached at install:
// the app shell, the descriptor and the core icon.
var DefaultManifest = []string{"/", "/manifest.json", "/vite.svg"}

// Fetcher is the network path for resource requests. *http.Client
// satisfies it.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// Controller serves static application resources cache-first from one
// named generation, with install/activate lifecycle and stale-generation
// garbage collection.
type Controller struct {
	store      port.ResourceStore
	generation string
	manifest   []string
	origin     string // scheme://host the controller considers its own
	fetcher    Fetcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	// ready flips only after Activate has finished deleting old
	// generations; interception never reads the cache before that.
	ready atomic.Bool
}

// NewController creates a controller for the given cache generation.
// An empty manifest falls back to DefaultManifest.
func NewController(
	store port.ResourceStore,
	generation, origin string,
	manifest []string,
	fetcher Fetcher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Controller {
	if len(manifest) == 0 {
		manifest = DefaultManifest
	}
	return &Controller{
		store:      store,
		generation: generation,
		manifest:   manifest,
		origin:     origin,
		fetcher:    fetcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Origin returns the app origin whose requests the controller owns.
func (c *Controller) Origin() string {
	return c.origin
}

// Generation returns the controller's cache generation name.
func (c *Controller) Generation() string {
	return c.generation
}

// Ready reports whether activation has completed and interception is
// reading from the cache.
func (c *Controller) Ready() bool {
	return c.ready.Load()
}

// Install populates the controller's generation with every manifest
// resource. Population is all-or-nothing: if any fetch fails, the
// partially filled generation is removed and the install fails. Best-effort
// population would change the offline guarantee, so it is not offered.
func (c *Controller) Install(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	for _, path := range c.manifest {
		path := path
		g.Go(func() error {
			res, err := c.fetchResource(gCtx, path)
			if err != nil {
				return fmt.Errorf("install %s: %w", path, err)
			}
			return c.store.Put(gCtx, c.generation, res.Key, res)
		})
	}

	if err := g.Wait(); err != nil {
		if delErr := c.store.DeleteGeneration(ctx, c.generation); delErr != nil {
			c.logger.Warn("install: could not remove partial generation",
				zap.String("generation", c.generation),
				zap.Error(delErr),
			)
		}
		return err
	}

	c.logger.Info("cache generation installed",
		zap.String("generation", c.generation),
		zap.Int("resources", len(c.manifest)),
	)
	return nil
}

// Activate promotes this generation: every other generation is deleted,
// and only once that garbage collection finishes does the controller
// start serving from cache. Requests handled mid-activation bypass the
// cache entirely rather than observing a half-activated state.
func (c *Controller) Activate(ctx context.Context) error {
	gens, err := c.store.Generations(ctx)
	if err != nil {
		return fmt.Errorf("activate: list generations: %w", err)
	}
	for _, g := range gens {
		if g == c.generation {
			continue
		}
		if err := c.store.DeleteGeneration(ctx, g); err != nil {
			return fmt.Errorf("activate: delete generation %s: %w", g, err)
		}
		c.logger.Info("stale cache generation deleted", zap.String("generation", g))
	}

	c.ready.Store(true)
	c.logger.Info("cache generation active", zap.String("generation", c.generation))
	return nil
}

// Intercept handles one outbound resource request. Same-origin GETs are
// answered cache-first; everything else passes straight through. Network
// responses are returned as-is, never implicitly cached. A network failure
// for the app descriptor synthesizes a minimal fallback document; any
// other failure propagates unmodified.
func (c *Controller) Intercept(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || !c.sameOrigin(req) {
		return c.fetcher.Do(req)
	}

	if c.ready.Load() {
		key := domain.ResourceKey(req.Method, req.URL.RequestURI())
		cached, err := c.store.Match(req.Context(), c.generation, key)
		if err == nil {
			c.metrics.IncrCacheHit("resource")
			return cachedResponse(req, cached), nil
		}
		var miss *domain.ErrCacheMiss
		if !errors.As(err, &miss) {
			// Store failure reads as a miss: the network path still works.
			c.logger.Warn("resource cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		c.metrics.IncrCacheMiss("resource")
	}

	resp, err := c.fetcher.Do(req)
	if err == nil {
		return resp, nil
	}

	if req.URL.Path == manifestPath {
		c.logger.Warn("descriptor unreachable, serving synthesized fallback", zap.Error(err))
		return fallbackManifestResponse(req), nil
	}
	return nil, err
}

func (c *Controller) sameOrigin(req *http.Request) bool {
	if req.URL.Scheme == "" && req.URL.Host == "" {
		return true // relative request, always ours
	}
	return req.URL.Scheme+"://"+req.URL.Host == c.origin
}

func (c *Controller) fetchResource(ctx context.Context, path string) (domain.CachedResource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.origin+path, nil)
	if err != nil {
		return domain.CachedResource{}, err
	}
	resp, err := c.fetcher.Do(req)
	if err != nil {
		return domain.CachedResource{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.CachedResource{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.CachedResource{}, err
	}

	return domain.CachedResource{
		Key:       domain.ResourceKey(http.MethodGet, path),
		Status:    resp.StatusCode,
		Header:    resp.Header.Clone(),
		Body:      body,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func cachedResponse(req *http.Request, res domain.CachedResource) *http.Response {
	return &http.Response{
		Status:        http.StatusText(res.Status),
		StatusCode:    res.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        res.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(res.Body)),
		ContentLength: int64(len(res.Body)),
		Request:       req,
	}
}

func fallbackManifestResponse(req *http.Request) *http.Response {
	body, _ := json.Marshal(domain.FallbackDescriptor())
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &http.Response{
		Status:        http.StatusText(http.StatusOK),
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
