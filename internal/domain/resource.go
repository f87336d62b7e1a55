package domain

import (
	"net/http"
	"time"
)

// CachedResource is a captured response body plus headers for one static
// resource, stored under a single cache generation.
type CachedResource struct {
	Key       string      `json:"key"` // normalized "METHOD uri"
	Status    int         `json:"status"`
	Header    http.Header `json:"header"`
	Body      []byte      `json:"body"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// ResourceKey normalizes a request into the cache lookup key. The uri is
// the request path plus any query string, so query variants of the same
// path are distinct entries.
func ResourceKey(method, uri string) string {
	return method + " " + uri
}

// AppDescriptor is the installability manifest document. It doubles as the
// synthesized offline fallback body when both cache and network fail for
// the manifest resource.
type AppDescriptor struct {
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	StartURL  string `json:"start_url"`
	Display   string `json:"display"`
}

// FallbackDescriptor is the minimal valid descriptor served when the
// manifest cannot be fetched from cache or network.
func FallbackDescriptor() AppDescriptor {
	return AppDescriptor{
		Name:      "SmartSpendr",
		ShortName: "SmartSpendr",
		StartURL:  "/",
		Display:   "standalone",
	}
}
