package domain

// OpsMetrics is a point-in-time summary of service health, derived from
// the Prometheus counters. Served on GET /v1/status for lightweight
// dashboards that do not scrape /metrics.
type OpsMetrics struct {
	TotalRequests      int64   `json:"total_requests"`
	ErrorRate          float64 `json:"error_rate"`
	ResourceHitRate    float64 `json:"resource_hit_rate"`
	AdviceFallbackRate float64 `json:"advice_fallback_rate"`
	SyncFlushed        int64   `json:"sync_flushed"`
	SyncFailed         int64   `json:"sync_failed"`
	Period             string  `json:"period"`
}
