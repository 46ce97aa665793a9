package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the storefront's instruments. A nil *Registry is valid and
// records nothing, so components can run without metrics in tests.
type Registry struct {
	reg *prometheus.Registry

	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	StaleDiscarded   prometheus.Counter
	ListingSize      prometheus.Histogram
	SessionExpired   prometheus.Counter
	StatusReverted   prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	upstream := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_upstream_requests_total",
		Help: "Catalog Service calls by operation and status code.",
	}, []string{"operation", "code"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_upstream_latency_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	hits := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_cache_hits_total"})
	misses := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_cache_misses_total"})
	stale := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_stale_responses_discarded_total"})
	size := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_listing_products",
		Buckets: []float64{0, 5, 10, 25, 50, 100, 250, 500},
	})
	expired := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_session_expired_total"})
	reverted := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_order_status_reverted_total"})

	r.MustRegister(upstream, latency, hits, misses, stale, size, expired, reverted)
	return &Registry{
		reg:              r,
		UpstreamRequests: upstream,
		UpstreamLatency:  latency,
		CacheHits:        hits,
		CacheMisses:      misses,
		StaleDiscarded:   stale,
		ListingSize:      size,
		SessionExpired:   expired,
		StatusReverted:   reverted,
	}
}

func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveUpstream records one Catalog Service call. code 0 means the call
// failed before a response arrived.
func (r *Registry) ObserveUpstream(operation string, code int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.UpstreamRequests.WithLabelValues(operation, strconv.Itoa(code)).Inc()
	r.UpstreamLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (r *Registry) CacheHit() {
	if r != nil {
		r.CacheHits.Inc()
	}
}

func (r *Registry) CacheMiss() {
	if r != nil {
		r.CacheMisses.Inc()
	}
}

func (r *Registry) Stale() {
	if r != nil {
		r.StaleDiscarded.Inc()
	}
}

func (r *Registry) Listing(n int) {
	if r != nil {
		r.ListingSize.Observe(float64(n))
	}
}

func (r *Registry) Expired() {
	if r != nil {
		r.SessionExpired.Inc()
	}
}

func (r *Registry) Reverted() {
	if r != nil {
		r.StatusReverted.Inc()
	}
}
