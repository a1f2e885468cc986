package authgate

import (
	"log/slog"

	"github.com/MrEthical07/authgate/internal/rate"
	"github.com/MrEthical07/authgate/jwt"
)

// Gateway authenticates requests with the configured mechanisms. It is safe
// for concurrent use; its configuration never changes after Build.
type Gateway struct {
	config Config

	cache      ChallengeCache
	ownedCache *storeChallengeCache
	tokens     *jwt.Manager
	keys       KeyResolver
	throttle   *rate.Limiter
	codecs     []SessionCodec

	audit   *auditDispatcher
	metrics *Metrics
	logger  *slog.Logger
}

// Close flushes queued audit events and stops background timers owned by the
// gateway. Caller-supplied caches and clients are left open.
func (g *Gateway) Close() {
	if g == nil {
		return
	}
	g.audit.Close()
	if g.ownedCache != nil {
		g.ownedCache.Close()
	}
}

// Config returns a copy of the effective configuration.
func (g *Gateway) Config() Config {
	return cloneConfig(g.config)
}

// Metrics returns the gateway's metrics. The result is never nil.
func (g *Gateway) Metrics() *Metrics {
	return g.metrics
}

// MetricsSnapshot returns a point-in-time copy of the gateway's metrics.
func (g *Gateway) MetricsSnapshot() MetricsSnapshot {
	return g.metrics.Snapshot()
}

// AuditDropped reports how many audit events were dropped on a full queue.
func (g *Gateway) AuditDropped() uint64 {
	return g.audit.Dropped()
}

func (g *Gateway) metricInc(id MetricID) {
	g.metrics.Inc(id)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
