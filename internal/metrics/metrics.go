// Package metrics exposes Prometheus counters/gauges for the framework
// plus a local atomic mirror for cheap periodic logging, adapted from the
// teacher's CAN-domain metrics package to the connection/pool/poll-loop
// concerns this framework actually has.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/kstaniek/go-wireframe/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters/gauges.
var (
	ConnectionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wireframe_connections_accepted_total",
		Help: "Total inbound connections accepted by a Svc.",
	})
	ConnectionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wireframe_connections_rejected_total",
		Help: "Total inbound connections rejected (pool full).",
	})
	ConnectionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wireframe_connections_closed_total",
		Help: "Total connections (clt or svc side) that reached EOF or a fatal error.",
	})
	MessagesRecv = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wireframe_messages_recv_total",
		Help: "Total messages deserialized across every connection.",
	})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wireframe_messages_sent_total",
		Help: "Total messages successfully written to the wire.",
	})
	MessagesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wireframe_messages_failed_total",
		Help: "Total send/recv failures (serialization, deserialization, or I/O).",
	})
	HeartbeatsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wireframe_heartbeats_sent_total",
		Help: "Total protocol heartbeats emitted by the timer task.",
	})
	InputTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wireframe_input_timeouts_total",
		Help: "Total connections dropped for exceeding the protocol's input timeout.",
	})
	PoolSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wireframe_pool_size",
		Help: "Current number of connections tracked by a named pool.",
	}, []string{"pool"})
	PollLoopIterations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wireframe_poll_loop_iterations_total",
		Help: "Total PollHandler selector wait/dispatch cycles.",
	})
	TimerFires = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wireframe_timer_fires_total",
		Help: "Total timer task invocations across every Timer.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wireframe_build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wireframe_errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrAccept    = "accept"
	ErrConnect   = "connect"
	ErrRead      = "read"
	ErrWrite     = "write"
	ErrSerialize = "serialize"
	ErrFrame     = "frame"
)

// StartHTTP serves Prometheus metrics at /metrics and a readiness probe at
// /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters, cheap to read for periodic logging without
// touching the Prometheus registry.
var (
	localAccepted   uint64
	localRejected   uint64
	localClosed     uint64
	localRecv       uint64
	localSent       uint64
	localFailed     uint64
	localHeartbeats uint64
	localTimeouts   uint64
	localErrors     uint64
)

// Snapshot is a cheap copy of the local counters.
type Snapshot struct {
	Accepted   uint64
	Rejected   uint64
	Closed     uint64
	Recv       uint64
	Sent       uint64
	Failed     uint64
	Heartbeats uint64
	Timeouts   uint64
	Errors     uint64
}

// Snap returns the current local counters.
func Snap() Snapshot {
	return Snapshot{
		Accepted:   atomic.LoadUint64(&localAccepted),
		Rejected:   atomic.LoadUint64(&localRejected),
		Closed:     atomic.LoadUint64(&localClosed),
		Recv:       atomic.LoadUint64(&localRecv),
		Sent:       atomic.LoadUint64(&localSent),
		Failed:     atomic.LoadUint64(&localFailed),
		Heartbeats: atomic.LoadUint64(&localHeartbeats),
		Timeouts:   atomic.LoadUint64(&localTimeouts),
		Errors:     atomic.LoadUint64(&localErrors),
	}
}

func IncAccepted() { ConnectionsAccepted.Inc(); atomic.AddUint64(&localAccepted, 1) }
func IncRejected() { ConnectionsRejected.Inc(); atomic.AddUint64(&localRejected, 1) }
func IncClosed()   { ConnectionsClosed.Inc(); atomic.AddUint64(&localClosed, 1) }
func IncRecv()     { MessagesRecv.Inc(); atomic.AddUint64(&localRecv, 1) }
func IncSent()     { MessagesSent.Inc(); atomic.AddUint64(&localSent, 1) }
func IncFailed()   { MessagesFailed.Inc(); atomic.AddUint64(&localFailed, 1) }
func IncHeartbeat() {
	HeartbeatsSent.Inc()
	atomic.AddUint64(&localHeartbeats, 1)
}
func IncInputTimeout() {
	InputTimeouts.Inc()
	atomic.AddUint64(&localTimeouts, 1)
}
func IncPollIteration() { PollLoopIterations.Inc() }
func IncTimerFire()     { TimerFires.Inc() }

func SetPoolSize(name string, n int) { PoolSize.WithLabelValues(name).Set(float64(n)) }

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build_info gauge to 1 for the given label set,
// a common Prometheus idiom for surfacing version metadata as a metric.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
}

// SetReadinessFunc installs the predicate /ready consults.
func SetReadinessFunc(fn func() bool) {
	readinessMu.Lock()
	readinessFn = fn
	readinessMu.Unlock()
}

// IsReady evaluates the installed readiness predicate, defaulting to true
// if none was set.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}
