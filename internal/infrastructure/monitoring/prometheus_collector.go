package monitoring

import (
	"time"

	"rillcast/internal/core/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector records client-side streaming metrics. It satisfies
// services.StreamingObserver.
type PrometheusCollector struct {
	joinAttempts  *prometheus.CounterVec
	joinFailures  *prometheus.CounterVec
	joinDuration  *prometheus.HistogramVec
	leavesTotal   *prometheus.CounterVec
	connected     prometheus.Gauge
	remotePeers   prometheus.Gauge
	tokenDuration *prometheus.HistogramVec
	signalMsgs    *prometheus.CounterVec
}

var _ services.StreamingObserver = (*PrometheusCollector)(nil)

// NewPrometheusCollector registers the collector's metrics with reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	f := promauto.With(reg)
	return &PrometheusCollector{
		joinAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rillcast_join_attempts_total",
			Help: "Room join attempts by role",
		}, []string{"role"}),

		joinFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rillcast_join_failures_total",
			Help: "Failed room joins by role",
		}, []string{"role"}),

		joinDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rillcast_join_duration_seconds",
			Help:    "Time from join request to connected",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"role"}),

		leavesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rillcast_leaves_total",
			Help: "Room leaves by outcome",
		}, []string{"outcome"}),

		connected: f.NewGauge(prometheus.GaugeOpts{
			Name: "rillcast_connected",
			Help: "1 while connected to a room",
		}),

		remotePeers: f.NewGauge(prometheus.GaugeOpts{
			Name: "rillcast_remote_peers",
			Help: "Remote peers in the current room",
		}),

		tokenDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rillcast_peer_token_duration_seconds",
			Help:    "Peer token issuance latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"issuer", "outcome"}),

		signalMsgs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rillcast_signal_messages_total",
			Help: "Signaling messages by direction and type",
		}, []string{"direction", "type"}),
	}
}

func (p *PrometheusCollector) ObserveJoin(role services.Role, duration time.Duration, err error) {
	r := string(role)
	p.joinAttempts.WithLabelValues(r).Inc()
	if err != nil {
		p.joinFailures.WithLabelValues(r).Inc()
		return
	}
	p.joinDuration.WithLabelValues(r).Observe(duration.Seconds())
	p.connected.Set(1)
}

func (p *PrometheusCollector) ObserveLeave(err error) {
	if err != nil {
		p.leavesTotal.WithLabelValues("error").Inc()
		return
	}
	p.leavesTotal.WithLabelValues("ok").Inc()
	p.connected.Set(0)
	p.remotePeers.Set(0)
}

func (p *PrometheusCollector) SetRemotePeers(n int) {
	p.remotePeers.Set(float64(n))
}

// ObserveToken records one token issuance. An empty token counts as a failure.
func (p *PrometheusCollector) ObserveToken(issuer string, duration time.Duration, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	p.tokenDuration.WithLabelValues(issuer, outcome).Observe(duration.Seconds())
}

func (p *PrometheusCollector) ObserveSignal(direction, msgType string) {
	p.signalMsgs.WithLabelValues(direction, msgType).Inc()
}
