package metrics

import (
	"math"
	"time"

	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/synchronizer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors for synchronizer sessions and the
// alignment API. It implements synchronizer.Observer.
type Metrics struct {
	// Long alignment metrics
	AlignmentsStarted *prometheus.CounterVec
	AlignmentsFailed  *prometheus.CounterVec
	AlignmentDuration prometheus.Histogram
	AlignmentOffset   prometheus.Histogram

	// Tracking metrics
	Ticks          prometheus.Counter
	TotalDelay     prometheus.Gauge
	SyncOffset     prometheus.Gauge
	Stable         prometheus.Gauge
	Phase          prometheus.Gauge
	DisabledEvents prometheus.Counter

	// HTTP API metrics
	ManualAlignments    *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		AlignmentsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "acousticsync_alignments_started_total",
			Help: "Long alignments started, by channel",
		}, []string{"channel"}),
		AlignmentsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "acousticsync_alignments_failed_total",
			Help: "Long alignments that produced no offset, by channel",
		}, []string{"channel"}),
		AlignmentDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "acousticsync_alignment_duration_seconds",
			Help:    "Wall time of long alignments including recording",
			Buckets: prometheus.LinearBuckets(1, 1, 10), // 1s to 10s
		}),
		AlignmentOffset: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "acousticsync_alignment_offset_seconds",
			Help:    "Offsets found by successful long alignments",
			Buckets: prometheus.LinearBuckets(-0.5, 0.05, 21),
		}),

		Ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "acousticsync_ticks_total",
			Help: "Synchronizer loop ticks",
		}),
		TotalDelay: f.NewGauge(prometheus.GaugeOpts{
			Name: "acousticsync_payload_delay_seconds",
			Help: "Current payload channel delay",
		}),
		SyncOffset: f.NewGauge(prometheus.GaugeOpts{
			Name: "acousticsync_sync_offset_seconds",
			Help: "Current sync signal channel delay",
		}),
		Stable: f.NewGauge(prometheus.GaugeOpts{
			Name: "acousticsync_tracking_stable",
			Help: "1 when the last three tracking ticks saw a valid peak",
		}),
		Phase: f.NewGauge(prometheus.GaugeOpts{
			Name: "acousticsync_phase",
			Help: "Synchronizer phase (0 initializing, 1 sync, 2 payload, 3 tracking, 4 disabled)",
		}),
		DisabledEvents: f.NewCounter(prometheus.CounterOpts{
			Name: "acousticsync_disabled_total",
			Help: "Times the synchronizer gave up after repeated failures",
		}),

		ManualAlignments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "acousticsync_manual_alignments_total",
			Help: "Uploaded alignments, by outcome",
		}, []string{"outcome"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "acousticsync_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "acousticsync_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

func (m *Metrics) AlignmentStarted(ch synchronizer.Channel, _ time.Duration) {
	m.AlignmentsStarted.WithLabelValues(ch.String()).Inc()
}

func (m *Metrics) AlignmentFinished(ch synchronizer.Channel, result float64, elapsed time.Duration) {
	m.AlignmentDuration.Observe(elapsed.Seconds())
	if math.IsNaN(result) {
		m.AlignmentsFailed.WithLabelValues(ch.String()).Inc()
		return
	}
	m.AlignmentOffset.Observe(result)
}

func (m *Metrics) Ticked(s synchronizer.State) {
	m.Ticks.Inc()
	m.TotalDelay.Set(s.Peak.TotalDelay)
	m.SyncOffset.Set(s.SyncOffset)
	m.Phase.Set(float64(s.Phase))
	if s.Phase == synchronizer.Tracking && s.Stable() {
		m.Stable.Set(1)
	} else {
		m.Stable.Set(0)
	}
}

func (m *Metrics) Disabled(int) {
	m.DisabledEvents.Inc()
}

// RecordManualAlignment records one uploaded alignment. outcome is "valid",
// "ambiguous" or "failed".
func (m *Metrics) RecordManualAlignment(outcome string, result float64, elapsed time.Duration) {
	m.ManualAlignments.WithLabelValues(outcome).Inc()
	m.AlignmentDuration.Observe(elapsed.Seconds())
	if !math.IsNaN(result) {
		m.AlignmentOffset.Observe(result)
	}
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
