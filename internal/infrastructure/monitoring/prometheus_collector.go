package monitoring

import (
	"strconv"
	"time"

	"roomchat/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Gauges
	roomsActive       prometheus.Gauge
	connectionsActive prometheus.Gauge
	roomConnections   *prometheus.GaugeVec

	// Counters
	connectionsTotal   prometheus.Counter
	sendFailuresTotal  prometheus.Counter
	eventsTotal        *prometheus.CounterVec
	framesRejected     *prometheus.CounterVec
	admissionsRejected *prometheus.CounterVec
	viewOnceIssued     prometheus.Counter
	viewOnceRedeemed   *prometheus.CounterVec

	// Histograms
	broadcastDuration   *prometheus.HistogramVec
	broadcastRecipients prometheus.Histogram
}

// NewPrometheusCollector registers the chat metrics with reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		roomsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "roomchat_rooms_active",
			Help: "Number of rooms with at least one connection",
		}),

		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "roomchat_connections_active",
			Help: "Number of admitted websocket connections",
		}),

		roomConnections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "roomchat_room_connections",
			Help: "Number of connections in each room",
		}, []string{"room"}),

		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "roomchat_connections_total",
			Help: "Total number of connections admitted",
		}),

		sendFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "roomchat_send_failures_total",
			Help: "Connections dropped because a broadcast send failed",
		}),

		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roomchat_events_broadcast_total",
			Help: "Events broadcast to rooms by type",
		}, []string{"type"}),

		framesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roomchat_frames_rejected_total",
			Help: "Inbound frames dropped by reason",
		}, []string{"reason"}),

		admissionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roomchat_admissions_rejected_total",
			Help: "Connection attempts rejected by reason",
		}, []string{"reason"}),

		viewOnceIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "roomchat_view_once_issued_total",
			Help: "View-once tokens issued",
		}),

		viewOnceRedeemed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roomchat_view_once_redeemed_total",
			Help: "View-once redemption attempts by outcome",
		}, []string{"ok"}),

		broadcastDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roomchat_broadcast_duration_seconds",
			Help:    "Time spent delivering one event to a room",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"type"}),

		broadcastRecipients: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "roomchat_broadcast_recipients",
			Help:    "Number of connections an event was delivered to",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

func (p *PrometheusCollector) RoomOpened(room domain.RoomName) {
	p.roomsActive.Inc()
}

func (p *PrometheusCollector) RoomClosed(room domain.RoomName) {
	p.roomsActive.Dec()
	p.roomConnections.DeleteLabelValues(string(room))
}

func (p *PrometheusCollector) ConnectionJoined(room domain.RoomName) {
	p.connectionsActive.Inc()
	p.connectionsTotal.Inc()
	p.roomConnections.WithLabelValues(string(room)).Inc()
}

func (p *PrometheusCollector) ConnectionLeft(room domain.RoomName) {
	p.connectionsActive.Dec()
	p.roomConnections.WithLabelValues(string(room)).Dec()
}

func (p *PrometheusCollector) EventBroadcast(eventType domain.EventType, recipients int, duration time.Duration) {
	p.eventsTotal.WithLabelValues(string(eventType)).Inc()
	p.broadcastDuration.WithLabelValues(string(eventType)).Observe(duration.Seconds())
	p.broadcastRecipients.Observe(float64(recipients))
}

func (p *PrometheusCollector) SendFailed(room domain.RoomName) {
	p.sendFailuresTotal.Inc()
}

func (p *PrometheusCollector) FrameRejected(reason string) {
	p.framesRejected.WithLabelValues(reason).Inc()
}

func (p *PrometheusCollector) AdmissionRejected(reason string) {
	p.admissionsRejected.WithLabelValues(reason).Inc()
}

func (p *PrometheusCollector) ViewOnceIssued() {
	p.viewOnceIssued.Inc()
}

func (p *PrometheusCollector) ViewOnceRedeemed(ok bool) {
	p.viewOnceRedeemed.WithLabelValues(strconv.FormatBool(ok)).Inc()
}
