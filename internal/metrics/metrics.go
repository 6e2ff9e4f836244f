package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for the realtime and notification paths.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ActiveConnections prometheus.Gauge
	OnlineIdentities  prometheus.Gauge
	EventsEmitted     *prometheus.CounterVec
	FramesDropped     prometheus.Counter
	Notifications     prometheus.Counter
	PushResults       *prometheus.CounterVec
	StatusChanges     *prometheus.CounterVec
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "laundry_realtime_active_connections",
			Help: "Current number of open realtime connections",
		}),
		OnlineIdentities: factory.NewGauge(prometheus.GaugeOpts{
			Name: "laundry_realtime_online_identities",
			Help: "Current number of identities with at least one connection",
		}),
		EventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "laundry_realtime_events_emitted_total",
			Help: "Total number of events emitted to channels",
		}, []string{"event"}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "laundry_realtime_frames_dropped_total",
			Help: "Total number of frames dropped because a connection outbox was full",
		}),
		Notifications: factory.NewCounter(prometheus.CounterOpts{
			Name: "laundry_notifications_created_total",
			Help: "Total number of notification records persisted",
		}),
		PushResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "laundry_push_results_total",
			Help: "Push delivery attempts by outcome",
		}, []string{"outcome"}),
		StatusChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "laundry_status_changes_total",
			Help: "Applied status changes by entity and status",
		}, []string{"entity", "status"}),
	}
}

// ConnectionOpened counts a new websocket connection
func (m *Metrics) ConnectionOpened() {
	if m == nil || m.ActiveConnections == nil {
		return
	}
	m.ActiveConnections.Inc()
}

// ConnectionClosed uncounts a closed websocket connection
func (m *Metrics) ConnectionClosed() {
	if m == nil || m.ActiveConnections == nil {
		return
	}
	m.ActiveConnections.Dec()
}

// IdentityOnline counts an identity whose first local connection joined
func (m *Metrics) IdentityOnline() {
	if m == nil || m.OnlineIdentities == nil {
		return
	}
	m.OnlineIdentities.Inc()
}

// IdentityOffline uncounts an identity whose last local connection left
func (m *Metrics) IdentityOffline() {
	if m == nil || m.OnlineIdentities == nil {
		return
	}
	m.OnlineIdentities.Dec()
}

// RecordEmit counts one emitted event by name
func (m *Metrics) RecordEmit(event string) {
	if m == nil || m.EventsEmitted == nil {
		return
	}
	m.EventsEmitted.WithLabelValues(event).Inc()
}

// RecordDrop counts a frame dropped because a connection outbox was full
func (m *Metrics) RecordDrop() {
	if m == nil || m.FramesDropped == nil {
		return
	}
	m.FramesDropped.Inc()
}

// RecordNotification counts a persisted notification
func (m *Metrics) RecordNotification() {
	if m == nil || m.Notifications == nil {
		return
	}
	m.Notifications.Inc()
}

// RecordPush counts a push attempt; outcome is one of sent, invalid_token or failed.
func (m *Metrics) RecordPush(outcome string) {
	if m == nil || m.PushResults == nil {
		return
	}
	m.PushResults.WithLabelValues(outcome).Inc()
}

// RecordStatusChange counts an applied booking or delivery status change
func (m *Metrics) RecordStatusChange(entity, status string) {
	if m == nil || m.StatusChanges == nil {
		return
	}
	m.StatusChanges.WithLabelValues(entity, status).Inc()
}
