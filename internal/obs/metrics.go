package obs

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the process-wide counter/gauge set. Each process constructs
// its own (it is not a package-level global, for the same reason the
// session and room-handle tables aren't: spec design note on bounded
// components with explicit lifecycles).
type Metrics struct {
	Registry *prometheus.Registry

	ActionsTotal  *prometheus.CounterVec
	ActionErrors  *prometheus.CounterVec
	RoomsActive   prometheus.Gauge
	RoomsReaped   prometheus.Counter
	BagRefills    prometheus.Counter
	SnapshotsSent prometheus.Counter
}

// NewMetrics registers and returns a fresh Metrics set for component.
func NewMetrics(component string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		ActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arcadehost",
			Subsystem: component,
			Name:      "actions_total",
			Help:      "Dispatched wire actions by name.",
		}, []string{"action"}),
		ActionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arcadehost",
			Subsystem: component,
			Name:      "action_errors_total",
			Help:      "Dispatched wire actions that returned an error frame, by name.",
		}, []string{"action"}),
		RoomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arcadehost",
			Subsystem: component,
			Name:      "rooms_active",
			Help:      "Rooms currently tracked in the lobby's live room-handle table.",
		}),
		RoomsReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arcadehost",
			Subsystem: component,
			Name:      "rooms_reaped_total",
			Help:      "Rooms reaped by the monitor task after process exit.",
		}),
		BagRefills: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arcadehost",
			Subsystem: component,
			Name:      "bag_refills_total",
			Help:      "Times a room's 7-bag generator was reshuffled.",
		}),
		SnapshotsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arcadehost",
			Subsystem: component,
			Name:      "snapshots_sent_total",
			Help:      "Snapshot frames broadcast by a room.",
		}),
	}
	reg.MustRegister(m.ActionsTotal, m.ActionErrors, m.RoomsActive, m.RoomsReaped, m.BagRefills, m.SnapshotsSent)
	return m
}

// ObserveDispatch records one dispatched action's outcome.
func (m *Metrics) ObserveDispatch(action string, failed bool) {
	if m == nil {
		return
	}
	m.ActionsTotal.WithLabelValues(action).Inc()
	if failed {
		m.ActionErrors.WithLabelValues(action).Inc()
	}
}

// IncBagRefill records one 7-bag generator reshuffle.
func (m *Metrics) IncBagRefill() {
	if m == nil {
		return
	}
	m.BagRefills.Inc()
}

// IncSnapshotSent records one snapshot frame broadcast to a room's
// connections.
func (m *Metrics) IncSnapshotSent() {
	if m == nil {
		return
	}
	m.SnapshotsSent.Inc()
}
