package draftsync

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by a Coordinator.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	dirty    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg. Collectors that
// are already registered are reused, so several coordinators may share one
// registry.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if namespace == "" {
		namespace = "draftsync"
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_requests_total",
			Help:      "Save requests by trigger and outcome status.",
		}, []string{"trigger", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "save_duration_seconds",
			Help:      "Duration of persistence client save calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"trigger", "result"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "saves_in_flight",
			Help:      "Persistence client save calls currently outstanding.",
		}),
		dirty: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_dirty",
			Help:      "1 while the session holds unsaved edits.",
		}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	m.requests, err = registerCollector(reg, m.requests)
	if err != nil {
		return nil, err
	}
	m.duration, err = registerCollector(reg, m.duration)
	if err != nil {
		return nil, err
	}
	m.inFlight, err = registerCollector(reg, m.inFlight)
	if err != nil {
		return nil, err
	}
	m.dirty, err = registerCollector(reg, m.dirty)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func registerCollector[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return collector, err
	}
	return collector, nil
}

func (m *Metrics) observeRequest(trigger Trigger, status Status) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(trigger.String(), string(status)).Inc()
}

func (m *Metrics) observeSave(trigger Trigger, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.duration.WithLabelValues(trigger.String(), result).Observe(elapsed.Seconds())
}

func (m *Metrics) saveStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) saveFinished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

func (m *Metrics) setDirty(dirty bool) {
	if m == nil {
		return
	}
	if dirty {
		m.dirty.Set(1)
		return
	}
	m.dirty.Set(0)
}
