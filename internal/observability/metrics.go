package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector bundles Prometheus metrics for the simulation engine and
// provides a ready-made /metrics handler. It satisfies core.MetricsRecorder
// so a controller can drive the series directly from its mutators.
type SimCollector struct {
	gatherer prometheus.Gatherer

	EventsTotal     *prometheus.CounterVec
	CollisionsTotal prometheus.Counter
	ReroutesTotal   prometheus.Counter
	LiveEntities    prometheus.Gauge
	StepDuration    prometheus.Histogram
}

// NewSimCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metro_events_total",
		Help: "Total number of emitted simulation events, labeled by category.",
	}, []string{"category"})
	events, err := registerCounterVec(reg, events, "metro_events_total")
	if err != nil {
		return nil, err
	}

	collisions, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "metro_collisions_total",
		Help: "Total number of entity collision pairs detected.",
	}), "metro_collisions_total")
	if err != nil {
		return nil, err
	}

	reroutes, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "metro_reroutes_total",
		Help: "Total number of crisis-triggered reroutes taken.",
	}), "metro_reroutes_total")
	if err != nil {
		return nil, err
	}

	entities, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "metro_live_entities",
		Help: "Current number of live entities in the controller.",
	}), "metro_live_entities")
	if err != nil {
		return nil, err
	}

	steps := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "metro_step_duration_seconds",
		Help:    "Wall-clock duration of one simulation step.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	})
	steps, err = registerHistogram(reg, steps, "metro_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:        gatherer,
		EventsTotal:     events,
		CollisionsTotal: collisions,
		ReroutesTotal:   reroutes,
		LiveEntities:    entities,
		StepDuration:    steps,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordEvent counts one emitted event of the given category.
func (c *SimCollector) RecordEvent(category string) {
	if c == nil || c.EventsTotal == nil {
		return
	}
	c.EventsTotal.WithLabelValues(category).Inc()
}

// RecordCollision counts one collision pair.
func (c *SimCollector) RecordCollision() {
	if c == nil || c.CollisionsTotal == nil {
		return
	}
	c.CollisionsTotal.Inc()
}

// RecordReroute counts one crisis reroute.
func (c *SimCollector) RecordReroute() {
	if c == nil || c.ReroutesTotal == nil {
		return
	}
	c.ReroutesTotal.Inc()
}

// SetLiveEntities tracks the live population.
func (c *SimCollector) SetLiveEntities(n int) {
	if c == nil || c.LiveEntities == nil {
		return
	}
	c.LiveEntities.Set(float64(n))
}

// ObserveStepDuration records the wall-clock cost of one step.
func (c *SimCollector) ObserveStepDuration(d time.Duration) {
	if c == nil || c.StepDuration == nil {
		return
	}
	c.StepDuration.Observe(d.Seconds())
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
