// Package metrics holds the Prometheus collectors for the prediction pipeline.
// All methods are safe on a nil *Metrics so components can run without them.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "leafscan"

type Metrics struct {
	Predictions        *prometheus.CounterVec
	ClassifierDuration prometheus.Histogram
	ClassifierInFlight prometheus.Gauge
	Generation         *prometheus.CounterVec
	RemedyFallbacks    *prometheus.CounterVec
	RemedyCache        *prometheus.CounterVec
	EventsDropped      prometheus.Counter
}

// New creates the collectors and registers them on registry.
func New(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction requests by result.",
		}, []string{"result"}),
		ClassifierDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classifier_duration_seconds",
			Help:      "Wall time of classifier process runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		ClassifierInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "classifier_inflight",
			Help:      "Classifier processes currently running.",
		}),
		Generation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Text generation calls by outcome.",
		}, []string{"outcome"}),
		RemedyFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remedy_fallbacks_total",
			Help:      "Remedy requests answered without generated text.",
		}, []string{"mode"}),
		RemedyCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remedy_cache_lookups_total",
			Help:      "Treatment plan cache lookups by result.",
		}, []string{"result"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events discarded because the dispatch queue was full or stopped.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.Predictions, m.ClassifierDuration, m.ClassifierInFlight,
		m.Generation, m.RemedyFallbacks, m.RemedyCache, m.EventsDropped,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	return m, nil
}

func (m *Metrics) ObservePrediction(result string) {
	if m == nil {
		return
	}
	m.Predictions.WithLabelValues(result).Inc()
}

// TrackClassifier marks a classifier run as started and returns the func
// that records its end.
func (m *Metrics) TrackClassifier() func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	m.ClassifierInFlight.Inc()
	return func() {
		m.ClassifierInFlight.Dec()
		m.ClassifierDuration.Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) ObserveGeneration(outcome string) {
	if m == nil {
		return
	}
	m.Generation.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRemedyFallback(mode string) {
	if m == nil {
		return
	}
	m.RemedyFallbacks.WithLabelValues(mode).Inc()
}

func (m *Metrics) ObserveRemedyCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.RemedyCache.WithLabelValues(result).Inc()
}

func (m *Metrics) IncEventsDropped() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}
