package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"evolvekit/internal/evo"
)

const defaultNamespace = "evolvekit"

// Metrics exports engine events to Prometheus. It implements evo.Observer
// and owns its registry, so several instances can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	generations        prometheus.Counter
	runsStarted        prometheus.Counter
	runsCompleted      *prometheus.CounterVec
	crossoverFailures  *prometheus.CounterVec
	statsDropped       prometheus.Counter
	generationDuration prometheus.Histogram
	bestFitness        prometheus.Gauge
	avgFitness         prometheus.Gauge
	populationSize     prometheus.Gauge
}

var _ evo.Observer = (*Metrics)(nil)

// NewMetrics registers the engine metrics under namespace, or under
// "evolvekit" when namespace is empty.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = defaultNamespace
	}
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Total number of evaluated generations",
		}),
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of engine runs started",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_completed_total",
			Help:      "Total number of engine runs finished, by status",
		}, []string{"status"}),
		crossoverFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crossover_failures_total",
			Help:      "Total number of failed crossover attempts, by reason",
		}, []string{"reason"}),
		statsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stats_dropped_total",
			Help:      "Stats values dropped because a subscriber was not keeping up",
		}),
		generationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of one pipeline pass in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
		}),
		bestFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_fitness",
			Help:      "Best fitness of the latest generation",
		}),
		avgFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "avg_fitness",
			Help:      "Average fitness of the latest generation",
		}),
		populationSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "population_size",
			Help:      "Size of the latest generation",
		}),
	}

	registry.MustRegister(
		m.generations,
		m.runsStarted,
		m.runsCompleted,
		m.crossoverFailures,
		m.statsDropped,
		m.generationDuration,
		m.bestFitness,
		m.avgFitness,
		m.populationSize,
	)
	return m
}

func (m *Metrics) RunStarted() { m.runsStarted.Inc() }

func (m *Metrics) RunFinished(status evo.RunStatus) {
	m.runsCompleted.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) GenerationEvaluated(_ int, stats evo.PopulationStats) {
	m.generations.Inc()
	m.bestFitness.Set(stats.MaxFitness.Value())
	m.avgFitness.Set(stats.AvgFitness.Value())
	m.populationSize.Set(float64(stats.Size))
}

func (m *Metrics) PipelineCompleted(elapsed time.Duration) {
	m.generationDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) CrossoverFailed(reason string) {
	m.crossoverFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) StatsDropped() { m.statsDropped.Inc() }

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Server returns an HTTP server exposing Handler on addr under /metrics.
func (m *Metrics) Server(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
