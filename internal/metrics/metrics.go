package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the production counters exposed on /metrics.
type Registry struct {
	reg *prometheus.Registry

	PeriodsCalculated *prometheus.CounterVec
	PeriodsRejected   *prometheus.CounterVec
	ParseErrors       prometheus.Counter
	Shortfalls        *prometheus.CounterVec
	UnitsProduced     prometheus.Counter
	LengthProduced    prometheus.Counter
	RemainingYarn     prometheus.Gauge
	LoomStock         *prometheus.GaugeVec
	StoreLatencySec   *prometheus.HistogramVec
}

// NewRegistry builds a registry with Go runtime collectors.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	calculated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loomstock_periods_calculated_total",
		Help: "Weekly calculations by mode (preview or submit).",
	}, []string{"mode"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loomstock_periods_rejected_total",
		Help: "Calculations aborted by error kind.",
	}, []string{"reason"})
	parseErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loomstock_length_parse_errors_total",
		Help: "Loom length lists discarded because they did not parse.",
	})
	shortfalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loomstock_shortfalls_total",
		Help: "Negative balances seen in submitted periods.",
	}, []string{"kind"})
	units := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loomstock_units_produced_total",
		Help: "Woven units (taga) in submitted periods.",
	})
	length := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loomstock_length_produced_meters_total",
		Help: "Woven length before wastage in submitted periods.",
	})
	remainingYarn := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "loomstock_remaining_yarn_kg",
		Help: "Remaining yarn after the last submitted period.",
	})
	loomStock := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "loomstock_loom_unit_stock",
		Help: "Remaining unit stock per loom after the last submitted period.",
	}, []string{"loom"})
	storeLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loomstock_store_latency_seconds",
		Help:    "Period log call latency by operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	r.MustRegister(calculated, rejected, parseErrors, shortfalls, units, length, remainingYarn, loomStock, storeLatency)
	r.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Registry{
		reg:               r,
		PeriodsCalculated: calculated,
		PeriodsRejected:   rejected,
		ParseErrors:       parseErrors,
		Shortfalls:        shortfalls,
		UnitsProduced:     units,
		LengthProduced:    length,
		RemainingYarn:     remainingYarn,
		LoomStock:         loomStock,
		StoreLatencySec:   storeLatency,
	}
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
