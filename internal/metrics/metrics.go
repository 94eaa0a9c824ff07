package metrics

import (
	"math"
	"net/http"
	"time"

	"github.com/innbucks/dashboard/internal/engine"
	"github.com/innbucks/dashboard/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "innbucks"

// Collector records snapshot builds and the headline KPIs of the current
// snapshot.
type Collector struct {
	registry *prometheus.Registry

	buildDuration prometheus.Histogram
	builds        *prometheus.CounterVec
	rows          *prometheus.GaugeVec
	volume        prometheus.Gauge
	deposits      prometheus.Gauge
	rates         *prometheus.GaugeVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_build_seconds",
			Help:      "Time spent generating and aggregating a snapshot.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_builds_total",
			Help:      "Snapshot builds by result.",
		}, []string{"result"}),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Rows per table in the current snapshot.",
		}, []string{"table"}),
		volume: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transaction_volume_usd",
			Help:      "Total transaction volume of the current snapshot.",
		}),
		deposits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "customer_deposits_usd",
			Help:      "Total customer deposits of the current snapshot.",
		}),
		rates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate",
			Help:      "Rate KPIs of the current snapshot. NaN when undefined.",
		}, []string{"kpi"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.buildDuration, c.builds, c.rows, c.volume, c.deposits, c.rates,
	)
	return c
}

// ObserveBuild records one build attempt. snap is ignored when err is set.
func (c *Collector) ObserveBuild(snap *engine.Snapshot, took time.Duration, err error) {
	if err != nil {
		c.builds.WithLabelValues("error").Inc()
		return
	}
	c.builds.WithLabelValues("ok").Inc()
	c.buildDuration.Observe(took.Seconds())

	ds := snap.Dataset
	c.rows.WithLabelValues("customers").Set(float64(len(ds.Customers)))
	c.rows.WithLabelValues("accounts").Set(float64(len(ds.Accounts)))
	c.rows.WithLabelValues("transactions").Set(float64(len(ds.Transactions)))
	c.rows.WithLabelValues("agents").Set(float64(len(ds.Agents)))

	k := snap.Dashboard.KPIs
	c.volume.Set(k.TotalVolume)
	c.deposits.Set(k.TotalDeposits)
	c.rates.WithLabelValues("kyc_completion").Set(gaugeValue(k.KYCCompletionRate))
	c.rates.WithLabelValues("success").Set(gaugeValue(k.SuccessRate))
}

func gaugeValue(r models.Ratio) float64 {
	if !r.Defined {
		return math.NaN()
	}
	return r.Value
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
