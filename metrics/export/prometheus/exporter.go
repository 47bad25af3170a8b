package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrEthical07/tokenlife"
	"github.com/MrEthical07/tokenlife/metrics/export/internaldefs"
)

// Source is satisfied by *tokenlife.Engine.
type Source interface {
	MetricsSnapshot() tokenlife.MetricsSnapshot
}

type counterDesc struct {
	id   tokenlife.MetricID
	desc *prometheus.Desc
}

// Collector exposes a Source as const metrics on every scrape.
type Collector struct {
	source     Source
	counters   []counterDesc
	histograms []counterDesc
}

// NewCollector returns a collector reading from source.
func NewCollector(source Source) *Collector {
	c := &Collector{source: source}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, counterDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	return c
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counters {
		ch <- d.desc
	}
	for _, d := range c.histograms {
		ch <- d.desc
	}
}

// Collect emits nothing while engine metrics are disabled.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c == nil || c.source == nil {
		return
	}

	snapshot := c.source.MetricsSnapshot()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 {
		return
	}

	for _, d := range c.counters {
		ch <- prometheus.MustNewConstMetric(d.desc, prometheus.CounterValue, float64(snapshot.Counters[d.id]))
	}

	for _, d := range c.histograms {
		raw, ok := snapshot.Histograms[d.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramBounds))
		for i, le := range internaldefs.HistogramBounds {
			buckets[le] = cumulative[i]
		}
		count := cumulative[internaldefs.BucketCount-1]
		sum := snapshot.HistogramSums[d.id].Seconds()
		ch <- prometheus.MustNewConstHistogram(d.desc, count, sum, buckets)
	}
}

// Handler serves source on a fresh registry in the Prometheus exposition
// format.
func Handler(source Source) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(source))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

var _ prometheus.Collector = (*Collector)(nil)
