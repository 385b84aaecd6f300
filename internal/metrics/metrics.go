// Package metrics holds the Prometheus collectors natread exports while
// serving.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samcharles93/natread/pkg/nat"
)

const namespace = "natread"

type Metrics struct {
	reg *prometheus.Registry

	FilesDecoded   *prometheus.CounterVec
	FilesFailed    prometheus.Counter
	Records        *prometheus.CounterVec
	Malformed      *prometheus.CounterVec
	DecodeDuration *prometheus.HistogramVec
	SplitParts     prometheus.Counter
	BytesIngested  prometheus.Counter
	Uploads        prometheus.Gauge
}

// New registers every collector on a private registry, together with the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		FilesDecoded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_decoded_total",
			Help:      "Native files assembled, by product.",
		}, []string{"product"}),
		FilesFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      "Native files that could not be assembled.",
		}),
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records framed, by record class.",
		}, []string{"class"}),
		Malformed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_records_total",
			Help:      "Body records isolated as malformed, by product.",
		}, []string{"product"}),
		DecodeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_duration_seconds",
			Help:      "Time spent assembling one file.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"product"}),
		SplitParts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "split_parts_total",
			Help:      "Output parts written by split.",
		}),
		BytesIngested: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_bytes_total",
			Help:      "Bytes of native data accepted.",
		}),
		Uploads: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uploads",
			Help:      "Files currently held by the server.",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveFile records one successful assembly.
func (m *Metrics) ObserveFile(f *nat.File, elapsed time.Duration) {
	product := "unknown"
	if f.Product != nil {
		product = f.Product.Name()
	}
	m.FilesDecoded.WithLabelValues(product).Inc()
	m.DecodeDuration.WithLabelValues(product).Observe(elapsed.Seconds())
	m.Malformed.WithLabelValues(product).Add(float64(f.MalformedCount()))
	m.BytesIngested.Add(float64(f.Size()))
	for _, r := range f.Records() {
		m.Records.WithLabelValues(r.Header.Class.String()).Inc()
	}
}
