// Package metrics exports framing events as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/praetorian-inc/framer/pkg/framing"
)

const namespace = "framer"

// Observer implements framing.Observer with Prometheus collectors.
// Channel keys are not used as labels; they are usually remote addresses.
type Observer struct {
	packets    *prometheus.CounterVec // status: accepted, rejected
	bytes      prometheus.Counter
	packetSize prometheus.Histogram
	evicted    prometheus.Counter
	dataErrors prometheus.Counter
	channels   prometheus.Gauge
	opened     prometheus.Counter
}

var _ framing.Observer = (*Observer)(nil)

// New creates the collectors and registers them with reg. Every metric
// carries a constant "profile" label.
func New(reg prometheus.Registerer, profile string) (*Observer, error) {
	o := &Observer{
		packets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_total",
			Help:      "Packets delivered to the result callback, by verdict",
		}, []string{"status"}),

		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packet_bytes_total",
			Help:      "Payload bytes of accepted packets",
		}),

		packetSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "packet_size_bytes",
			Help:      "Size of delivered packets",
			Buckets:   prometheus.ExponentialBuckets(8, 4, 8), // 8 B to 128 KiB
		}),

		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evicted_bytes_total",
			Help:      "Bytes dropped by channel overflow eviction",
		}),

		dataErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "data_errors_total",
			Help:      "Corrupt headers reported by the framing strategy",
		}),

		channels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels",
			Help:      "Currently registered channels",
		}),

		opened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channels_opened_total",
			Help:      "Channels registered since start",
		}),
	}

	wrapped := prometheus.WrapRegistererWith(prometheus.Labels{"profile": profile}, reg)
	for _, c := range []prometheus.Collector{
		o.packets, o.bytes, o.packetSize, o.evicted, o.dataErrors, o.channels, o.opened,
	} {
		if err := wrapped.Register(c); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// ChannelAdded implements framing.Observer.
func (o *Observer) ChannelAdded(string) {
	o.channels.Inc()
	o.opened.Inc()
}

// ChannelRemoved implements framing.Observer.
func (o *Observer) ChannelRemoved(string) {
	o.channels.Dec()
}

// Packet implements framing.Observer.
func (o *Observer) Packet(_ string, size int, accepted bool) {
	o.packetSize.Observe(float64(size))
	if !accepted {
		o.packets.WithLabelValues("rejected").Inc()
		return
	}
	o.packets.WithLabelValues("accepted").Inc()
	o.bytes.Add(float64(size))
}

// Evicted implements framing.Observer.
func (o *Observer) Evicted(_ string, n int) {
	o.evicted.Add(float64(n))
}

// DataError implements framing.Observer.
func (o *Observer) DataError(string, error) {
	o.dataErrors.Inc()
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
