// Package metrics provides the per-engine-instance prometheus
// collectors the device accounting (§4.5) and chunk I/O (§4.3) paths
// report through. Each Engine owns its own Registry rather than
// registering into prometheus' global default registry: two actor
// instances in one process must not collide on metric label values or
// share counters.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the set of collectors one Engine instance owns.
type Metrics struct {
	Registry *prometheus.Registry

	OpLatency  *prometheus.HistogramVec
	SpaceUsed  prometheus.Gauge
	DeviceSize prometheus.Gauge
}

// New constructs a fresh, unregistered-elsewhere collector set labeled
// with the owning actor's instance id.
func New(instanceID string) *Metrics {
	reg := prometheus.NewRegistry()

	opLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   "actorfs",
		Subsystem:   "engine",
		Name:        "op_duration_seconds",
		Help:        "Latency of engine operations.",
		ConstLabels: prometheus.Labels{"instance": instanceID},
		Buckets:     prometheus.DefBuckets,
	}, []string{"op"})

	spaceUsed := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "actorfs",
		Subsystem:   "device",
		Name:        "space_used_bytes",
		Help:        "Sum of chunk payload lengths across all inodes (meta.space_used).",
		ConstLabels: prometheus.Labels{"instance": instanceID},
	})

	deviceSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "actorfs",
		Subsystem:   "device",
		Name:        "size_bytes",
		Help:        "Configured device capacity (meta.device_size).",
		ConstLabels: prometheus.Labels{"instance": instanceID},
	})

	reg.MustRegister(opLatency, spaceUsed, deviceSize)

	return &Metrics{
		Registry:   reg,
		OpLatency:  opLatency,
		SpaceUsed:  spaceUsed,
		DeviceSize: deviceSize,
	}
}

// Timeit observes the elapsed time for op since start.
func (m *Metrics) Timeit(op string, start time.Time) {
	if m == nil {
		return
	}
	m.OpLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// SetDeviceStats refreshes the space_used/device_size gauges; called by
// Device Accounting after any size-changing operation.
func (m *Metrics) SetDeviceStats(spaceUsed, deviceSize int64) {
	if m == nil {
		return
	}
	m.SpaceUsed.Set(float64(spaceUsed))
	m.DeviceSize.Set(float64(deviceSize))
}
