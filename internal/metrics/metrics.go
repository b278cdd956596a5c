// Package metrics keeps station gauges in a private Prometheus registry and
// writes them for node_exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"cloudpico-station/internal/sensor"
)

const namespace = "weatherstation"

type Recorder struct {
	path     string
	registry *prometheus.Registry

	reading  *prometheus.GaugeVec
	cycles   *prometheus.CounterVec
	sleep    prometheus.Gauge
	lastWake prometheus.Gauge
}

// New returns a Recorder. With an empty path Flush is a no-op.
func New(path string) *Recorder {
	r := &Recorder{
		path:     path,
		registry: prometheus.NewRegistry(),
		reading: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reading",
			Help:      "Last published station reading by field.",
		}, []string{"field"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Wake cycles by outcome.",
		}, []string{"result"}),
		sleep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sleep_seconds",
			Help:      "Sleep duration chosen at the end of the last cycle.",
		}),
		lastWake: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the last cycle finished.",
		}),
	}
	r.registry.MustRegister(r.reading, r.cycles, r.sleep, r.lastWake)
	return r
}

func (r *Recorder) Observe(reading sensor.Reading) {
	r.reading.WithLabelValues("temp").Set(reading.Temp)
	r.reading.WithLabelValues("humidity").Set(reading.Humidity)
	r.reading.WithLabelValues("heatindex").Set(reading.HeatIndex)
	r.reading.WithLabelValues("soil").Set(float64(reading.Soil))
	r.reading.WithLabelValues("solar").Set(reading.Solar)
	r.reading.WithLabelValues("vcc").Set(reading.VCC)
	r.reading.WithLabelValues("power").Set(float64(reading.Power))
	r.reading.WithLabelValues("storage").Set(float64(reading.Storage))
}

// CycleDone records the outcome ("ok", "acquire_error", ...) and the chosen sleep.
func (r *Recorder) CycleDone(result string, sleep time.Duration) {
	r.cycles.WithLabelValues(result).Inc()
	r.sleep.Set(sleep.Seconds())
	r.lastWake.SetToCurrentTime()
}

// Flush writes the registry atomically to the textfile path.
func (r *Recorder) Flush() error {
	if r.path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(r.path, r.registry)
}
