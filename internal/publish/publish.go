// Package publish turns a Reading into the station's retained MQTT topics.
package publish

import (
	"log/slog"
	"math"
	"strconv"

	"cloudpico-station/internal/sensor"
)

// Sink publishes one text payload to a topic.
type Sink interface {
	Publish(topic string, payload string, retained bool) error
}

// Field is one published value, Name being the last topic segment.
type Field struct {
	Name  string
	Value string
}

// Fields renders r in publish order. Floats carry two decimals, integers none.
func Fields(r sensor.Reading) []Field {
	return []Field{
		{"temp", formatFloat(r.Temp)},
		{"humidity", formatFloat(r.Humidity)},
		{"heatindex", formatFloat(r.HeatIndex)},
		{"soil", strconv.Itoa(r.Soil)},
		{"solar", formatFloat(r.Solar)},
		{"vcc", formatFloat(r.VCC)},
		{"power", strconv.Itoa(r.Power)},
		{"storage", strconv.Itoa(r.Storage)},
	}
}

// Topic joins the prefix and a field name ("weather" + "vcc" = "weather/vcc").
func Topic(prefix, name string) string {
	return prefix + "/" + name
}

// Publish sends every field as a retained message. A failed publish is
// logged and does not stop the rest; the number of successful publishes is
// returned.
func Publish(sink Sink, prefix string, r sensor.Reading, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}

	ok := 0
	for _, f := range Fields(r) {
		topic := Topic(prefix, f.Name)
		if err := sink.Publish(topic, f.Value, true); err != nil {
			logger.Warn("publish failed", "topic", topic, "error", err)
			continue
		}
		ok++
	}
	logger.Info("reading published", "topics", ok, "prefix", prefix)
	return ok
}

// formatFloat renders non-finite values as nan, inf and -inf, the tokens
// existing subscribers already parse.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
