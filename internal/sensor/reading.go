package sensor

// Reading is one acquisition cycle's worth of station data. It is produced
// by Acquire and handed by value to the publisher and the sleep policy.
type Reading struct {
	Temp      float64 // °C
	Humidity  float64 // %RH
	HeatIndex float64 // °C
	Soil      int     // 0-100 %
	Solar     float64 // V, 0-10
	Power     int     // 0-100 %
	VCC       float64 // V, 0-10
	Storage   int     // 0-100 %
}

// Climate is a temperature/humidity sample.
type Climate struct {
	Temperature float64 // °C
	Humidity    float64 // %RH
}

// Hygrometer reads the temperature/humidity sensor. A nil error is the
// sensor's OK status; on failure the returned Climate still carries whatever
// the sensor produced (usually NaN).
type Hygrometer interface {
	Sense() (Climate, error)
}

// Multiplexer samples one analog channel behind the select lines.
type Multiplexer interface {
	Read(channel int) (int, error)
}
