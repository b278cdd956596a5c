package sensor

import "math"

// HeatIndex returns the apparent temperature in °C for an air temperature in
// °C and a relative humidity in percent. Steadman's simple form is used below
// 80°F and the Rothfusz regression with its low/high humidity adjustments above.
func HeatIndex(celsius, humidity float64) float64 {
	t := celsius*1.8 + 32
	hi := 0.5 * (t + 61.0 + ((t - 68.0) * 1.2) + (humidity * 0.094))

	if hi > 79 {
		hi = -42.379 +
			2.04901523*t +
			10.14333127*humidity +
			-0.22475541*t*humidity +
			-0.00683783*t*t +
			-0.05481717*humidity*humidity +
			0.00122874*t*t*humidity +
			0.00085282*t*humidity*humidity +
			-0.00000199*t*t*humidity*humidity

		switch {
		case humidity < 13 && t >= 80 && t <= 112:
			hi -= ((13 - humidity) * 0.25) * math.Sqrt((17-math.Abs(t-95))*0.05882)
		case humidity > 85 && t >= 80 && t <= 87:
			hi += ((humidity - 85) * 0.1) * ((87 - t) * 0.2)
		}
	}

	return (hi - 32) / 1.8
}
