package utils

import "periph.io/x/conn/v3/gpio"

// Levels formats digital levels as a bit string (e.g. "101"), first level first.
// Keeps select-line patterns short in debug logs.
func Levels(levels ...gpio.Level) string {
	out := make([]byte, len(levels))
	for i, l := range levels {
		if l == gpio.High {
			out[i] = '1'
		} else {
			out[i] = '0'
		}
	}
	return string(out)
}
