// Package sleep picks how long the station stays down between wake cycles
// and puts it there.
package sleep

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Policy maps the supply voltage onto a sleep duration in three tiers.
// Voltages above MidVoltsMax but below HighVolts fall through to the Low tier.
type Policy struct {
	HighVolts   float64 `yaml:"high_volts"`
	MidVoltsMin float64 `yaml:"mid_volts_min"`
	MidVoltsMax float64 `yaml:"mid_volts_max"`

	High time.Duration `yaml:"high"`
	Mid  time.Duration `yaml:"mid"`
	Low  time.Duration `yaml:"low"`
}

func DefaultPolicy() Policy {
	return Policy{
		HighVolts:   3.50,
		MidVoltsMin: 3.20,
		MidVoltsMax: 3.49,
		High:        600_000_000 * time.Microsecond,
		Mid:         1_800_000_000 * time.Microsecond,
		Low:         3_600_000_000 * time.Microsecond,
	}
}

// Validate rejects tiers that would let the station wake straight back up
// and thresholds that are unordered.
func (p Policy) Validate() error {
	var errs []error
	for name, v := range map[string]float64{
		"high_volts":    p.HighVolts,
		"mid_volts_min": p.MidVoltsMin,
		"mid_volts_max": p.MidVoltsMax,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be finite, got %v", name, v))
		}
	}
	if p.MidVoltsMin > p.MidVoltsMax {
		errs = append(errs, fmt.Errorf("mid_volts_min (%v) must not exceed mid_volts_max (%v)", p.MidVoltsMin, p.MidVoltsMax))
	}
	if p.MidVoltsMax >= p.HighVolts {
		errs = append(errs, fmt.Errorf("mid_volts_max (%v) must be below high_volts (%v)", p.MidVoltsMax, p.HighVolts))
	}
	for _, d := range []struct {
		name string
		v    time.Duration
	}{{"high", p.High}, {"mid", p.Mid}, {"low", p.Low}} {
		if d.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", d.name, d.v))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// Duration is total over float64; NaN selects the Low tier.
func (p Policy) Duration(vcc float64) time.Duration {
	switch {
	case vcc >= p.HighVolts:
		return p.High
	case vcc >= p.MidVoltsMin && vcc <= p.MidVoltsMax:
		return p.Mid
	default:
		return p.Low
	}
}
