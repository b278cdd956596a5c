package sensor

import (
	"errors"
	"fmt"
)

// Calibration holds the divider, offset and raw-range constants of one
// station board revision. Raw values are ADC counts on the 10-bit scale.
type Calibration struct {
	// Voltage divider: GND > R2 > tap > R1 > input.
	R1           float64 `yaml:"r1_ohms"`
	R2           float64 `yaml:"r2_ohms"`
	ADCFullScale float64 `yaml:"adc_full_scale"`

	SolarOffset  float64 `yaml:"solar_offset_v"`
	SupplyOffset float64 `yaml:"supply_offset_v"`
	VoltsMin     float64 `yaml:"volts_min"`
	VoltsMax     float64 `yaml:"volts_max"`

	// Soil probe reads higher when drier.
	SoilDry int `yaml:"soil_dry_raw"`
	SoilWet int `yaml:"soil_wet_raw"`

	PowerRawMin int `yaml:"power_raw_min"`
	PowerRawMax int `yaml:"power_raw_max"`

	StorageEmpty int `yaml:"storage_empty_raw"`
	StorageFull  int `yaml:"storage_full_raw"`

	ChannelSoil   int `yaml:"channel_soil"`
	ChannelSolar  int `yaml:"channel_solar"`
	ChannelSupply int `yaml:"channel_supply"`
}

// DefaultCalibration matches the rev 1 board: 470k/100k divider, 4051 mux
// with soil on 0, solar on 1 and the storage battery on 2.
func DefaultCalibration() Calibration {
	return Calibration{
		R1:            470000,
		R2:            100000,
		ADCFullScale:  1023,
		SolarOffset:   0.13,
		SupplyOffset:  0.15,
		VoltsMin:      0,
		VoltsMax:      10,
		SoilDry:       850,
		SoilWet:       440,
		PowerRawMin:   0,
		PowerRawMax:   1024,
		StorageEmpty:  556,
		StorageFull:   780,
		ChannelSoil:   0,
		ChannelSolar:  1,
		ChannelSupply: 2,
	}
}

func (c Calibration) Validate() error {
	var errs []error
	if c.R1 < 0 || c.R2 <= 0 {
		errs = append(errs, fmt.Errorf("divider resistors must be positive (r1=%v r2=%v)", c.R1, c.R2))
	}
	if c.ADCFullScale <= 0 {
		errs = append(errs, fmt.Errorf("adc_full_scale must be positive, got %v", c.ADCFullScale))
	}
	if c.VoltsMax <= c.VoltsMin {
		errs = append(errs, fmt.Errorf("volts_max (%v) must be above volts_min (%v)", c.VoltsMax, c.VoltsMin))
	}
	if c.SoilDry == c.SoilWet {
		errs = append(errs, errors.New("soil_dry_raw and soil_wet_raw must differ"))
	}
	if c.PowerRawMax == c.PowerRawMin {
		errs = append(errs, errors.New("power_raw_min and power_raw_max must differ"))
	}
	if c.StorageFull == c.StorageEmpty {
		errs = append(errs, errors.New("storage_empty_raw and storage_full_raw must differ"))
	}
	for name, ch := range map[string]int{
		"channel_soil":   c.ChannelSoil,
		"channel_solar":  c.ChannelSolar,
		"channel_supply": c.ChannelSupply,
	} {
		if ch < 0 || ch > 7 {
			errs = append(errs, fmt.Errorf("%s must be 0-7, got %d", name, ch))
		}
	}
	return errors.Join(errs...)
}

// DividerFactor is the number of ADC counts per volt at the divider input.
func (c Calibration) DividerFactor() float64 {
	return c.ADCFullScale * (c.R2 / (c.R1 + c.R2))
}

// SoilPercent maps the soil probe onto 0-100, wet end = 100.
func (c Calibration) SoilPercent(raw int) int {
	lo, hi := minMax(c.SoilWet, c.SoilDry)
	return Remap(Constrain(raw, lo, hi), c.SoilDry, c.SoilWet, 0, 100)
}

func (c Calibration) SolarVolts(raw int) float64 {
	return ConstrainFloat(float64(raw)/c.DividerFactor()-c.SolarOffset, c.VoltsMin, c.VoltsMax)
}

// PowerPercent is the solar panel output as a share of the ADC range.
func (c Calibration) PowerPercent(raw int) int {
	return Constrain(Remap(raw, c.PowerRawMin, c.PowerRawMax, 0, 100), 0, 100)
}

func (c Calibration) SupplyVolts(raw int) float64 {
	return ConstrainFloat(float64(raw)/c.DividerFactor()-c.SupplyOffset, c.VoltsMin, c.VoltsMax)
}

// StoragePercent is the battery charge estimate from the supply tap.
func (c Calibration) StoragePercent(raw int) int {
	lo, hi := minMax(c.StorageEmpty, c.StorageFull)
	return Remap(Constrain(raw, lo, hi), c.StorageEmpty, c.StorageFull, 0, 100)
}

func minMax(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}
