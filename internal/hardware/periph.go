package hardware

import (
	"fmt"
	"math"

	"cloudpico-station/internal/config"
	"cloudpico-station/internal/sensor"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// OpenPeriph opens the Raspberry Pi board: four GPIO lines, an ADS1115 on
// I2C whose channel 0 is the multiplexer output, and a BME280 hygrometer.
func OpenPeriph(cfg config.Config) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	b := &Board{}
	ok := false
	defer func() {
		if !ok {
			_ = b.Close()
		}
	}()

	var err error
	if b.Power, err = outputPin(b, cfg.PinPower); err != nil {
		return nil, err
	}
	if b.MuxC, err = outputPin(b, cfg.PinMuxC); err != nil {
		return nil, err
	}
	if b.MuxB, err = outputPin(b, cfg.PinMuxB); err != nil {
		return nil, err
	}
	if b.MuxA, err = outputPin(b, cfg.PinMuxA); err != nil {
		return nil, err
	}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("i2creg.Open(%q): %w", cfg.I2CBus, err)
	}
	b.onClose(bus.Close)

	adc, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: cfg.ADS1115Address})
	if err != nil {
		return nil, fmt.Errorf("ads1115 at 0x%02X: %w", cfg.ADS1115Address, err)
	}
	maxVoltage := physic.ElectricPotential(cfg.ADCReferenceVolts * float64(physic.Volt))
	pin, err := adc.PinForChannel(ads1x15.Channel0, maxVoltage, 1*physic.Hertz, ads1x15.BestQuality)
	if err != nil {
		return nil, fmt.Errorf("ads1115 channel 0: %w", err)
	}
	b.onClose(pin.Halt)
	b.Input = &scaledInput{
		pin:       pin,
		refVolts:  cfg.ADCReferenceVolts,
		fullScale: cfg.Calibration.ADCFullScale,
	}

	dev, err := bmxx80.NewI2C(bus, cfg.BME280Address, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("bme280 at 0x%02X: %w", cfg.BME280Address, err)
	}
	b.onClose(dev.Halt)
	b.Hygrometer = &bmeHygrometer{dev: dev}

	ok = true
	return b, nil
}

func outputPin(b *Board, name string) (gpio.PinOut, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %q not found", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("gpio %q out: %w", name, err)
	}
	b.onClose(func() error { return p.Out(gpio.Low) })
	return p, nil
}

// scaledInput maps the ADS1115 voltage onto the count range the calibration
// was taken with, so a reading of refVolts equals fullScale counts.
type scaledInput struct {
	pin       analog.PinADC
	refVolts  float64
	fullScale float64
}

func (s *scaledInput) Read() (analog.Sample, error) {
	sample, err := s.pin.Read()
	if err != nil {
		return analog.Sample{}, err
	}
	volts := float64(sample.V) / float64(physic.Volt)
	counts := math.Round(volts / s.refVolts * s.fullScale)
	if counts < 0 {
		counts = 0
	}
	return analog.Sample{V: sample.V, Raw: int32(counts)}, nil
}

type bmeHygrometer struct {
	dev *bmxx80.Dev
}

func (h *bmeHygrometer) Sense() (sensor.Climate, error) {
	var env physic.Env
	if err := h.dev.Sense(&env); err != nil {
		return sensor.Climate{Temperature: math.NaN(), Humidity: math.NaN()}, fmt.Errorf("bme280 sense: %w", err)
	}
	return sensor.Climate{
		Temperature: env.Temperature.Celsius(),
		// env.Humidity is fixed point at 0.00001 %rH.
		Humidity: float64(env.Humidity) / float64(physic.PercentRH),
	}, nil
}
