package hardware

import (
	"errors"
	"fmt"

	"cloudpico-station/internal/config"
	"cloudpico-station/internal/sensor"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
)

// DigitalOut is the part of gpio.PinOut the station drives.
type DigitalOut interface {
	Out(l gpio.Level) error
}

// AnalogIn is the part of analog.PinADC the station samples.
// Sample.Raw is expressed on the calibration's ADC count scale.
type AnalogIn interface {
	Read() (analog.Sample, error)
}

// Board is every line the station uses during one wake cycle.
type Board struct {
	Power      DigitalOut
	MuxC       DigitalOut
	MuxB       DigitalOut
	MuxA       DigitalOut
	Input      AnalogIn
	Hygrometer sensor.Hygrometer

	closers []func() error
}

// Close releases the board in reverse open order.
func (b *Board) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

func (b *Board) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

// Open opens the backend selected by cfg.Hardware.
func Open(cfg config.Config) (*Board, error) {
	switch cfg.Hardware {
	case config.HardwarePeriph:
		return OpenPeriph(cfg)
	case config.HardwareSim:
		return OpenSim(cfg), nil
	default:
		return nil, fmt.Errorf("unknown hardware backend %q", cfg.Hardware)
	}
}
