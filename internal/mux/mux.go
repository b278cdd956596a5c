// Package mux drives a 4051-style 8:1 analog multiplexer: three select
// lines (C, B, A) route one channel onto a shared ADC input.
package mux

import (
	"errors"
	"fmt"
	"log/slog"

	"cloudpico-station/internal/hardware"
	"cloudpico-station/internal/utils"

	"periph.io/x/conn/v3/gpio"
)

const Channels = 8

var ErrChannelRange = errors.New("mux channel out of range")

// table maps channel to select levels in (C, B, A) order, most significant first.
var table = [Channels][3]gpio.Level{
	{gpio.Low, gpio.Low, gpio.Low},
	{gpio.Low, gpio.Low, gpio.High},
	{gpio.Low, gpio.High, gpio.Low},
	{gpio.Low, gpio.High, gpio.High},
	{gpio.High, gpio.Low, gpio.Low},
	{gpio.High, gpio.Low, gpio.High},
	{gpio.High, gpio.High, gpio.Low},
	{gpio.High, gpio.High, gpio.High},
}

type Mux struct {
	selects [3]hardware.DigitalOut
	input   hardware.AnalogIn
	logger  *slog.Logger
}

func New(c, b, a hardware.DigitalOut, input hardware.AnalogIn, logger *slog.Logger) *Mux {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mux{
		selects: [3]hardware.DigitalOut{c, b, a},
		input:   input,
		logger:  logger,
	}
}

// Pattern returns the (C, B, A) select levels for channel.
func Pattern(channel int) ([3]gpio.Level, error) {
	if channel < 0 || channel >= Channels {
		return [3]gpio.Level{}, fmt.Errorf("%w: %d", ErrChannelRange, channel)
	}
	return table[channel], nil
}

// Read selects channel and returns the raw ADC sample.
func (m *Mux) Read(channel int) (int, error) {
	levels, err := Pattern(channel)
	if err != nil {
		return 0, err
	}

	for i, l := range levels {
		if err := m.selects[i].Out(l); err != nil {
			return 0, fmt.Errorf("mux select line %d: %w", i, err)
		}
	}

	sample, err := m.input.Read()
	if err != nil {
		return 0, fmt.Errorf("mux sample channel %d: %w", channel, err)
	}

	m.logger.Debug("mux read",
		"channel", channel,
		"cba", utils.Levels(levels[:]...),
		"raw", sample.Raw,
	)
	return int(sample.Raw), nil
}
