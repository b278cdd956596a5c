package hardware

import (
	"sync"

	"cloudpico-station/internal/config"
	"cloudpico-station/internal/sensor"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
)

// OpenSim returns a board with no real hardware behind it. The analog input
// answers with cfg.SimRaw[channel] for whichever channel the select lines
// currently address, so the multiplexer logic runs unchanged.
func OpenSim(cfg config.Config) *Board {
	power := &SimPin{Name: cfg.PinPower}
	c := &SimPin{Name: cfg.PinMuxC}
	bl := &SimPin{Name: cfg.PinMuxB}
	a := &SimPin{Name: cfg.PinMuxA}

	b := &Board{
		Power: power,
		MuxC:  c,
		MuxB:  bl,
		MuxA:  a,
		Input: &simInput{c: c, b: bl, a: a, raw: cfg.SimRaw},
		Hygrometer: simHygrometer{climate: sensor.Climate{
			Temperature: cfg.SimTemperature,
			Humidity:    cfg.SimHumidity,
		}},
	}
	b.onClose(func() error { return power.Out(gpio.Low) })
	return b
}

// SimPin records the last level written to it.
type SimPin struct {
	Name string

	mu    sync.Mutex
	level gpio.Level
}

func (p *SimPin) Out(l gpio.Level) error {
	p.mu.Lock()
	p.level = l
	p.mu.Unlock()
	return nil
}

func (p *SimPin) Level() gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

type simInput struct {
	c, b, a *SimPin
	raw     [8]int
}

func (s *simInput) Read() (analog.Sample, error) {
	ch := 0
	if s.c.Level() == gpio.High {
		ch |= 4
	}
	if s.b.Level() == gpio.High {
		ch |= 2
	}
	if s.a.Level() == gpio.High {
		ch |= 1
	}
	return analog.Sample{Raw: int32(s.raw[ch])}, nil
}

type simHygrometer struct {
	climate sensor.Climate
}

func (h simHygrometer) Sense() (sensor.Climate, error) {
	return h.climate, nil
}
