package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloudpico-station/internal/utils"
)

type Options struct {
	// Settle is waited before the hygrometer is read (sensor minimum sampling period).
	Settle time.Duration
	// HygrometerRetries is how many extra reads are attempted after a failed one.
	HygrometerRetries int
}

// Acquirer fills a Reading from the hygrometer and the multiplexed ADC.
type Acquirer struct {
	mux        Multiplexer
	hygrometer Hygrometer
	cal        Calibration
	opts       Options
	logger     *slog.Logger
}

func NewAcquirer(mux Multiplexer, hygrometer Hygrometer, cal Calibration, opts Options, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.HygrometerRetries < 0 {
		opts.HygrometerRetries = 0
	}
	return &Acquirer{
		mux:        mux,
		hygrometer: hygrometer,
		cal:        cal,
		opts:       opts,
		logger:     logger,
	}
}

// Acquire reads every sensor once. Hygrometer failures are logged and the
// failed values are kept; only ADC errors and ctx cancellation are returned.
// On an ADC error the fields sampled before it are filled in and the rest are
// left zero.
func (a *Acquirer) Acquire(ctx context.Context) (Reading, error) {
	var r Reading

	if err := utils.Sleep(ctx, a.opts.Settle); err != nil {
		return r, err
	}

	climate := a.readClimate()
	r.Temp = climate.Temperature
	r.Humidity = climate.Humidity
	r.HeatIndex = HeatIndex(climate.Temperature, climate.Humidity)

	soilRaw, err := a.sample(a.cal.ChannelSoil, "soil")
	if err != nil {
		return r, err
	}
	r.Soil = a.cal.SoilPercent(soilRaw)

	// Solar and supply channels are sampled twice, once per derived value.
	solarRaw, err := a.sample(a.cal.ChannelSolar, "solar")
	if err != nil {
		return r, err
	}
	r.Solar = a.cal.SolarVolts(solarRaw)

	powerRaw, err := a.sample(a.cal.ChannelSolar, "power")
	if err != nil {
		return r, err
	}
	r.Power = a.cal.PowerPercent(powerRaw)

	vccRaw, err := a.sample(a.cal.ChannelSupply, "vcc")
	if err != nil {
		return r, err
	}
	r.VCC = a.cal.SupplyVolts(vccRaw)

	storageRaw, err := a.sample(a.cal.ChannelSupply, "storage")
	if err != nil {
		return r, err
	}
	r.Storage = a.cal.StoragePercent(storageRaw)

	a.logger.Info("soil moisture", "percent", r.Soil)
	a.logger.Info("solar voltage", "volts", r.Solar)
	a.logger.Info("solar power", "percent", r.Power)
	a.logger.Info("supply voltage", "volts", r.VCC)
	a.logger.Info("storage charge", "percent", r.Storage)

	return r, nil
}

func (a *Acquirer) readClimate() Climate {
	c, err := a.hygrometer.Sense()
	for attempt := 1; err != nil && attempt <= a.opts.HygrometerRetries; attempt++ {
		a.logger.Warn("hygrometer read failed, reading again", "attempt", attempt, "error", err)
		c, err = a.hygrometer.Sense()
	}
	if err != nil {
		a.logger.Error("hygrometer read failed, publishing values anyway",
			"temperature_c", c.Temperature,
			"humidity_pct", c.Humidity,
			"error", err,
		)
	}
	return c
}

func (a *Acquirer) sample(channel int, what string) (int, error) {
	raw, err := a.mux.Read(channel)
	if err != nil {
		return 0, fmt.Errorf("read %s (channel %d): %w", what, channel, err)
	}
	a.logger.Debug("mux sample", "field", what, "channel", channel, "raw", raw)
	return raw, nil
}
