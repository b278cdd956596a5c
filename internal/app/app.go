package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloudpico-station/internal/config"
	"cloudpico-station/internal/hardware"
	"cloudpico-station/internal/metrics"
	"cloudpico-station/internal/mqtt"
	"cloudpico-station/internal/mux"
	"cloudpico-station/internal/network"
	"cloudpico-station/internal/publish"
	"cloudpico-station/internal/retry"
	"cloudpico-station/internal/sensor"
	"cloudpico-station/internal/sleep"
	"cloudpico-station/internal/utils"

	"periph.io/x/conn/v3/gpio"
)

// Broker is what one wake cycle needs from the MQTT client.
type Broker interface {
	network.Broker
	publish.Sink
	Disconnect()
}

type linkWaiter interface {
	WaitAssociated(ctx context.Context) (string, error)
}

// Station runs wake cycles: boot, connect, measure, publish, sleep.
type Station struct {
	cfg     config.Config
	logger  *slog.Logger
	sleeper sleep.Sleeper
	link    linkWaiter
	metrics *metrics.Recorder

	openBoard func(config.Config) (*hardware.Board, error)
	newBroker func(config.Config, *slog.Logger) (Broker, error)
}

func New(cfg config.Config, logger *slog.Logger) *Station {
	if logger == nil {
		logger = slog.Default()
	}
	return &Station{
		cfg:       cfg,
		logger:    logger,
		sleeper:   sleep.HostSleeper{Logger: logger},
		link:      network.NewLink(cfg.WiFiInterface, cfg.LinkPollInterval, logger),
		metrics:   metrics.New(cfg.MetricsTextfile),
		openBoard: hardware.Open,
		newBroker: func(cfg config.Config, logger *slog.Logger) (Broker, error) {
			return mqtt.NewClient(cfg, logger)
		},
	}
}

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("initializing station",
		"hardware", cfg.Hardware,
		"mqtt_broker", cfg.MQTTBroker,
		"mqtt_port", cfg.MQTTPort,
		"mqtt_client_id", cfg.MQTTClientID,
		"topic_prefix", cfg.MQTTTopicPrefix,
		"wifi_interface", cfg.WiFiInterface,
	)
	return New(cfg, slog.Default()).Run(ctx)
}

// Run repeats wake cycles until ctx is done or a cycle fails to boot.
func (s *Station) Run(ctx context.Context) error {
	for {
		d, err := s.Cycle(ctx)
		if err != nil {
			return err
		}
		if err := s.sleeper.Sleep(ctx, d); err != nil {
			return err
		}
	}
}

// Cycle performs one wake from boot to the sleep decision. Everything it
// opens is released before it returns; the returned duration is how long to
// sleep.
func (s *Station) Cycle(ctx context.Context) (time.Duration, error) {
	board, err := s.openBoard(s.cfg)
	if err != nil {
		return 0, fmt.Errorf("open board: %w", err)
	}
	defer func() {
		if err := board.Close(); err != nil {
			s.logger.Error("board close", "error", err)
		}
	}()

	if err := board.Power.Out(gpio.High); err != nil {
		return 0, fmt.Errorf("power enable: %w", err)
	}
	for _, p := range []hardware.DigitalOut{board.MuxA, board.MuxB, board.MuxC} {
		if err := p.Out(gpio.Low); err != nil {
			return 0, fmt.Errorf("mux select reset: %w", err)
		}
	}

	if _, err := s.link.WaitAssociated(ctx); err != nil {
		return 0, err
	}

	broker, err := s.newBroker(s.cfg, s.logger)
	if err != nil {
		return 0, fmt.Errorf("mqtt client: %w", err)
	}
	defer broker.Disconnect()

	if err := utils.Sleep(ctx, s.cfg.PreConnectDelay); err != nil {
		return 0, err
	}

	session := network.NewSession(broker, retry.Policy{
		Interval:    s.cfg.MQTTRetryInterval,
		MaxAttempts: s.cfg.MQTTRetryMaxAttempts,
	}, s.logger)
	if err := session.Ensure(ctx); err != nil {
		return 0, fmt.Errorf("mqtt session: %w", err)
	}

	acq := sensor.NewAcquirer(
		mux.New(board.MuxC, board.MuxB, board.MuxA, board.Input, s.logger),
		board.Hygrometer,
		s.cfg.Calibration,
		sensor.Options{
			Settle:            s.cfg.SensorSettle,
			HygrometerRetries: s.cfg.HygrometerRetries,
		},
		s.logger,
	)

	reading, err := acq.Acquire(ctx)
	result := "ok"
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return 0, err
		}
		// Fields not sampled stay zero; a missing supply voltage selects the longest sleep.
		result = "acquire_error"
		s.logger.Error("acquisition incomplete, publishing partial reading", "error", err)
	} else {
		s.metrics.Observe(reading)
	}

	publish.Publish(broker, s.cfg.MQTTTopicPrefix, reading, s.logger)

	if err := utils.Sleep(ctx, s.cfg.PostPublishDelay); err != nil {
		return 0, err
	}

	d := s.cfg.SleepPolicy.Duration(reading.VCC)
	s.logger.Info("sleep selected", "vcc", reading.VCC, "duration", d)
	s.finish(result, d)
	return d, nil
}

func (s *Station) finish(result string, d time.Duration) {
	s.metrics.CycleDone(result, d)
	if err := s.metrics.Flush(); err != nil {
		s.logger.Warn("metrics textfile write failed", "error", err)
	}
}
