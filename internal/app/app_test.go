package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"cloudpico-station/internal/config"
	"cloudpico-station/internal/hardware"
	"cloudpico-station/internal/metrics"
	"cloudpico-station/internal/sensor"
	"cloudpico-station/internal/sleep"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
)

type fakeBroker struct {
	mu           sync.Mutex
	connectFails int
	attempts     int
	connected    bool
	disconnected bool
	published    map[string]string
	powerAtPub   gpio.Level
	power        *hardware.SimPin
}

func (b *fakeBroker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBroker) Connect(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts++
	if b.attempts <= b.connectFails {
		return errors.New("connection refused")
	}
	b.connected = true
	return nil
}

func (b *fakeBroker) Publish(topic string, payload string, retained bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !retained {
		return errors.New("expected retained publish")
	}
	if b.published == nil {
		b.published = make(map[string]string)
	}
	b.published[topic] = payload
	if b.power != nil {
		b.powerAtPub = b.power.Level()
	}
	return nil
}

func (b *fakeBroker) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	b.disconnected = true
}

type fakeLink struct {
	calls int
	err   error
}

func (l *fakeLink) WaitAssociated(context.Context) (string, error) {
	l.calls++
	return "192.168.1.42", l.err
}

// cancelSleeper records durations and cancels the run after n sleeps.
type cancelSleeper struct {
	n      int
	cancel context.CancelFunc
	slept  []time.Duration
}

func (s *cancelSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	if len(s.slept) >= s.n {
		s.cancel()
		return ctx.Err()
	}
	return nil
}

func testConfig(simRaw [8]int) config.Config {
	return config.Config{
		Hardware:          config.HardwareSim,
		MQTTTopicPrefix:   "weather",
		MQTTRetryInterval: time.Millisecond,
		PinPower:          "PWR",
		PinMuxA:           "A",
		PinMuxB:           "B",
		PinMuxC:           "C",
		HygrometerRetries: 1,
		SimRaw:            simRaw,
		SimTemperature:    21.5,
		SimHumidity:       55,
		Calibration:       sensor.DefaultCalibration(),
		SleepPolicy:       sleep.DefaultPolicy(),
	}
}

type harness struct {
	station *Station
	broker  *fakeBroker
	link    *fakeLink
	boards  []*hardware.Board
}

func newHarness(cfg config.Config) *harness {
	h := &harness{broker: &fakeBroker{}, link: &fakeLink{}}
	h.station = &Station{
		cfg:     cfg,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		sleeper: sleep.HostSleeper{},
		link:    h.link,
		metrics: metrics.New(""),
		openBoard: func(cfg config.Config) (*hardware.Board, error) {
			b, err := hardware.Open(cfg)
			if err != nil {
				return nil, err
			}
			h.boards = append(h.boards, b)
			h.broker.power = b.Power.(*hardware.SimPin)
			return b, nil
		},
		newBroker: func(config.Config, *slog.Logger) (Broker, error) {
			return h.broker, nil
		},
	}
	return h
}

func TestStation_CycleSleepTiers(t *testing.T) {
	tests := []struct {
		name      string
		supplyRaw int
		want      time.Duration
	}{
		// raw = (vcc + 0.15) * 1023 * 100k/570k
		{name: "vcc 3.6 sleeps 10 minutes", supplyRaw: 673, want: 600_000_000 * time.Microsecond},
		{name: "vcc 3.3 sleeps 30 minutes", supplyRaw: 619, want: 1_800_000_000 * time.Microsecond},
		{name: "vcc 2.0 sleeps 1 hour", supplyRaw: 386, want: 3_600_000_000 * time.Microsecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(testConfig([8]int{650, 900, tt.supplyRaw}))

			got, err := h.station.Cycle(context.Background())
			if err != nil {
				t.Fatalf("Cycle() err = %v; want nil", err)
			}
			if got != tt.want {
				t.Errorf("Cycle() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestStation_CyclePublishesEightRetainedTopics(t *testing.T) {
	h := newHarness(testConfig([8]int{645, 512, 673}))

	if _, err := h.station.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle() err = %v; want nil", err)
	}

	want := map[string]string{
		"weather/temp":     "21.50",
		"weather/humidity": "55.00",
		"weather/soil":     "50",
		"weather/power":    "50",
		"weather/vcc":      "3.60",
		"weather/storage":  "52",
	}
	if len(h.broker.published) != 8 {
		t.Fatalf("published %d topics; want 8: %v", len(h.broker.published), h.broker.published)
	}
	for topic, payload := range want {
		if got := h.broker.published[topic]; got != payload {
			t.Errorf("%s = %q; want %q", topic, got, payload)
		}
	}
	for _, topic := range []string{"weather/heatindex", "weather/solar"} {
		if _, ok := h.broker.published[topic]; !ok {
			t.Errorf("%s not published", topic)
		}
	}

	if h.broker.powerAtPub != gpio.High {
		t.Errorf("power enable during publish = %v; want High", h.broker.powerAtPub)
	}
	if p := h.boards[0].Power.(*hardware.SimPin).Level(); p != gpio.Low {
		t.Errorf("power enable after cycle = %v; want Low", p)
	}
	if !h.broker.disconnected {
		t.Errorf("broker not disconnected at end of cycle")
	}
	if h.link.calls != 1 {
		t.Errorf("link waits = %d; want 1", h.link.calls)
	}
}

func TestStation_CycleRetriesBrokerConnect(t *testing.T) {
	h := newHarness(testConfig([8]int{650, 900, 673}))
	h.broker.connectFails = 3

	if _, err := h.station.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle() err = %v; want nil", err)
	}
	if h.broker.attempts != 4 {
		t.Errorf("connect attempts = %d; want 4", h.broker.attempts)
	}
	if len(h.broker.published) != 8 {
		t.Errorf("published %d topics; want 8", len(h.broker.published))
	}
}

func TestStation_CycleBoundedConnectGivesUp(t *testing.T) {
	cfg := testConfig([8]int{650, 900, 673})
	cfg.MQTTRetryMaxAttempts = 2
	h := newHarness(cfg)
	h.broker.connectFails = 100

	if _, err := h.station.Cycle(context.Background()); err == nil {
		t.Fatalf("Cycle() err = nil; want error after exhausting attempts")
	}
	if h.broker.attempts != 2 {
		t.Errorf("connect attempts = %d; want 2", h.broker.attempts)
	}
	if len(h.broker.published) != 0 {
		t.Errorf("published %d topics; want 0", len(h.broker.published))
	}
}

// failAfterInput answers the first ok reads from the sim input, then fails.
type failAfterInput struct {
	hardware.AnalogIn
	ok int
}

func (f *failAfterInput) Read() (analog.Sample, error) {
	if f.ok <= 0 {
		return analog.Sample{}, errors.New("i2c nack")
	}
	f.ok--
	return f.AnalogIn.Read()
}

func TestStation_CycleAcquireErrorPublishesPartialReading(t *testing.T) {
	tests := []struct {
		name      string
		okReads   int
		wantSoil  string
		wantVCC   string
		wantSleep time.Duration
	}{
		{name: "adc dead", okReads: 0, wantSoil: "0", wantVCC: "0.00", wantSleep: time.Hour},
		{name: "fails on storage", okReads: 4, wantSoil: "50", wantVCC: "3.60", wantSleep: 10 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(testConfig([8]int{645, 512, 673}))
			open := h.station.openBoard
			h.station.openBoard = func(cfg config.Config) (*hardware.Board, error) {
				b, err := open(cfg)
				if err != nil {
					return nil, err
				}
				b.Input = &failAfterInput{AnalogIn: b.Input, ok: tt.okReads}
				return b, nil
			}

			got, err := h.station.Cycle(context.Background())
			if err != nil {
				t.Fatalf("Cycle() err = %v; want nil", err)
			}
			if got != tt.wantSleep {
				t.Errorf("Cycle() = %v; want %v", got, tt.wantSleep)
			}
			if len(h.broker.published) != 8 {
				t.Fatalf("published %d topics; want 8", len(h.broker.published))
			}
			if p := h.broker.published["weather/soil"]; p != tt.wantSoil {
				t.Errorf("weather/soil = %q; want %q", p, tt.wantSoil)
			}
			if p := h.broker.published["weather/vcc"]; p != tt.wantVCC {
				t.Errorf("weather/vcc = %q; want %q", p, tt.wantVCC)
			}
			if p := h.broker.published["weather/storage"]; p != "0" {
				t.Errorf("weather/storage = %q; want %q", p, "0")
			}
		})
	}
}

func TestStation_CycleLinkCancelled(t *testing.T) {
	h := newHarness(testConfig([8]int{}))
	h.link.err = context.Canceled

	if _, err := h.station.Cycle(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Cycle() err = %v; want context.Canceled", err)
	}
	if h.broker.attempts != 0 {
		t.Errorf("broker contacted before link was up")
	}
}

func TestStation_RunBootsFreshEachCycle(t *testing.T) {
	h := newHarness(testConfig([8]int{650, 900, 673}))
	ctx, cancel := context.WithCancel(context.Background())
	sleeper := &cancelSleeper{n: 3, cancel: cancel}
	h.station.sleeper = sleeper

	err := h.station.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() err = %v; want context.Canceled", err)
	}
	if len(sleeper.slept) != 3 {
		t.Fatalf("sleeps = %d; want 3", len(sleeper.slept))
	}
	for i, d := range sleeper.slept {
		if d != 10*time.Minute {
			t.Errorf("sleep %d = %v; want 10m", i, d)
		}
	}
	if len(h.boards) != 3 {
		t.Errorf("boards opened = %d; want one per cycle (3)", len(h.boards))
	}
	if h.link.calls != 3 {
		t.Errorf("link waits = %d; want 3", h.link.calls)
	}
}
