package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"cloudpico-station/internal/sensor"
	"cloudpico-station/internal/sleep"
)

const (
	HardwarePeriph = "periph"
	HardwareSim    = "sim"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	Hardware string

	MQTTBroker           string
	MQTTPort             int
	MQTTClientID         string
	MQTTTopicPrefix      string
	MQTTConnectTimeout   time.Duration
	MQTTPublishTimeout   time.Duration
	MQTTRetryInterval    time.Duration
	MQTTRetryMaxAttempts int

	// WiFiInterface is watched until associated; empty skips the wait.
	WiFiInterface    string
	LinkPollInterval time.Duration

	PinPower string
	PinMuxA  string
	PinMuxB  string
	PinMuxC  string

	I2CBus            string
	ADS1115Address    uint16
	BME280Address     uint16
	ADCReferenceVolts float64

	PreConnectDelay   time.Duration
	PostPublishDelay  time.Duration
	SensorSettle      time.Duration
	HygrometerRetries int

	SimRaw         [8]int
	SimTemperature float64
	SimHumidity    float64

	MetricsTextfile string
	CalibrationFile string

	Calibration sensor.Calibration
	SleepPolicy sleep.Policy
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	hardware := strings.ToLower(envString("HARDWARE", HardwarePeriph))
	switch hardware {
	case HardwarePeriph, HardwareSim:
	default:
		return Config{}, fmt.Errorf("invalid HARDWARE %q (allowed: periph, sim)", hardware)
	}

	cfg := Config{
		AppEnv:          appEnv,
		LogLevel:        level,
		Hardware:        hardware,
		MQTTBroker:      envString("MQTT_BROKER", "localhost"),
		MQTTClientID:    envString("MQTT_CLIENT_ID", "WeatherClient_1"),
		MQTTTopicPrefix: strings.Trim(envString("MQTT_TOPIC_PREFIX", "weather"), "/"),
		WiFiInterface:   strings.TrimSpace(os.Getenv("WIFI_INTERFACE")),
		PinPower:        envString("PIN_POWER", "GPIO4"),
		PinMuxA:         envString("PIN_MUX_A", "GPIO14"),
		PinMuxB:         envString("PIN_MUX_B", "GPIO12"),
		PinMuxC:         envString("PIN_MUX_C", "GPIO13"),
		I2CBus:          strings.TrimSpace(os.Getenv("I2C_BUS")),
		MetricsTextfile: strings.TrimSpace(os.Getenv("METRICS_TEXTFILE")),
		CalibrationFile: strings.TrimSpace(os.Getenv("CALIBRATION_FILE")),
		Calibration:     sensor.DefaultCalibration(),
		SleepPolicy:     sleep.DefaultPolicy(),
	}
	if _, ok := os.LookupEnv("WIFI_INTERFACE"); !ok {
		cfg.WiFiInterface = "wlan0"
	}
	if cfg.MQTTTopicPrefix == "" {
		return Config{}, fmt.Errorf("MQTT_TOPIC_PREFIX must not be empty")
	}

	if cfg.MQTTPort, err = envInt("MQTT_PORT", 1883); err != nil {
		return Config{}, err
	}
	if cfg.MQTTPort < 1 || cfg.MQTTPort > 65535 {
		return Config{}, fmt.Errorf("MQTT_PORT must be 1-65535, got %d", cfg.MQTTPort)
	}
	if cfg.MQTTRetryMaxAttempts, err = envInt("MQTT_RETRY_MAX_ATTEMPTS", 0); err != nil {
		return Config{}, err
	}
	if cfg.MQTTRetryMaxAttempts < 0 {
		return Config{}, fmt.Errorf("MQTT_RETRY_MAX_ATTEMPTS must not be negative, got %d", cfg.MQTTRetryMaxAttempts)
	}
	if cfg.HygrometerRetries, err = envInt("HYGROMETER_RETRIES", 1); err != nil {
		return Config{}, err
	}
	if cfg.HygrometerRetries < 0 {
		return Config{}, fmt.Errorf("HYGROMETER_RETRIES must not be negative, got %d", cfg.HygrometerRetries)
	}

	durations := []struct {
		key      string
		def      string
		dst      *time.Duration
		positive bool
	}{
		{"MQTT_CONNECT_TIMEOUT", "10s", &cfg.MQTTConnectTimeout, true},
		{"MQTT_PUBLISH_TIMEOUT", "5s", &cfg.MQTTPublishTimeout, true},
		{"MQTT_RETRY_INTERVAL", "5s", &cfg.MQTTRetryInterval, true},
		{"LINK_POLL_INTERVAL", "500ms", &cfg.LinkPollInterval, true},
		{"PRE_CONNECT_DELAY", "250ms", &cfg.PreConnectDelay, false},
		{"POST_PUBLISH_DELAY", "500ms", &cfg.PostPublishDelay, false},
		{"SENSOR_SETTLE", "2s", &cfg.SensorSettle, false},
	}
	for _, d := range durations {
		if *d.dst, err = envDuration(d.key, d.def, d.positive); err != nil {
			return Config{}, err
		}
	}

	ads, err := envUint16("ADS1115_ADDRESS", "0x48")
	if err != nil {
		return Config{}, err
	}
	cfg.ADS1115Address = ads
	bme, err := envUint16("BME280_ADDRESS", "0x76")
	if err != nil {
		return Config{}, err
	}
	cfg.BME280Address = bme

	if cfg.ADCReferenceVolts, err = envFloat("ADC_REFERENCE_VOLTS", 1.0); err != nil {
		return Config{}, err
	}
	if cfg.ADCReferenceVolts <= 0 {
		return Config{}, fmt.Errorf("ADC_REFERENCE_VOLTS must be positive, got %v", cfg.ADCReferenceVolts)
	}

	if cfg.SimRaw, err = parseSimRaw(envString("SIM_MUX_RAW", "650,900,673")); err != nil {
		return Config{}, err
	}
	if cfg.SimTemperature, err = envFloat("SIM_TEMPERATURE", 21.5); err != nil {
		return Config{}, err
	}
	if cfg.SimHumidity, err = envFloat("SIM_HUMIDITY", 55); err != nil {
		return Config{}, err
	}

	if cfg.CalibrationFile != "" {
		if err := loadCalibrationFile(cfg.CalibrationFile, &cfg.Calibration, &cfg.SleepPolicy); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Calibration.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid calibration: %w", err)
	}
	if err := cfg.SleepPolicy.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid sleep policy: %w", err)
	}

	return cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return f, nil
}

func envUint16(key, def string) (uint16, error) {
	s := envString(key, def)
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return uint16(n), nil
}

func envDuration(key, def string, positive bool) (time.Duration, error) {
	s := envString(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if positive && d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", key, d)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %v", key, d)
	}
	return d, nil
}

// parseSimRaw reads up to 8 comma-separated raw counts; missing channels are 0.
func parseSimRaw(s string) ([8]int, error) {
	var raw [8]int
	parts := strings.Split(s, ",")
	if len(parts) > len(raw) {
		return raw, fmt.Errorf("invalid SIM_MUX_RAW %q: at most %d values", s, len(raw))
	}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return raw, fmt.Errorf("invalid SIM_MUX_RAW %q: channel %d: %w", s, i, err)
		}
		raw[i] = n
	}
	return raw, nil
}
