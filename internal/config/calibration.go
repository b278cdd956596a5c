package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"cloudpico-station/internal/sensor"
	"cloudpico-station/internal/sleep"

	"gopkg.in/yaml.v3"
)

// calibrationFile is the on-disk layout of CALIBRATION_FILE. Keys that are
// absent keep their defaults.
type calibrationFile struct {
	Calibration *sensor.Calibration `yaml:"calibration"`
	Sleep       *sleep.Policy       `yaml:"sleep"`
}

func loadCalibrationFile(path string, cal *sensor.Calibration, policy *sleep.Policy) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("CALIBRATION_FILE %q: %w", path, err)
	}

	f := calibrationFile{Calibration: cal, Sleep: policy}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("CALIBRATION_FILE %q: %w", path, err)
	}
	return nil
}
