package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/storysignals/internal/amount"
	"github.com/dgallion1/storysignals/internal/extract"
	"github.com/dgallion1/storysignals/internal/telemetry"
	"github.com/dgallion1/storysignals/internal/urgency"
)

// Calibration holds the tuned cut points and bounds that are expected to
// move as the scorers are checked against labeled narratives.
type Calibration struct {
	Urgency   urgency.Thresholds `yaml:"urgency"`
	Amount    AmountBounds       `yaml:"amount"`
	Telemetry telemetry.Config   `yaml:"telemetry"`
}

type AmountBounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

func DefaultCalibration() Calibration {
	ao := amount.DefaultOptions()
	return Calibration{
		Urgency:   urgency.DefaultThresholds(),
		Amount:    AmountBounds{Min: ao.Min, Max: ao.Max},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// LoadCalibration reads a YAML calibration file over the defaults, so a file
// only needs the keys it changes. An empty path returns the defaults.
func LoadCalibration(path string) (Calibration, error) {
	cal := DefaultCalibration()
	if path == "" {
		return cal, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cal, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cal); err != nil {
		return cal, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cal.Validate(); err != nil {
		return cal, fmt.Errorf("calibration %s: %w", path, err)
	}
	return cal, nil
}

func (c Calibration) Validate() error {
	if err := c.Urgency.Validate(); err != nil {
		return err
	}
	if c.Amount.Min <= 0 || c.Amount.Max <= c.Amount.Min {
		return fmt.Errorf("amount bounds must satisfy 0 < min < max: %+v", c.Amount)
	}
	return nil
}

// ExtractOptions applies the calibration to the extractor defaults.
func (c Calibration) ExtractOptions(cacheSize int) extract.Options {
	opts := extract.DefaultOptions()
	opts.CacheSize = cacheSize
	opts.Urgency.Thresholds = c.Urgency
	opts.Amount.Min = c.Amount.Min
	opts.Amount.Max = c.Amount.Max
	return opts
}
