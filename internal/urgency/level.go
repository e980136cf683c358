package urgency

import (
	"fmt"
	"strings"
)

// Level is the ordinal urgency classification.
type Level string

const (
	Low      Level = "LOW"
	Medium   Level = "MEDIUM"
	High     Level = "HIGH"
	Critical Level = "CRITICAL"
)

// Levels lists every level from least to most urgent.
var Levels = []Level{Low, Medium, High, Critical}

// Rank orders levels; unknown values rank with Low.
func (l Level) Rank() int {
	switch l {
	case Medium:
		return 1
	case High:
		return 2
	case Critical:
		return 3
	}
	return 0
}

func (l Level) Valid() bool {
	return l == Low || l == Medium || l == High || l == Critical
}

// ParseLevel accepts any casing of a level name.
func ParseLevel(s string) (Level, bool) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	return l, l.Valid()
}

// Thresholds are the score cut points between levels. A score must exceed a
// cut point to reach that level, so a score exactly on a boundary resolves
// to the lower level.
type Thresholds struct {
	Critical float64 `yaml:"critical" json:"critical"`
	High     float64 `yaml:"high" json:"high"`
	Medium   float64 `yaml:"medium" json:"medium"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Critical: 0.7, High: 0.5, Medium: 0.25}
}

// Validate checks the cut points are ordered inside (0,1).
func (t Thresholds) Validate() error {
	if t.Medium <= 0 || t.Critical >= 1 {
		return fmt.Errorf("urgency thresholds must lie in (0,1): %+v", t)
	}
	if !(t.Medium < t.High && t.High < t.Critical) {
		return fmt.Errorf("urgency thresholds must satisfy medium < high < critical: %+v", t)
	}
	return nil
}

// Level maps a score to its level.
func (t Thresholds) Level(score float64) Level {
	switch {
	case score > t.Critical:
		return Critical
	case score > t.High:
		return High
	case score > t.Medium:
		return Medium
	}
	return Low
}
