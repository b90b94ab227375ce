// Package sensor holds the appliance's sensor readings, the payload formats
// served by the appliance, and the threshold classifier that turns a reading
// into a fire/smoke/clear status.
package sensor

import (
	"math"
	"time"
)

// Reading is one sampled sensor observation.
type Reading struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	GasLevel    float64   `json:"gas_level"`
	Timestamp   time.Time `json:"timestamp"`
}

// Thresholds configures the classifier. A reading must strictly exceed a
// threshold for the corresponding branch to match.
type Thresholds struct {
	FireTemperature  float64 `json:"fire_temperature"`
	FireGas          float64 `json:"fire_gas"`
	SmokeGas         float64 `json:"smoke_gas"`
	SmokeTemperature float64 `json:"smoke_temperature"`
}

// DefaultThresholds returns the thresholds the appliance ships with.
//
// SmokeGas is several orders of magnitude above FireGas. That is how the
// detector is calibrated in the field and is kept as is until the gas
// sensor's units are confirmed.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FireTemperature:  50,
		FireGas:          2000,
		SmokeGas:         1_000_000,
		SmokeTemperature: 60,
	}
}

// Classify maps a reading to a status. Branch order matters: fire is checked
// first, then the high-gas smoke branch, then the temperature smoke branch.
// NaN and infinite inputs compare as zero.
func (t Thresholds) Classify(r Reading) Status {
	temp := finiteOrZero(r.Temperature)
	gas := finiteOrZero(r.GasLevel)

	switch {
	case temp > t.FireTemperature && gas > t.FireGas:
		return Fire
	case gas > t.SmokeGas:
		return Smoke
	case temp > t.SmokeTemperature:
		return Smoke
	default:
		return Clear
	}
}

// Classify uses DefaultThresholds.
func Classify(r Reading) Status {
	return DefaultThresholds().Classify(r)
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
