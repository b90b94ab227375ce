// Package units converts readings and timestamps for display. Readings are
// stored in degrees Celsius and timestamps in UTC.
package units

import (
	"fmt"
	"strings"
)

// Temperature unit constants
const (
	Celsius    = "celsius"
	Fahrenheit = "fahrenheit"
	Kelvin     = "kelvin"
)

// ValidTemperatureUnits contains all valid temperature units
var ValidTemperatureUnits = []string{Celsius, Fahrenheit, Kelvin}

// IsValidTemperatureUnit reports whether unit is one of ValidTemperatureUnits.
func IsValidTemperatureUnit(unit string) bool {
	for _, valid := range ValidTemperatureUnits {
		if unit == valid {
			return true
		}
	}
	return false
}

// GetValidTemperatureUnitsString returns a comma-separated list for error messages
func GetValidTemperatureUnitsString() string {
	return strings.Join(ValidTemperatureUnits, ", ")
}

// ConvertTemperature converts a Celsius reading to unit. Unknown units are
// left in Celsius.
func ConvertTemperature(celsius float64, unit string) float64 {
	switch unit {
	case Fahrenheit:
		return celsius*9/5 + 32
	case Kelvin:
		return celsius + 273.15
	default:
		return celsius
	}
}

// TemperatureSymbol is the suffix shown after a converted value.
func TemperatureSymbol(unit string) string {
	switch unit {
	case Fahrenheit:
		return "°F"
	case Kelvin:
		return "K"
	default:
		return "°C"
	}
}

// FormatTemperature renders a Celsius reading in unit with one decimal.
func FormatTemperature(celsius float64, unit string) string {
	return fmt.Sprintf("%.1f %s", ConvertTemperature(celsius, unit), TemperatureSymbol(unit))
}
