package units

import (
	"fmt"
	"time"
)

// Display holds the operator's presentation preferences. The zero value
// shows Celsius in the process's local time zone.
type Display struct {
	TemperatureUnit string
	Location        *time.Location
}

// NewDisplay validates unit and tz. An empty unit means Celsius and an
// empty tz the local zone.
func NewDisplay(unit, tz string) (Display, error) {
	d := Display{TemperatureUnit: Celsius}
	if unit != "" {
		if !IsValidTemperatureUnit(unit) {
			return d, fmt.Errorf("invalid temperature unit %q, expected one of: %s", unit, GetValidTemperatureUnitsString())
		}
		d.TemperatureUnit = unit
	}
	if tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return d, fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
		d.Location = loc
	}
	return d, nil
}

// Temperature formats a Celsius reading, e.g. "131.0 °F".
func (d Display) Temperature(celsius float64) string {
	return FormatTemperature(celsius, d.TemperatureUnit)
}

// Clock formats t as a wall-clock time.
func (d Display) Clock(t time.Time) string {
	return d.in(t).Format("15:04:05")
}

// DateTime formats t with its date and zone.
func (d Display) DateTime(t time.Time) string {
	return d.in(t).Format("2006-01-02 15:04:05 MST")
}

func (d Display) in(t time.Time) time.Time {
	if d.Location == nil {
		return t.Local()
	}
	return t.In(d.Location)
}
