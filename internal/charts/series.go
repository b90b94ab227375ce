package charts

import (
	"fmt"
	"strings"
)

// Series selects one measured quantity of a Point.
type Series int

const (
	Temperature Series = iota
	Humidity
	GasLevel
)

// AllSeries lists every series in display order.
var AllSeries = []Series{Temperature, Humidity, GasLevel}

func (s Series) String() string {
	switch s {
	case Temperature:
		return "temperature"
	case Humidity:
		return "humidity"
	case GasLevel:
		return "gas_level"
	default:
		return fmt.Sprintf("Series(%d)", int(s))
	}
}

// Label is the axis/legend label with units.
func (s Series) Label() string {
	switch s {
	case Temperature:
		return "Temperature (°C)"
	case Humidity:
		return "Humidity (%)"
	case GasLevel:
		return "Gas level"
	default:
		return s.String()
	}
}

// Value extracts the series from p.
func (s Series) Value(p Point) float64 {
	switch s {
	case Temperature:
		return p.Temperature
	case Humidity:
		return p.Humidity
	case GasLevel:
		return p.GasLevel
	default:
		return 0
	}
}

// ParseSeries accepts the names produced by String, plus "gas".
func ParseSeries(v string) (Series, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "temperature", "temp":
		return Temperature, nil
	case "humidity":
		return Humidity, nil
	case "gas_level", "gas":
		return GasLevel, nil
	}
	return 0, fmt.Errorf("unknown series %q", v)
}

// ParseSeriesList parses a comma separated list. An empty string yields nil.
func ParseSeriesList(v string) ([]Series, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	var out []Series
	for _, part := range strings.Split(v, ",") {
		s, err := ParseSeries(part)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func values(points []Point, s Series) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = s.Value(p)
	}
	return out
}
