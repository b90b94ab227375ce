package sensor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Sample is what a reading source produces on each poll: the reading plus
// the optional confidence reported by the detection model.
type Sample struct {
	Reading      Reading
	AIConfidence *float64
}

// SensorPayload is the body served by the appliance at /sensor_data. The
// field numbering follows the appliance's channel layout.
type SensorPayload struct {
	Field1       lenientFloat  `json:"field1"` // temperature
	Field2       lenientFloat  `json:"field2"` // humidity
	Field3       lenientFloat  `json:"field3"` // gas
	AIConfidence optionalFloat `json:"ai_confidence"`
}

// DecodeSensorPayload parses a /sensor_data body. A body that is not a JSON
// object is an error; individual fields that are missing, null, or not
// numeric decode as zero.
func DecodeSensorPayload(data []byte, at time.Time) (Sample, error) {
	var p SensorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Sample{}, fmt.Errorf("failed to decode sensor payload: %w", err)
	}
	return p.Sample(at), nil
}

// Sample converts the payload to a timestamped sample.
func (p SensorPayload) Sample(at time.Time) Sample {
	s := Sample{
		Reading: Reading{
			Temperature: float64(p.Field1),
			Humidity:    float64(p.Field2),
			GasLevel:    float64(p.Field3),
			Timestamp:   at,
		},
	}
	if p.AIConfidence.ok {
		c := p.AIConfidence.v
		s.AIConfidence = &c
	}
	return s
}

// lenientFloat accepts JSON numbers, numeric strings and null. Anything else,
// including NaN and infinities, decodes as zero instead of failing the whole
// payload.
type lenientFloat float64

func (f *lenientFloat) UnmarshalJSON(b []byte) error {
	v, _ := parseLenient(b)
	*f = lenientFloat(v)
	return nil
}

// optionalFloat is a lenientFloat that remembers whether a usable value was
// present.
type optionalFloat struct {
	v  float64
	ok bool
}

func (f *optionalFloat) UnmarshalJSON(b []byte) error {
	f.v, f.ok = parseLenient(b)
	return nil
}

func parseLenient(b []byte) (float64, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return 0, false
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, false
		}
		b = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// DeviceStatus is the body served by the appliance at /status.
type DeviceStatus struct {
	Device       string  `json:"device"`
	ImgMaxWidth  int     `json:"img_max_width"`
	FrameSkip    int     `json:"frame_skip"`
	StreamFPS    float64 `json:"stream_fps"`
	TargetInfFPS float64 `json:"target_inf_fps"`
}

// DecodeDeviceStatus parses a /status body.
func DecodeDeviceStatus(data []byte) (DeviceStatus, error) {
	var s DeviceStatus
	if err := json.Unmarshal(data, &s); err != nil {
		return DeviceStatus{}, fmt.Errorf("failed to decode device status: %w", err)
	}
	return s, nil
}
