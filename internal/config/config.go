// Package config loads the firewatch JSON configuration file. Every field is
// optional: Get* accessors fall back to the built-in defaults, so partial
// files are safe.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/firewatch/internal/sensor"
	"github.com/banshee-data/firewatch/internal/units"
)

// DefaultConfigPath is the checked-in defaults file.
const DefaultConfigPath = "config/firewatch.defaults.json"

// Built-in defaults.
const (
	DefaultDeviceURL    = "http://127.0.0.1:5000"
	DefaultListen       = ":8080"
	DefaultPollInterval = 5 * time.Second
	DefaultMaxRecords   = 10000
	DefaultTrendPoints  = 20
	DefaultDBPath       = "firewatch.db"
	DefaultMQTTTopic    = "firewatch"
	DefaultBaudRate     = 9600
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "console"

	DefaultTemperatureUnit = units.Celsius
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the root configuration.
type Config struct {
	DeviceURL    *string `json:"device_url,omitempty"`
	Listen       *string `json:"listen,omitempty"`
	PollInterval *string `json:"poll_interval,omitempty"` // duration string like "5s"

	// Classifier thresholds
	FireTemperature  *float64 `json:"fire_temperature,omitempty"`
	FireGas          *float64 `json:"fire_gas,omitempty"`
	SmokeGas         *float64 `json:"smoke_gas,omitempty"`
	SmokeTemperature *float64 `json:"smoke_temperature,omitempty"`

	MaxRecords  *int    `json:"max_records,omitempty"`
	TrendPoints *int    `json:"trend_points,omitempty"`
	DBPath      *string `json:"db_path,omitempty"`

	MQTTBroker          *string `json:"mqtt_broker,omitempty"`
	MQTTTopic           *string `json:"mqtt_topic,omitempty"`
	MQTTQoS             *int    `json:"mqtt_qos,omitempty"`
	MQTTPublishReadings *bool   `json:"mqtt_publish_readings,omitempty"`
	MQTTUsername        *string `json:"mqtt_username,omitempty"`
	MQTTPassword        *string `json:"mqtt_password,omitempty"`

	// Serial sensor board; empty port disables it.
	SerialPort     *string `json:"serial_port,omitempty"`
	SerialBaudRate *int    `json:"serial_baud_rate,omitempty"`

	LogLevel  *string `json:"log_level,omitempty"`
	LogFormat *string `json:"log_format,omitempty"`

	// Presentation only; stored data stays in Celsius and UTC.
	TemperatureUnit *string `json:"temperature_unit,omitempty"`
	Timezone        *string `json:"timezone,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrBool(v bool) *bool          { return &v }

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// Defaults returns a Config with every field set to its default.
func Defaults() *Config {
	th := sensor.DefaultThresholds()
	return &Config{
		DeviceURL:           ptrString(DefaultDeviceURL),
		Listen:              ptrString(DefaultListen),
		PollInterval:        ptrString(DefaultPollInterval.String()),
		FireTemperature:     ptrFloat64(th.FireTemperature),
		FireGas:             ptrFloat64(th.FireGas),
		SmokeGas:            ptrFloat64(th.SmokeGas),
		SmokeTemperature:    ptrFloat64(th.SmokeTemperature),
		MaxRecords:          ptrInt(DefaultMaxRecords),
		TrendPoints:         ptrInt(DefaultTrendPoints),
		DBPath:              ptrString(DefaultDBPath),
		MQTTBroker:          ptrString(""),
		MQTTTopic:           ptrString(DefaultMQTTTopic),
		MQTTQoS:             ptrInt(0),
		MQTTPublishReadings: ptrBool(false),
		MQTTUsername:        ptrString(""),
		MQTTPassword:        ptrString(""),
		SerialPort:          ptrString(""),
		SerialBaudRate:      ptrInt(DefaultBaudRate),
		LogLevel:            ptrString(DefaultLogLevel),
		LogFormat:           ptrString(DefaultLogFormat),
		TemperatureUnit:     ptrString(DefaultTemperatureUnit),
		Timezone:            ptrString(""),
	}
}

// Load reads a Config from a JSON file. The file must have a .json
// extension and be under 1MB. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	cfg := Empty()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields that are set.
func (c *Config) Validate() error {
	if c.DeviceURL != nil && *c.DeviceURL != "" {
		u, err := url.Parse(*c.DeviceURL)
		if err != nil {
			return fmt.Errorf("invalid device_url %q: %w", *c.DeviceURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("device_url must be http or https, got %q", *c.DeviceURL)
		}
	}

	if c.PollInterval != nil && *c.PollInterval != "" {
		d, err := time.ParseDuration(*c.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid poll_interval '%s': %w", *c.PollInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("poll_interval must be positive, got %s", d)
		}
	}

	for name, v := range map[string]*float64{
		"fire_temperature":  c.FireTemperature,
		"fire_gas":          c.FireGas,
		"smoke_gas":         c.SmokeGas,
		"smoke_temperature": c.SmokeTemperature,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, *v)
		}
	}

	if c.MaxRecords != nil && *c.MaxRecords < 0 {
		return fmt.Errorf("max_records must be non-negative, got %d", *c.MaxRecords)
	}
	if c.TrendPoints != nil && *c.TrendPoints < 1 {
		return fmt.Errorf("trend_points must be at least 1, got %d", *c.TrendPoints)
	}
	if c.MQTTQoS != nil && (*c.MQTTQoS < 0 || *c.MQTTQoS > 2) {
		return fmt.Errorf("mqtt_qos must be 0, 1 or 2, got %d", *c.MQTTQoS)
	}
	if c.SerialBaudRate != nil && *c.SerialBaudRate <= 0 {
		return fmt.Errorf("serial_baud_rate must be positive, got %d", *c.SerialBaudRate)
	}

	if c.TemperatureUnit != nil && *c.TemperatureUnit != "" && !units.IsValidTemperatureUnit(*c.TemperatureUnit) {
		return fmt.Errorf("temperature_unit must be one of: %s, got %q", units.GetValidTemperatureUnitsString(), *c.TemperatureUnit)
	}
	if c.Timezone != nil && *c.Timezone != "" && !units.IsTimezoneValid(*c.Timezone) {
		return fmt.Errorf("invalid timezone %q", *c.Timezone)
	}

	if c.LogFormat != nil {
		switch *c.LogFormat {
		case "", "console", "json":
		default:
			return fmt.Errorf("log_format must be console or json, got %q", *c.LogFormat)
		}
	}
	return nil
}

// GetDeviceURL returns the appliance base URL or the default.
func (c *Config) GetDeviceURL() string {
	if c.DeviceURL == nil || *c.DeviceURL == "" {
		return DefaultDeviceURL
	}
	return *c.DeviceURL
}

func (c *Config) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return DefaultListen
	}
	return *c.Listen
}

// GetPollInterval parses PollInterval, falling back to the default when it
// is unset or unparsable.
func (c *Config) GetPollInterval() time.Duration {
	if c.PollInterval == nil || *c.PollInterval == "" {
		return DefaultPollInterval
	}
	d, err := time.ParseDuration(*c.PollInterval)
	if err != nil || d <= 0 {
		return DefaultPollInterval
	}
	return d
}

// GetThresholds returns the classifier thresholds, each falling back to
// its default independently.
func (c *Config) GetThresholds() sensor.Thresholds {
	th := sensor.DefaultThresholds()
	if c.FireTemperature != nil {
		th.FireTemperature = *c.FireTemperature
	}
	if c.FireGas != nil {
		th.FireGas = *c.FireGas
	}
	if c.SmokeGas != nil {
		th.SmokeGas = *c.SmokeGas
	}
	if c.SmokeTemperature != nil {
		th.SmokeTemperature = *c.SmokeTemperature
	}
	return th
}

// GetMaxRecords returns the history bound; 0 means unbounded.
func (c *Config) GetMaxRecords() int {
	if c.MaxRecords == nil {
		return DefaultMaxRecords
	}
	return *c.MaxRecords
}

func (c *Config) GetTrendPoints() int {
	if c.TrendPoints == nil || *c.TrendPoints < 1 {
		return DefaultTrendPoints
	}
	return *c.TrendPoints
}

func (c *Config) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return DefaultDBPath
	}
	return *c.DBPath
}

// GetMQTTBroker returns the broker URL; empty disables notifications.
func (c *Config) GetMQTTBroker() string {
	if c.MQTTBroker == nil {
		return ""
	}
	return *c.MQTTBroker
}

func (c *Config) GetMQTTTopic() string {
	if c.MQTTTopic == nil || *c.MQTTTopic == "" {
		return DefaultMQTTTopic
	}
	return *c.MQTTTopic
}

func (c *Config) GetMQTTQoS() byte {
	if c.MQTTQoS == nil || *c.MQTTQoS < 0 || *c.MQTTQoS > 2 {
		return 0
	}
	return byte(*c.MQTTQoS)
}

// GetMQTTPublishReadings reports whether every reading is published, not
// just alerts.
func (c *Config) GetMQTTPublishReadings() bool {
	return c.MQTTPublishReadings != nil && *c.MQTTPublishReadings
}

func (c *Config) GetMQTTUsername() string {
	if c.MQTTUsername == nil {
		return ""
	}
	return *c.MQTTUsername
}

func (c *Config) GetMQTTPassword() string {
	if c.MQTTPassword == nil {
		return ""
	}
	return *c.MQTTPassword
}

// GetSerialPort returns the serial device path; empty disables the serial
// source.
func (c *Config) GetSerialPort() string {
	if c.SerialPort == nil {
		return ""
	}
	return *c.SerialPort
}

func (c *Config) GetSerialBaudRate() int {
	if c.SerialBaudRate == nil || *c.SerialBaudRate <= 0 {
		return DefaultBaudRate
	}
	return *c.SerialBaudRate
}

func (c *Config) GetLogLevel() string {
	if c.LogLevel == nil || *c.LogLevel == "" {
		return DefaultLogLevel
	}
	return *c.LogLevel
}

func (c *Config) GetLogFormat() string {
	if c.LogFormat == nil || *c.LogFormat == "" {
		return DefaultLogFormat
	}
	return *c.LogFormat
}

// GetDisplay returns the presentation settings. Validate has already
// rejected bad values, so errors fall back to Celsius in local time.
func (c *Config) GetDisplay() units.Display {
	var unit, tz string
	if c.TemperatureUnit != nil {
		unit = *c.TemperatureUnit
	}
	if c.Timezone != nil {
		tz = *c.Timezone
	}
	d, err := units.NewDisplay(unit, tz)
	if err != nil {
		return units.Display{TemperatureUnit: units.Celsius}
	}
	return d
}
