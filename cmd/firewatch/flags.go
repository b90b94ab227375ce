package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/firewatch/internal/config"
	"github.com/banshee-data/firewatch/internal/sensor"
)

// options is everything the serve command needs after flags and the config
// file are merged.
type options struct {
	cfg        *config.Config
	configPath string

	noDB        bool
	restore     bool
	tui         bool
	devMode     bool
	logFile     string
	showVersion bool
}

// parseFlags parses args and merges them over the config file. Only flags
// given explicitly override the file; the file overrides built-in defaults.
func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("firewatch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	th := sensor.DefaultThresholds()

	var (
		configPath = fs.String("config", "", "JSON config file (default "+config.DefaultConfigPath+" when present)")
		deviceURL  = fs.String("device", config.DefaultDeviceURL, "Detection appliance base URL")
		listen     = fs.String("listen", config.DefaultListen, "HTTP listen address")
		interval   = fs.Duration("interval", config.DefaultPollInterval, "Sensor poll interval")

		fireTemp  = fs.Float64("fire-temperature", th.FireTemperature, "Fire when temperature exceeds this (°C) and gas exceeds -fire-gas")
		fireGas   = fs.Float64("fire-gas", th.FireGas, "Gas level required for a fire classification")
		smokeGas  = fs.Float64("smoke-gas", th.SmokeGas, "Smoke when gas exceeds this")
		smokeTemp = fs.Float64("smoke-temperature", th.SmokeTemperature, "Smoke when temperature exceeds this (°C)")

		maxRecords  = fs.Int("max-records", config.DefaultMaxRecords, "Readings kept in memory (0 for unbounded)")
		trendPoints = fs.Int("trend-points", config.DefaultTrendPoints, "Points shown on the trend chart")
		dbPath      = fs.String("db", config.DefaultDBPath, "SQLite database mirroring the history")

		mqttBroker   = fs.String("mqtt-broker", "", "MQTT broker URL for alert notifications (empty disables)")
		mqttTopic    = fs.String("mqtt-topic", config.DefaultMQTTTopic, "MQTT topic prefix")
		mqttQoS      = fs.Int("mqtt-qos", 0, "MQTT publish QoS: 0, 1 or 2")
		mqttReadings = fs.Bool("mqtt-publish-readings", false, "Also publish every reading to <topic>/reading")
		mqttUsername = fs.String("mqtt-username", "", "MQTT username (set the password in the config file)")

		serialPort = fs.String("serial", "", "Read readings from a sensor board on this serial port instead of polling the appliance")
		baudRate   = fs.Int("baud", config.DefaultBaudRate, "Serial baud rate")

		logLevel  = fs.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn or error")
		logFormat = fs.String("log-format", config.DefaultLogFormat, "Log format: console or json")

		tempUnit = fs.String("units", config.DefaultTemperatureUnit, "Temperature display unit: celsius, fahrenheit or kelvin")
		timezone = fs.String("timezone", "", "Time zone for displayed times (default local)")
	)

	o := &options{}
	fs.BoolVar(&o.noDB, "no-db", false, "Keep history in memory only")
	fs.BoolVar(&o.restore, "restore", false, "Reload stored readings into memory at startup")
	fs.BoolVar(&o.tui, "tui", false, "Show the terminal dashboard")
	fs.BoolVar(&o.devMode, "dev", false, "Use a simulated serial sensor board")
	fs.StringVar(&o.logFile, "log-file", "", "Write logs to this file (default firewatch.log with -tui)")
	fs.BoolVar(&o.showVersion, "version", false, "Print the version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	path := *configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err == nil {
			path = config.DefaultConfigPath
		}
	}
	cfg := config.Empty()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.DeviceURL = deviceURL
		case "listen":
			cfg.Listen = listen
		case "interval":
			s := interval.String()
			cfg.PollInterval = &s
		case "fire-temperature":
			cfg.FireTemperature = fireTemp
		case "fire-gas":
			cfg.FireGas = fireGas
		case "smoke-gas":
			cfg.SmokeGas = smokeGas
		case "smoke-temperature":
			cfg.SmokeTemperature = smokeTemp
		case "max-records":
			cfg.MaxRecords = maxRecords
		case "trend-points":
			cfg.TrendPoints = trendPoints
		case "db":
			cfg.DBPath = dbPath
		case "mqtt-broker":
			cfg.MQTTBroker = mqttBroker
		case "mqtt-topic":
			cfg.MQTTTopic = mqttTopic
		case "mqtt-qos":
			cfg.MQTTQoS = mqttQoS
		case "mqtt-publish-readings":
			cfg.MQTTPublishReadings = mqttReadings
		case "mqtt-username":
			cfg.MQTTUsername = mqttUsername
		case "serial":
			cfg.SerialPort = serialPort
		case "baud":
			cfg.SerialBaudRate = baudRate
		case "log-level":
			cfg.LogLevel = logLevel
		case "log-format":
			cfg.LogFormat = logFormat
		case "units":
			cfg.TemperatureUnit = tempUnit
		case "timezone":
			cfg.Timezone = timezone
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o.cfg = cfg
	o.configPath = path
	return o, nil
}
