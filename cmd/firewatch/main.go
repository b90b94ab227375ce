// Command firewatch polls a fire and smoke detection appliance, classifies
// its sensor readings, keeps a detection history and serves a dashboard.
//
// Usage:
//
//	firewatch [flags]              run the monitor and dashboard
//	firewatch migrate <action>     manage the history database schema
//	firewatch export [-o file]     write stored readings as CSV
//	firewatch backup [-o file]     copy the history database
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/banshee-data/firewatch/internal/api"
	"github.com/banshee-data/firewatch/internal/charts"
	"github.com/banshee-data/firewatch/internal/config"
	"github.com/banshee-data/firewatch/internal/db"
	"github.com/banshee-data/firewatch/internal/device"
	"github.com/banshee-data/firewatch/internal/history"
	"github.com/banshee-data/firewatch/internal/monitor"
	"github.com/banshee-data/firewatch/internal/monitoring"
	"github.com/banshee-data/firewatch/internal/notify"
	"github.com/banshee-data/firewatch/internal/serialmux"
	"github.com/banshee-data/firewatch/internal/timeutil"
	"github.com/banshee-data/firewatch/internal/tui"
	"github.com/banshee-data/firewatch/internal/version"
)

// devFixture is what the simulated sensor board prints in -dev mode.
const devFixture = `{"field1": 24.5, "field2": 41.0, "field3": 320, "ai_confidence": 0.12}`

const (
	defaultTUILogFile = "firewatch.log"
	statusTimeout     = 3 * time.Second
	pollDrainTimeout  = 3 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
	case errors.Is(err, db.ErrUsage):
		os.Exit(2)
	default:
		log.Printf("firewatch: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "migrate":
			return runMigrate(args[1:], stdout, stderr)
		case "export":
			return runExport(args[1:], stdout, stderr)
		case "backup":
			return runBackup(args[1:], stdout, stderr)
		}
	}

	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, version.String())
		return nil
	}
	return serve(ctx, opts)
}

func serve(ctx context.Context, opts *options) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	cfg := opts.cfg

	var logOutputs []string
	if opts.logFile != "" {
		logOutputs = append(logOutputs, opts.logFile)
	} else if opts.tui {
		logOutputs = append(logOutputs, defaultTUILogFile)
	}
	logger, err := monitoring.NewZapLogger(cfg.GetLogLevel(), cfg.GetLogFormat(), "firewatch", logOutputs...)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()
	restoreLog := monitoring.UseZap(logger)
	defer restoreLog()

	monitoring.Logf("%s", version.String())
	if opts.configPath != "" {
		monitoring.Logf("loaded config from %s", opts.configPath)
	}

	clock := timeutil.RealClock{}
	store := history.NewStore(history.Options{MaxRecords: cfg.GetMaxRecords()})

	// The database is a mirror: the monitor keeps running without it.
	var database *db.DB
	if !opts.noDB {
		database, err = db.NewDB(cfg.GetDBPath())
		if err != nil {
			monitoring.Logf("history database unavailable, keeping history in memory only: %v", err)
		} else {
			defer database.Close()
			if opts.restore {
				records, err := database.LoadRecords(cfg.GetMaxRecords())
				if err != nil {
					monitoring.Logf("failed to restore history: %v", err)
				} else {
					store.Replay(records)
					monitoring.Logf("restored %d readings from %s", len(records), database.Path())
				}
			}
			store.SetPersister(database)
		}
	}

	session := monitor.NewSession(cfg.GetThresholds(), store, clock)

	dev, err := device.NewClient(cfg.GetDeviceURL(), nil, clock)
	if err != nil {
		return err
	}
	statusCtx, cancelStatus := context.WithTimeout(ctx, statusTimeout)
	if st, err := dev.Status(statusCtx); err != nil {
		monitoring.Logf("device status unavailable: %v", err)
	} else {
		session.SetDeviceStatus(st)
		monitoring.Logf("device %s: max width %dpx, frame skip %d, %.0f/%.0f fps", st.Device, st.ImgMaxWidth, st.FrameSkip, st.StreamFPS, st.TargetInfFPS)
	}
	cancelStatus()

	var wg sync.WaitGroup

	var (
		source    monitor.Source = dev
		serialMux serialmux.Mux
	)
	if opts.devMode || cfg.GetSerialPort() != "" {
		if opts.devMode {
			serialMux = serialmux.NewMockSerialMux(ctx, []byte(devFixture), cfg.GetPollInterval())
		} else {
			serialMux, err = serialmux.NewRealSerialMux(cfg.GetSerialPort(), serialmux.PortOptions{BaudRate: cfg.GetSerialBaudRate()})
			if err != nil {
				return fmt.Errorf("failed to open sensor board: %w", err)
			}
		}
		defer serialMux.Close()

		serialSource := monitor.NewSerialSource(serialMux, clock)
		source = serialSource

		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := serialMux.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
				monitoring.Logf("serial monitor stopped: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := serialSource.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				monitoring.Logf("serial reader stopped: %v", err)
			}
		}()
	}

	trend := charts.NewTrend(cfg.GetTrendPoints())
	alerts := api.NewAlertHub()
	// Closing the hub ends open alert streams so shutdown is not held up.
	go func() {
		<-ctx.Done()
		alerts.Close()
	}()
	sinks := []monitor.EffectSink{trend, alerts, monitor.LogSink{}}

	if broker := cfg.GetMQTTBroker(); broker != "" {
		hostname, _ := os.Hostname()
		connOpts, notifierOpts := mqttOptions(cfg, hostname)
		client, err := notify.ConnectMQTT(connOpts)
		if err != nil {
			monitoring.Logf("MQTT notifications disabled: %v", err)
		} else {
			defer client.Close()
			notifier := notify.NewNotifier(client, notifierOpts)
			sinks = append(sinks, notifier)
			monitoring.Logf("publishing alerts to %s on %s", broker, notifier.AlertTopic())
		}
	}

	if opts.tui {
		model := tui.NewModel(session, trend, time.Second).WithDisplay(cfg.GetDisplay())
		program := tui.NewProgram(model, tea.WithContext(ctx))
		sinks = append(sinks, tui.NewSink(program))
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Quitting the dashboard stops everything else.
			defer stop()
			if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				monitoring.Logf("terminal dashboard: %v", err)
			}
		}()
	}

	poller := monitor.NewPoller(source, session, monitor.PollerOptions{
		Interval: cfg.GetPollInterval(),
		Clock:    clock,
		Sinks:    sinks,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Logf("poller stopped: %v", err)
		}
		if !poller.WaitTimeout(pollDrainTimeout) {
			monitoring.Logf("in-flight polls still running after %v, not waiting for them", pollDrainTimeout)
		}
		monitoring.Logf("poll routine terminated")
	}()

	server := api.NewServer(api.Options{
		Session: session,
		Device:  dev,
		Trend:   trend,
		Alerts:  alerts,
		Clock:   clock,
		Display: cfg.GetDisplay(),
	})
	mux := server.ServeMux()
	if database != nil {
		if err := database.AttachAdminRoutes(mux); err != nil {
			monitoring.Logf("database admin routes disabled: %v", err)
		}
	}
	if serialMux != nil {
		serialMux.AttachAdminRoutes(mux)
	}

	var serveErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := api.ListenAndServe(ctx, cfg.GetListen(), api.LoggingMiddleware(mux)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
			stop()
		}
	}()

	wg.Wait()
	monitoring.Logf("Graceful shutdown complete")
	return serveErr
}

// mqttOptions derives the broker connection and publication settings.
func mqttOptions(cfg *config.Config, hostname string) (notify.MQTTOptions, notify.NotifierOptions) {
	conn := notify.MQTTOptions{
		Broker:   cfg.GetMQTTBroker(),
		ClientID: "firewatch-" + hostname,
		Username: cfg.GetMQTTUsername(),
		Password: cfg.GetMQTTPassword(),
	}
	pub := notify.NotifierOptions{
		Topic:           cfg.GetMQTTTopic(),
		QoS:             cfg.GetMQTTQoS(),
		PublishReadings: cfg.GetMQTTPublishReadings(),
	}
	return conn, pub
}
