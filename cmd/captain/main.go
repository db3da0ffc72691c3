package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/CaptainRL/captain/internal/agent"
	"github.com/CaptainRL/captain/internal/config"
	"github.com/CaptainRL/captain/internal/dispatcher"
	"github.com/CaptainRL/captain/internal/handlers"
	"github.com/CaptainRL/captain/internal/influx"
	"github.com/CaptainRL/captain/internal/logging"
	"github.com/CaptainRL/captain/internal/monitor"
	intOtel "github.com/CaptainRL/captain/internal/otel"
	"github.com/CaptainRL/captain/internal/recorder"
	"github.com/CaptainRL/captain/internal/storage"
	pgstorage "github.com/CaptainRL/captain/internal/storage/postgres"
	"github.com/CaptainRL/captain/pkg/hostproto"

	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.1.0"
	BuildDate      string = "unknown"

	ProcessName string = "captain"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// ZLogger backs the dispatcher, database and influx logging
	ZLogger zerolog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	// MatchCtx stamps match and tick attributes on every log record
	MatchCtx = &logging.MatchContext{}

	SessionStartTime time.Time = time.Now()

	// Services
	eventDispatcher *dispatcher.Dispatcher
	storageBackend  storage.Backend
	influxManager   *influx.Manager
	telemetry       *recorder.Recorder
	monitorService  *monitor.Service
	handlerService  *handlers.Service

	logFile *os.File
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "export" {
		if err := runExport(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "export:", err)
			os.Exit(1)
		}
		return
	}

	fs := flag.NewFlagSet(ProcessName, flag.ExitOnError)
	configDir := fs.String("config", executableDir(), "directory containing "+config.ConfigFileName)
	showVersion := fs.Bool("version", false, "print the version and exit")
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("%s %s (built %s)\n", ProcessName, CurrentVersion, BuildDate)
		return
	}

	setupLogging(*configDir)
	defer shutdown()

	if err := setupServices(); err != nil {
		Logger.Error("Failed to start", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	Logger.Info("Serving host protocol on stdin/stdout", "version", CurrentVersion)
	server := hostproto.NewServer(eventDispatcher, CurrentVersion)
	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		Logger.Error("Host connection failed", "error", err)
	}
	Logger.Info("Host connection closed")
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// setupLogging loads the config and builds slog and zerolog loggers. Nothing is
// ever logged to stdout.
func setupLogging(configDir string) {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil, nil)
	Logger = SlogManager.Logger()

	configErr := config.Load(configDir)

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
	}
	logPath := logging.LogFilePath(logsDir, ProcessName, SessionStartTime)
	var err error
	logFile, err = os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", logPath)
		logFile = nil
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		var w io.Writer
		if logFile != nil {
			w = logFile
		}
		OTelProvider, err = intOtel.New(intOtel.FromConfig(otelCfg, w))
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		}
	}
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}

	var extra []slog.Handler
	level := config.GetString("logLevel")
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.DialGELF(gl.Address)
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "error", err, "address", gl.Address)
		} else {
			extra = append(extra, logging.NewGELFHandler(w, levelVar(level), ProcessName))
		}
	}

	var fileOut io.Writer
	if logFile != nil {
		fileOut = logFile
	}
	SlogManager.Setup(fileOut, level, otelLogProvider, MatchCtx, extra...)
	Logger = SlogManager.Logger()
	slog.SetDefault(Logger)

	zout := io.Writer(os.Stderr)
	if logFile != nil {
		zout = logFile
	}
	ZLogger = logging.NewZerolog(zout, level)

	if configErr != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", configErr)
	} else {
		Logger.Info("Loaded config", "dir", configDir)
	}
	if logFile != nil {
		Logger.Info("Logging to file", "path", logPath)
	}
}

func levelVar(level string) slog.Leveler {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func setupServices() error {
	var err error
	eventDispatcher, err = dispatcher.New(logging.NewDispatcherLogger(ZLogger))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	storageCfg := config.GetStorageConfig()
	storageBackend = initStorage(storageCfg)

	influxManager = setupInflux()
	var points recorder.PointWriter
	if influxManager != nil {
		points = influxManager
	}

	telemetry = recorder.New(recorder.Dependencies{
		Backend:    storageBackend,
		Points:     points,
		Dispatcher: eventDispatcher,
		Logger:     Logger.With("component", "recorder"),
	})

	tuning, err := config.GetTuning()
	if err != nil {
		Logger.Warn("Invalid tuning, using defaults", "error", err)
		tuning = config.DefaultTuning()
	}

	monitorDeps := monitor.Dependencies{
		Recorder:    telemetry,
		LogFailures: SlogManager.SinkFailures,
		Dispatcher:  eventDispatcher,
		Logger:      Logger.With("component", "monitor"),
		StatusDir:   config.GetString("logsDir"),
		Interval:    config.GetDuration("monitor.interval"),
		TeamStatus: func() (agent.Status, bool) {
			if handlerService == nil {
				return agent.Status{}, false
			}
			return handlerService.Status()
		},
	}
	if pg, ok := storageBackend.(*pgstorage.Backend); ok && pg.Backend != nil {
		monitorDeps.DB = pg.DB()
	}
	monitorService = monitor.NewService(monitorDeps)
	if monitorDeps.DB != nil {
		if err := monitorService.ValidateHypertables(map[string][]string{
			"tick_samples": {"match_id", "car_id"},
		}); err != nil {
			Logger.Warn("TimescaleDB hypertables not configured", "error", err)
		}
	}

	handlerService = handlers.NewService(handlers.Dependencies{
		Tuning:   tuning,
		Comms:    config.GetCommsConfig(),
		Recorder: agent.Recorders{telemetry, monitorService},
		Matches:  telemetry,
		Context:  MatchCtx,
		Logger:   Logger.With("component", "handlers"),
	})
	handlerService.RegisterHandlers(eventDispatcher)

	if err := monitorService.Start(); err != nil {
		Logger.Warn("Failed to start status monitor", "error", err)
	}
	Logger.Info("Services ready", "storage", storageCfg.Type, "commands", eventDispatcher.Commands())
	return nil
}

func setupInflux() *influx.Manager {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return nil
	}
	backup := filepath.Join(config.GetString("logsDir"),
		fmt.Sprintf("influx_%s.lp.gz", SessionStartTime.Format("20060102_150405")))
	m := influx.NewManager(cfg, ZLogger, backup)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Connect(ctx); err != nil {
		Logger.Error("Failed to set up influx, disabling", "error", err)
		return nil
	}
	Logger.Info("Influx ready", "url", m.URL(), "online", m.Valid())
	return m
}

func shutdown() {
	if handlerService != nil {
		handlerService.EndMatch()
	}
	if monitorService != nil {
		monitorService.Stop()
		monitorService.Report()
	}
	if storageBackend != nil {
		if err := storageBackend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
		if exp, ok := storageBackend.(storage.Exportable); ok && exp.GetExportedFilePath() != "" {
			Logger.Info("Telemetry saved", "path", exp.GetExportedFilePath())
		}
	}
	if influxManager != nil {
		if err := influxManager.Close(); err != nil {
			Logger.Error("Failed to close influx", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := SlogManager.Flush(ctx); err != nil {
		Logger.Warn("Failed to flush logs", "error", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "otel shutdown:", err)
		}
	}
	if logFile != nil {
		logFile.Close()
	}
}
