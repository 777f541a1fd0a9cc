package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/ThirdPersonSW2/extension/internal/config"
	"github.com/ThirdPersonSW2/extension/internal/logging"
	intOtel "github.com/ThirdPersonSW2/extension/internal/otel"
	"github.com/ThirdPersonSW2/extension/internal/round"
	"github.com/ThirdPersonSW2/extension/internal/storage"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentExtensionVersion = "0.1.0"
	BuildDate               = "unknown"

	ExtensionName = "thirdperson"
)

const usage = `usage: thirdperson <command> [flags]

commands:
  demo      run the camera against the sandbox world
  config    print the resolved configuration
  sessions  list journaled camera sessions
  version   print the version
`

// runtime owns everything that must be flushed or closed on exit.
type runtime struct {
	slog    *logging.SlogManager
	Logger  *slog.Logger
	Zerolog zerolog.Logger
	Round   *round.Context
	Start   time.Time

	otel    *intOtel.Provider
	logFile *os.File
	graylog io.Closer
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("no command provided")
	}
	cmd := strings.ToLower(args[0])

	fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configDir := fs.StringP("config-dir", "c", ".", "directory containing "+config.FileName)
	logLevel := fs.String("log-level", "", "override logLevel from config")
	ticks := fs.Int("ticks", 128, "frames to simulate (demo)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "%s %s (built %s)\n", ExtensionName, CurrentExtensionVersion, BuildDate)
		return nil
	case "config":
		return printConfig(*configDir, stdout)
	case "demo", "sessions":
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command: %s", cmd)
	}

	rt, err := setup(*configDir, *logLevel, stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	journal, err := storage.NewBackend(config.GetStorageConfig(), rt.Zerolog.With().Str("component", "storage").Logger())
	if err != nil {
		return err
	}

	if cmd == "sessions" {
		return listSessions(journal, stdout)
	}

	report, err := runDemo(demoOptions{
		Plugin:    config.GetPluginConfig(),
		Smoothing: config.GetSmoothingConfig(),
		Journal:   journal,
		Ticks:     *ticks,
		Logger:    rt.Logger,
		Events:    logging.NewDispatcherLogger(rt.Zerolog),
		Round:     rt.Round,
	})
	if err != nil {
		return err
	}
	report.Print(stdout)
	return nil
}

// setup loads config and builds the log fan-out. A missing config file is
// logged and the defaults are used.
func setup(configDir, levelOverride string, console io.Writer) (*runtime, error) {
	rt := &runtime{
		slog:  logging.NewSlogManager(),
		Start: time.Now(),
	}
	rt.Round = round.NewContext(rt.Start)

	rt.slog.Setup(logging.Options{Console: console, Level: "info"})
	rt.Logger = rt.slog.Logger()

	if err := config.Load(configDir); err != nil {
		rt.Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		rt.Logger.Info("Loaded config", "dir", configDir)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level := config.GetString("logLevel")
	if levelOverride != "" {
		level = levelOverride
	}

	var err error
	rt.logFile, err = logging.OpenLogFile(config.GetString("logsDir"), ExtensionName, rt.Start)
	if err != nil {
		rt.Logger.Error("Failed to create/open log file!", "error", err)
	}

	opts := logging.Options{
		Console: console,
		Level:   level,
		Context: rt.Round.LogAttrs,
	}
	if rt.logFile != nil {
		opts.File = rt.logFile
	}

	if gc := config.GetGraylogConfig(); gc.Enabled {
		w, err := logging.NewGraylogWriter(gc.Address, ExtensionName)
		if err != nil {
			rt.Logger.Error("Failed to connect to Graylog", "error", err)
		} else {
			opts.Graylog = w
			rt.graylog = w
		}
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		var logWriter io.Writer
		if rt.logFile != nil {
			logWriter = rt.logFile
		}
		rt.otel, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logWriter,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			rt.Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			opts.Provider = rt.otel.LoggerProvider()
		}
	}

	rt.slog.Setup(opts)
	rt.Logger = rt.slog.Logger()

	var zw io.Writer = console
	if rt.logFile != nil {
		zw = rt.logFile
	}
	rt.Zerolog = logging.NewZerolog(zw, level, ExtensionName)

	rt.Logger.Info("Starting up...", "version", CurrentExtensionVersion, "build", BuildDate)
	return rt, nil
}

// Close flushes telemetry and closes the log sinks.
func (rt *runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rt.slog.Flush(ctx); err != nil {
		rt.Logger.Warn("Failed to flush logs", "error", err)
	}
	if rt.otel != nil {
		if err := rt.otel.Shutdown(ctx); err != nil {
			rt.Logger.Warn("Failed to shut down OTel", "error", err)
		}
	}
	if rt.graylog != nil {
		_ = rt.graylog.Close()
	}
	if rt.logFile != nil {
		_ = rt.logFile.Close()
	}
}

func printConfig(configDir string, w io.Writer) error {
	loadErr := config.Load(configDir)

	out := map[string]any{
		"plugin":    config.GetPluginConfig(),
		"smoothing": config.GetSmoothingConfig(),
		"storage":   config.GetStorageConfig(),
		"otel":      config.GetOTelConfig(),
		"graylog":   config.GetGraylogConfig(),
		"logLevel":  config.GetString("logLevel"),
		"logsDir":   config.GetString("logsDir"),
	}
	if loadErr != nil {
		out["loadError"] = loadErr.Error()
	}
	if err := config.Validate(); err != nil {
		out["invalid"] = err.Error()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func listSessions(journal storage.Backend, w io.Writer) error {
	lister, ok := journal.(storage.Lister)
	if !ok {
		return fmt.Errorf("storage backend %T cannot list sessions", journal)
	}
	if err := journal.Init(); err != nil {
		return err
	}
	defer journal.Close()

	sessions, err := lister.Sessions()
	if err != nil {
		return err
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\tround %d\t%s\t%s\n",
			s.Player, s.Mode, s.Round, s.Reason, s.Duration().Round(time.Millisecond))
	}
	fmt.Fprintf(w, "%d sessions\n", len(sessions))
	return nil
}
