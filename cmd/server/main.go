package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/Tyrowin/gochat-relay/internal/eventlog"
	"github.com/Tyrowin/gochat-relay/internal/server"
)

type options struct {
	configPath string
	envFile    string
	port       string
	store      string
	logLevel   string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options
	flagSet := pflag.NewFlagSet("gochat-relay", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to a YAML configuration file")
	flagSet.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flagSet.StringVar(&opts.port, "port", "", "listen address, e.g. 5000 or :5000")
	flagSet.StringVar(&opts.store, "store", "", "event log backend: memory, redis, sqlite or appwrite")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	envErr := godotenv.Load(opts.envFile)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := setupLogger(os.Stdout, cfg.LogLevel)
	reportEnvFile(logger, opts.envFile, envErr)

	ctx := context.Background()
	store, closer, err := eventlog.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	events := eventlog.NewClient(store, logger.With("component", "eventlog"), cfg.Store.Timeout)
	logger.Info("event log ready", "backend", cfg.Store.Backend)

	relay := server.NewServer(cfg, events, logger)
	httpServer := server.CreateServer(relay.Config().Port, relay.Routes())

	go func() {
		if err := server.StartServer(httpServer); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		ctx,
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http": func(ctx context.Context) error {
				return server.ShutdownServer(ctx, httpServer)
			},
			"relay": func(ctx context.Context) error {
				hubErr := relay.Hub().Shutdown(cfg.ShutdownTimeout)
				if err := closer.Close(); err != nil {
					logger.Warn("error closing event log store", "error", err)
				}
				return hubErr
			},
		},
	)

	exitCode := <-wait
	logger.Info("relay exited", "code", exitCode)
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

// loadConfig layers defaults, the optional YAML file, the environment and
// finally command-line flags.
func loadConfig(opts options) (server.Config, error) {
	cfg := server.NewConfig()
	if opts.configPath != "" {
		fileCfg, err := server.LoadConfigFile(opts.configPath)
		if err != nil {
			return server.Config{}, err
		}
		cfg = fileCfg
	}
	cfg.ApplyEnv()

	if opts.port != "" {
		cfg.Port = opts.port
	}
	if opts.store != "" {
		cfg.Store.Backend = opts.store
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	return cfg.Sanitize(), nil
}

// reportEnvFile logs the outcome of loading the dotenv file. It runs once the
// configured logger exists so the message honours LOG_LEVEL.
func reportEnvFile(logger *slog.Logger, path string, err error) {
	if err != nil {
		logger.Debug("no dotenv file loaded, using environment variables", "file", path, "error", err)
		return
	}
	logger.Debug("loaded dotenv file", "file", path)
}

func setupLogger(w io.Writer, levelName string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(levelName) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
