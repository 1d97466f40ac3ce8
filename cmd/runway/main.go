// Command runway is the command-line front end for the DevSkyy workflow
// orchestration core: it routes task descriptions against a configured
// agent roster and validates deployment configuration.
//
// Usage:
//
//	runway route --config config.yaml "generate product photos"
//	runway route --type video_processing --priority 80 "edit the clip"
//	runway validate --config config.yaml
//	runway version
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/devskyy/runway/config"
	"github.com/devskyy/runway/internal/metrics"
	"github.com/devskyy/runway/internal/telemetry"
	"github.com/devskyy/runway/router"
)

// Build-time injected version info.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "route":
		runRoute(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runRoute(args []string) {
	fs := flag.NewFlagSet("route", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	taskType := fs.String("type", "unknown", "Task type hint")
	priority := fs.Int("priority", 0, "Task priority 1-100 (0 means default)")
	fs.Parse(args)

	description := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if description == "" {
		fmt.Fprintln(os.Stderr, "route: a task description is required")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelProviders.Shutdown(ctx)
	}()

	parsed, err := router.ParseTaskType(*taskType)
	if err != nil {
		fmt.Fprintf(os.Stderr, "route: %v\n", err)
		os.Exit(1)
	}
	req, err := router.NewTaskRequest(parsed, description, *priority)
	if err != nil {
		fmt.Fprintf(os.Stderr, "route: %v\n", err)
		os.Exit(1)
	}

	r := buildRouter(cfg, logger)
	result, err := r.Route(context.Background(), req)
	if err != nil {
		logger.Error("routing failed", zap.Error(err))
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	store := router.NewFileStore(cfg.Router.AgentConfigPath, logger)
	agents, err := store.GetEnabledAgents()
	if err != nil {
		fmt.Fprintf(os.Stderr, "agent config invalid: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OK: config valid, %d enabled agent(s) in %s\n",
		len(agents), cfg.Router.AgentConfigPath)
}

func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// buildRouter wires the agent store, routing cache, and metrics per the
// loaded configuration.
func buildRouter(cfg *config.Config, logger *zap.Logger) *router.Router {
	store := router.NewFileStore(cfg.Router.AgentConfigPath, logger)
	collector := metrics.NewCollector(cfg.Engine.MetricsNamespace, logger)

	var cache router.Cache
	if cfg.Router.CacheBackend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		cache = router.NewRedisCache(client, cfg.Redis.KeyPrefix, cfg.Router.CacheTTL, logger)
	} else {
		cache = router.NewMemoryCache()
	}

	return router.New(store,
		router.WithCache(cache),
		router.WithRouterLogger(logger),
		router.WithRouterCollector(collector),
	)
}

func printVersion() {
	fmt.Printf("runway %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`runway - workflow orchestration and task routing

Usage:
  runway <command> [options]

Commands:
  route     Route a task description to the best registered agent
  validate  Validate configuration and the agent roster
  version   Show version information
  help      Show this help message

Options for 'route':
  --config <path>   Path to configuration file (YAML)
  --type <type>     Task type hint (default: unknown, triggers fuzzy match)
  --priority <n>    Task priority 1-100

Examples:
  runway route --config config.yaml "generate product photos for the drop"
  runway route --type inventory_update "sync stock levels"
  runway validate --config /etc/runway/config.yaml
  runway version`)
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoding = "console"
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}
