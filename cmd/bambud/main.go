// bambud - Bambu Lab printer daemon
//
// This is the main entry point for the printer daemon. It keeps a telemetry
// session with one printer on the local network and:
//   - Tracks print jobs from the status stream and persists them
//   - Downloads the project archive and camera thumbnails of cloud prints
//   - Relays status and job events over HTTP and WebSocket
//   - Optionally records status history in InfluxDB
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/bambu-core/internal/api"
	"github.com/nerrad567/bambu-core/internal/bambu"
	"github.com/nerrad567/bambu-core/internal/cache"
	"github.com/nerrad567/bambu-core/internal/event"
	"github.com/nerrad567/bambu-core/internal/hms"
	"github.com/nerrad567/bambu-core/internal/infrastructure/config"
	"github.com/nerrad567/bambu-core/internal/infrastructure/database"
	"github.com/nerrad567/bambu-core/internal/infrastructure/ftps"
	"github.com/nerrad567/bambu-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/bambu-core/internal/infrastructure/logging"
	"github.com/nerrad567/bambu-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/bambu-core/internal/job"
	"github.com/nerrad567/bambu-core/internal/tracker"
	"github.com/nerrad567/bambu-core/internal/transfer"
	"github.com/nerrad567/bambu-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting bambud",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version).With("serial", cfg.Printer.Serial)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	store, closeStore, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("opening %s cache: %w", cfg.Cache.Backend, err)
	}
	defer func() {
		log.Info("closing cache", "backend", cfg.Cache.Backend)
		if closeErr := closeStore(); closeErr != nil {
			log.Error("error closing cache", "error", closeErr)
		}
	}()
	log.Info("cache opened", "backend", cfg.Cache.Backend)

	jobs := tracker.New(store, tracker.WithLogger(log))
	if restoreErr := jobs.Restore(ctx); restoreErr != nil {
		return fmt.Errorf("restoring jobs: %w", restoreErr)
	}
	if current := jobs.CurrentJob(); current != nil {
		log.Info("restored active job", "job", current.String())
	}

	files, err := transfer.New(transfer.Config{
		ScratchDir:        cfg.Transfer.ScratchDir,
		PollInterval:      cfg.Transfer.PollInterval,
		StartGrace:        cfg.Transfer.StartGrace,
		RetryDelay:        cfg.Transfer.RetryDelay,
		ThumbnailInterval: cfg.Transfer.ThumbnailInterval,
	}, ftps.New(ftps.Config{
		Host:     cfg.Printer.Host,
		Port:     cfg.Printer.FTPPort,
		Password: cfg.Printer.AccessToken,
		Timeout:  cfg.Transfer.Timeout,
	}), jobs, transfer.WithLogger(log))
	if err != nil {
		return fmt.Errorf("creating file transfer service: %w", err)
	}

	mqttClient := mqtt.New(cfg.Printer, cfg.MQTT)
	mqttClient.SetLogger(log)

	printer := bambu.New(mqttClient, jobs,
		bambu.WithLogger(log),
		bambu.WithFileTransfer(files),
	)
	defer func() {
		log.Info("closing printer client")
		if closeErr := printer.Close(); closeErr != nil {
			log.Error("error closing printer client", "error", closeErr)
		}
	}()
	logEvents(printer, log)

	// Status history (optional)
	var history *influxdb.Recorder
	if cfg.InfluxDB.Enabled {
		history, err = influxdb.Open(ctx, cfg.InfluxDB, cfg.Printer.Serial)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := history.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		history.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		printer.OnStatus(history.RecordStatus)
		printer.OnAnyJob(history.RecordJob)
	} else {
		log.Info("InfluxDB disabled")
	}

	resolver, err := hms.New(hms.Config{
		BaseURL:     cfg.HMS.WikiBaseURL,
		MaxAttempts: cfg.HMS.MaxAttempts,
		CacheSize:   cfg.HMS.CacheSize,
		Timeout:     cfg.HMS.Timeout,
	}, nil)
	if err != nil {
		return fmt.Errorf("creating HMS resolver: %w", err)
	}

	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Logger:  log,
			Printer: printer,
			HMS:     resolver,
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	log.Info("connecting to printer", "host", cfg.Printer.Host)
	if connectErr := printer.Connect(ctx); connectErr != nil {
		if errors.Is(connectErr, context.Canceled) {
			log.Info("shutdown requested before the printer answered")
			return nil
		}
		return connectErr
	}

	if err := healthCheck(ctx, mqttClient, history); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (if enabled)
	// 2. InfluxDB (if enabled)
	// 3. Printer client and file transfer
	// 4. Cache

	log.Info("bambud stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses BAMBU_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("BAMBU_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openCache opens the configured cache backend and returns it with its
// close function.
func openCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, func() error, error) {
	switch cfg.Backend {
	case config.CacheSQLite:
		db, err := database.Open(database.Config{
			Path:        cfg.SQLite.Path,
			WALMode:     cfg.SQLite.WALMode,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			db.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		return cache.NewSQLite(db), db.Close, nil

	case config.CacheRedis:
		rc, err := cache.DialRedis(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return rc, rc.Close, nil

	case config.CacheMemory, "":
		mem, err := cache.NewMemory(cfg.Memory.Size)
		if err != nil {
			return nil, nil, err
		}
		return mem, func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// logEvents logs connection changes and job transitions.
func logEvents(printer *bambu.Client, log *logging.Logger) {
	printer.OnAnyConnection(func(name event.Name, ev bambu.ConnectionEvent) {
		switch name {
		case event.Connected:
			log.Info("printer connected")
		case event.Disconnected:
			log.Warn("printer disconnected", "error", ev.Err)
		case event.Subscribed, event.Published:
			if ev.Err != nil {
				log.Warn("printer "+string(name)+" failed", "topic", ev.Topic, "error", ev.Err)
			}
		}
	})
	printer.OnAnyJob(func(name event.Name, j *job.Job) {
		if name == event.PrintUpdate {
			return
		}
		log.Info(string(name), "job", j.String())
	})
}

// healthChecker is implemented by every infrastructure client.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mqttClient: Telemetry client to check
//   - history: InfluxDB recorder to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, mqttClient healthChecker, history *influxdb.Recorder) error {
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if history != nil {
		if err := history.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
