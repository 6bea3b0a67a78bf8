// HomeLink Core - Home Device Connectivity Client
//
// This is the main entry point for the HomeLink Core application.
// HomeLink Core keeps one resilient session to the home's message broker:
//   - Reconnecting session engine with keep-alive probing
//   - Persistent subscription state surviving restarts
//   - Chained dispatch of inbound wills, status reports, and notifications
//   - Local REST + WebSocket surface for panels and diagnostics tooling
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/homelink/homelink-core/migrations"

	"github.com/homelink/homelink-core/internal/api"
	"github.com/homelink/homelink-core/internal/comms"
	"github.com/homelink/homelink-core/internal/connection"
	"github.com/homelink/homelink-core/internal/identity"
	"github.com/homelink/homelink-core/internal/infrastructure/config"
	"github.com/homelink/homelink-core/internal/infrastructure/database"
	"github.com/homelink/homelink-core/internal/infrastructure/influxdb"
	"github.com/homelink/homelink-core/internal/infrastructure/logging"
	"github.com/homelink/homelink-core/internal/netmon"
	"github.com/homelink/homelink-core/internal/session"
	"github.com/homelink/homelink-core/internal/transport/mqtt"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting HomeLink Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to InfluxDB (optional)
	var metrics session.MetricsSink
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		metrics = &influxdb.Sink{Client: influxClient}
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Identity provider (optional) - supplies the user id for stable
	// client-id construction
	var ident session.Identity
	if cfg.Identity.AccessToken != "" {
		provider, identErr := identity.NewProvider(cfg.Identity.AccessToken)
		if identErr != nil {
			return fmt.Errorf("parsing access token: %w", identErr)
		}
		ident = provider
		log.Info("identity initialised", "user_id", provider.UserID())
	} else {
		log.Info("no access token configured, using anonymous client id")
	}

	// Session manager over the MQTT transport
	transport := mqtt.New(mqtt.WithLogger(log))
	manager, err := session.NewManager(session.Deps{
		Transport: transport,
		Store:     session.NewSQLiteStore(db.DB),
		Identity:  ident,
		Logger:    log,
		Metrics:   metrics,
		DeviceID:  cfg.Site.ID,
	})
	if err != nil {
		return fmt.Errorf("creating session manager: %w", err)
	}
	defer func() {
		log.Info("closing session")
		if closeErr := manager.Close(); closeErr != nil {
			log.Error("error closing session", "error", closeErr)
		}
	}()

	// Restore persisted subscriptions; this reconnects to the previous
	// broker when topics survive from the last run.
	if restoreErr := manager.Restore(ctx); restoreErr != nil {
		log.Warn("session restore failed", "error", restoreErr)
	}

	// Connect to the configured broker if the restore didn't already
	if !manager.CheckConnection() {
		if connectErr := manager.Connect(ctx, sessionConfig(cfg)); connectErr != nil {
			// Not fatal: the network monitor retries when the broker
			// becomes reachable.
			log.Warn("initial connect failed", "error", connectErr)
		}
	}
	log.Info("session manager started",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"connected", manager.CheckConnection(),
	)

	// Network monitor drives reconnection when the LAN comes back
	monitor := netmon.New(
		fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		netmon.WithLogger(log),
	)
	monitor.Start(ctx)
	manager.WatchNetwork(ctx, monitor)

	// Start API server
	apiServer, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Session: manager,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify infrastructure is healthy
	if err := healthCheck(ctx, db, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. Session manager (announces offline presence)
	// 3. InfluxDB (if enabled)
	// 4. Database

	log.Info("HomeLink Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOMELINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMELINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// sessionConfig maps the broker, session, and identity config sections onto
// the session configuration applied at connect time.
func sessionConfig(cfg *config.Config) comms.Config {
	params := connection.Parameters{
		ConnectTimeout:       time.Duration(cfg.Session.ConnectTimeout) * time.Second,
		ReadTimeout:          time.Duration(cfg.Session.ReadTimeout) * time.Second,
		WriteTimeout:         time.Duration(cfg.Session.WriteTimeout) * time.Second,
		HeartbeatInterval:    time.Duration(cfg.Session.HeartbeatInterval) * time.Second,
		ReconnectInterval:    time.Duration(cfg.Session.ReconnectInterval) * time.Second,
		MaxReconnectAttempts: cfg.Session.MaxReconnectAttempts,
		AutoReconnect:        cfg.Session.AutoReconnect,
		EnableHeartbeat:      cfg.Session.EnableHeartbeat,
		BufferSize:           cfg.Session.BufferSize,
		Priority:             connection.PriorityNormal,
		QoS:                  qosFromLevel(cfg.Session.QoS),
	}

	return comms.Config{
		Host:         cfg.Broker.Host,
		Port:         cfg.Broker.Port,
		TLS:          cfg.Broker.TLS,
		ClientID:     cfg.Broker.ClientID,
		Username:     cfg.Broker.Auth.Username,
		Password:     cfg.Broker.Auth.Password,
		CleanSession: cfg.Broker.CleanSession,
		Parameters:   params,
	}
}

// qosFromLevel converts the numeric MQTT QoS level from config to the
// connection parameter enum.
func qosFromLevel(level int) connection.QoS {
	switch level {
	case 0:
		return connection.QoSAtMostOnce
	case 2:
		return connection.QoSExactlyOnce
	default:
		return connection.QoSAtLeastOnce
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - apiServer: API server to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, apiServer *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
