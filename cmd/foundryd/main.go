// Foundry Core - Factory Simulation Platform
//
// This is the main entry point for the Foundry Core daemon. It runs the
// production floor simulation: the machine registry, the fixed-timestep
// simulation clock, the MQTT telemetry bridge, and the HTTP/WebSocket API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/foundryworks/foundry-core/migrations"

	"github.com/foundryworks/foundry-core/internal/api"
	"github.com/foundryworks/foundry-core/internal/audit"
	"github.com/foundryworks/foundry-core/internal/catalog"
	"github.com/foundryworks/foundry-core/internal/grid"
	"github.com/foundryworks/foundry-core/internal/infrastructure/config"
	"github.com/foundryworks/foundry-core/internal/infrastructure/database"
	"github.com/foundryworks/foundry-core/internal/infrastructure/influxdb"
	"github.com/foundryworks/foundry-core/internal/infrastructure/logging"
	"github.com/foundryworks/foundry-core/internal/infrastructure/mqtt"
	"github.com/foundryworks/foundry-core/internal/ledger"
	"github.com/foundryworks/foundry-core/internal/machine"
	"github.com/foundryworks/foundry-core/internal/simulation"
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
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("foundryd %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Foundry Core",
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Load the machine type and recipe catalog
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	log.Info("catalog loaded",
		"path", cfg.Catalog.Path,
		"types", len(cat.Types()),
		"recipes", len(cat.Recipes()),
	)

	// Factory floor and resource accounting
	floor := grid.New(cfg.Grid.Width, cfg.Grid.Height)
	resourceLedger := ledger.New()
	log.Info("factory grid initialised", "width", cfg.Grid.Width, "height", cfg.Grid.Height)

	// Machine registry over its SQLite repository
	machineRepo := machine.NewSQLiteRepository(db.DB)
	historyRepo := machine.NewSQLiteHistoryRepository(db.DB)
	registry := machine.NewRegistry(machineRepo, cat, floor)
	registry.SetLogger(log)

	if loadErr := registry.LoadAll(ctx); loadErr != nil {
		return fmt.Errorf("loading machine registry: %w", loadErr)
	}
	log.Info("machine registry initialised", "machines", registry.Count())

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Connect to the MQTT broker. Telemetry is an output, not a dependency:
	// a missing broker degrades to API-only operation rather than refusing
	// to start the factory.
	var mqttClient *mqtt.Client
	mqttClient, err = mqtt.Connect(cfg.MQTT)
	if err != nil {
		log.Warn("MQTT unavailable, continuing without the bus", "error", err)
		mqttClient = nil
	} else {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	}

	// Audit trail
	auditRepo := audit.NewSQLiteRepository(db.DB)

	// WebSocket hub is shared between the API server and the engine, so it
	// is created here and run on the application context.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Simulation engine
	engineDeps := simulation.Deps{
		Registry:    registry,
		Broadcaster: hub,
		History:     historyRepo,
		Ledger:      resourceLedger,
		State:       simulation.NewSQLiteStateStore(db.DB),
		Logger:      log,
	}
	if mqttClient != nil {
		engineDeps.Publisher = mqttClient
	}
	if influxClient != nil {
		engineDeps.Metrics = influxClient
	}

	engine, err := simulation.NewEngine(engineDeps, simulation.Config{
		TickRate:      cfg.Simulation.TickRate,
		Speed:         cfg.Simulation.Speed,
		SampleEvery:   cfg.Simulation.SampleEvery,
		AutosaveEvery: cfg.GetAutosaveInterval(),
	})
	if err != nil {
		return fmt.Errorf("creating simulation engine: %w", err)
	}

	// Machine commands arriving over the bus flow through the same registry
	// mutations as the API.
	if mqttClient != nil {
		dispatcher, dispErr := simulation.NewCommandDispatcher(registry, engine, auditRepo, log)
		if dispErr != nil {
			return fmt.Errorf("creating command dispatcher: %w", dispErr)
		}
		pattern := mqtt.Topics{}.AllMachineCommands()
		if subErr := mqttClient.Subscribe(pattern, byte(cfg.MQTT.QoS), dispatcher.HandleMessage); subErr != nil {
			return fmt.Errorf("subscribing to machine commands: %w", subErr)
		}
		log.Info("machine command dispatcher subscribed", "topic", pattern)
	}

	// API server
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Site:        cfg.Site,
		Logger:      log,
		Registry:    registry,
		Catalog:     cat,
		Clock:       engine,
		Effects:     engine,
		Grid:        floor,
		Ledger:      resourceLedger,
		History:     historyRepo,
		Audit:       auditRepo,
		ExternalHub: hub,
		Version:     version,
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

	// Start the simulation clock last so every output is wired before the
	// first tick.
	if startErr := engine.Start(ctx); startErr != nil {
		return fmt.Errorf("starting simulation engine: %w", startErr)
	}
	defer func() {
		log.Info("stopping simulation engine")
		if closeErr := engine.Close(); closeErr != nil {
			log.Error("error closing simulation engine", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	if influxClient != nil {
		influxClient.Flush()
	}

	// Deferred Close() calls run in reverse order:
	// 1. Simulation engine (final autosave)
	// 2. API server
	// 3. MQTT (if connected)
	// 4. InfluxDB (if enabled)
	// 5. Database

	log.Info("Foundry Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses FOUNDRY_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("FOUNDRY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections are healthy. MQTT and
// InfluxDB are optional and skipped when absent.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
