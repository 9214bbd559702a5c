// Gray Logic Audio - audio policy core
//
// audiopolicyd decides where every audio stream plays and which device
// every recording reads from. It keeps a model of the host audio graph,
// fed by the audio server bridge over MQTT, and rewires it whenever
// devices or streams come and go:
//   - routing groups rank candidate devices per zone and stream class
//   - explicit connections from the resource manager override defaults
//   - every routing pass is recorded for the API and for telemetry
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/gray-logic-audio/migrations"

	"github.com/nerrad567/gray-logic-audio/internal/api"
	"github.com/nerrad567/gray-logic-audio/internal/audit"
	"github.com/nerrad567/gray-logic-audio/internal/engine"
	"github.com/nerrad567/gray-logic-audio/internal/history"
	"github.com/nerrad567/gray-logic-audio/internal/host"
	"github.com/nerrad567/gray-logic-audio/internal/hotplug"
	"github.com/nerrad567/gray-logic-audio/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-audio/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-audio/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-audio/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-audio/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-audio/internal/mainloop"
	"github.com/nerrad567/gray-logic-audio/internal/node"
	"github.com/nerrad567/gray-logic-audio/internal/policy"
	"github.com/nerrad567/gray-logic-audio/internal/resmgr"
	"github.com/nerrad567/gray-logic-audio/internal/routing"
	"github.com/nerrad567/gray-logic-audio/internal/switcher"
	"github.com/nerrad567/gray-logic-audio/internal/volume"
	"github.com/nerrad567/gray-logic-audio/internal/zone"
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
	log.Info("starting Gray Logic Audio",
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

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	pol, err := policy.Load(cfg.Policy.File)
	if err != nil {
		return fmt.Errorf("loading policy: %w", err)
	}
	log.Info("policy loaded", "path", cfg.Policy.File, "groups", len(pol.Groups), "zones", len(pol.Zones))

	// Open database
	db, err := database.Open(ctx, database.Config{
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

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	var outbox *mqtt.Outbox
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
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

		outbox = mqtt.NewOutbox(mqttClient, 0)
		outbox.SetLogger(log.Component("outbox"))
		outbox.Start(ctx)
		defer outbox.Stop()
	} else {
		log.Info("MQTT disabled, host graph is local only")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
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

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Routing core. Everything below is owned by the main loop.
	loop := mainloop.New()
	loop.SetLogger(log.Component("mainloop"))

	graph := host.NewMemory()
	if cfg.Host.MirrorCommands && outbox != nil {
		graph.SetCommandSink(host.NewMQTTSink(outbox, cfg.Host.BridgeID))
	}

	registry := node.NewRegistry()
	registry.SetLogger(log.Component("registry"))

	sw := switcher.New(graph, registry, loop)
	sw.SetLogger(log.Component("switcher"))

	limiter, err := volume.NewLimiter(graph, pol.VolumeLimits)
	if err != nil {
		return fmt.Errorf("creating volume limiter: %w", err)
	}
	limiter.SetLogger(log.Component("volume"))

	router := routing.NewRouter(registry, sw, limiter)
	router.SetLogger(log.Component("router"))

	zones := zone.NewTable()
	if err := pol.Apply(router, zones); err != nil {
		return fmt.Errorf("applying policy: %w", err)
	}

	eng, err := engine.New(engine.Deps{
		Host:     graph,
		Registry: registry,
		Router:   router,
		Switcher: sw,
		Policy:   pol,
		Zones:    zones,
		Loop:     loop,
		Logger:   log.Component("engine"),
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	// Route history
	historyRepo := history.NewSQLiteRepository(db.DB)
	recorder := history.NewRecorder(historyRepo, 0)
	recorder.SetLogger(log.Component("history"))
	recorder.Start(ctx)
	defer recorder.Stop()
	router.AddObserver(recorder)
	go pruneHistory(ctx, historyRepo, cfg.History, log)

	if influxClient != nil {
		router.AddObserver(history.NewTelemetry(influxClient))
	}

	// Audio server bridge and resource manager
	if mqttClient != nil {
		stop, err := subscribeHostEvents(mqttClient, graph, loop, cfg.Host.BridgeID, log)
		if err != nil {
			return err
		}
		defer stop()

		bridge := resmgr.New(eng, loop, outbox)
		bridge.SetLogger(log.Component("resmgr"))
		if err := bridge.Start(mqttClient, mqttClient.QoS()); err != nil {
			return fmt.Errorf("starting resource manager bridge: %w", err)
		}
		defer func() {
			if stopErr := bridge.Stop(mqttClient); stopErr != nil {
				log.Warn("error stopping resource manager bridge", "error", stopErr)
			}
		}()
		router.AddObserver(bridge)
	}

	// HTTP API
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Security: cfg.Security,
			Logger:   log.Component("api"),
			Loop:     loop,
			Registry: registry,
			Router:   router,
			Engine:   eng,
			History:  historyRepo,
			Audit:    audit.NewSQLiteRepository(db.DB),
			DB:       db.DB,
			Version:  version,
		}
		if mqttClient != nil {
			deps.MQTT = mqttClient
		}
		srv, err := api.New(deps)
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		router.AddObserver(srv.Hub())
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	// Sound card hotplug
	monitor := hotplug.New(cfg.Hotplug, func(changes []hotplug.Change) {
		log.Debug("sound cards changed", "changes", len(changes))
		loop.Post(eng.Rescan)
	})
	monitor.SetLogger(log.Component("hotplug"))
	if err := monitor.Start(ctx); err != nil {
		return fmt.Errorf("starting hotplug monitor: %w", err)
	}
	defer monitor.Stop()

	eng.Start()
	log.Info("initialisation complete, waiting for shutdown signal")

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("main loop: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")
	log.Info("Gray Logic Audio stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_AUDIO_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_AUDIO_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
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

// subscribeHostEvents feeds audio server bridge events into the host
// model on the main loop.
//
// Returns:
//   - func(): Unsubscribes again
//   - error: If the subscription fails
func subscribeHostEvents(client *mqtt.Client, graph *host.Memory, loop *mainloop.Loop, bridgeID string, log *logging.Logger) (func(), error) {
	topic := mqtt.Topics{}.AllHostEvents(bridgeID)
	err := client.Subscribe(topic, client.QoS(), func(t string, payload []byte) error {
		ev, err := host.DecodeBridgeEvent(mqtt.LastSegment(t), payload)
		if err != nil {
			return err
		}
		loop.Post(func() {
			if applyErr := graph.Apply(ev); applyErr != nil {
				log.Warn("host event rejected", "kind", ev.Kind, "error", applyErr)
			}
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to host events: %w", err)
	}
	log.Info("subscribed to audio server bridge", "topic", topic)

	return func() {
		if unsubErr := client.Unsubscribe(topic); unsubErr != nil {
			log.Warn("error unsubscribing from host events", "error", unsubErr)
		}
	}, nil
}

// historyPruner is the part of history.SQLiteRepository pruneHistory uses.
type historyPruner interface {
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// pruneHistory deletes expired route history every cfg.PruneInterval
// until ctx is cancelled.
func pruneHistory(ctx context.Context, repo historyPruner, cfg config.HistoryConfig, log *logging.Logger) {
	ticker := time.NewTicker(cfg.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.Prune(ctx, cfg.Retention)
			if err != nil {
				log.Warn("route history prune failed", "error", err)
				continue
			}
			if deleted > 0 {
				log.Info("route history pruned", "deleted", deleted, "retention", cfg.Retention.String())
			}
		}
	}
}
