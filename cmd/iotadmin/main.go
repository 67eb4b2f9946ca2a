// Package main is the entry point for the IoT admin core.
//
// The core owns the object/state tree of a voice-assistant adapter instance:
// it edits smart names, proxies browse and update commands to the adapter
// over an MQTT messagebox, accepts mobile-app messages and streams state
// changes to WebSocket clients.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/iot-admin-core/internal/api"
	"github.com/nerrad567/iot-admin-core/internal/audit"
	"github.com/nerrad567/iot-admin-core/internal/auth"
	"github.com/nerrad567/iot-admin-core/internal/browse"
	"github.com/nerrad567/iot-admin-core/internal/infrastructure/config"
	"github.com/nerrad567/iot-admin-core/internal/infrastructure/database"
	"github.com/nerrad567/iot-admin-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/iot-admin-core/internal/infrastructure/logging"
	"github.com/nerrad567/iot-admin-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/iot-admin-core/internal/messagebox"
	"github.com/nerrad567/iot-admin-core/internal/metrics"
	"github.com/nerrad567/iot-admin-core/internal/objects"
	"github.com/nerrad567/iot-admin-core/internal/smartname"
	"github.com/nerrad567/iot-admin-core/internal/visuapp"
	_ "github.com/nerrad567/iot-admin-core/migrations" // Registers embedded SQL migrations
)

// Version information (set at build time via ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// defaultConfigPath is the default location for the configuration file.
const defaultConfigPath = "configs/config.yaml"

// messageboxSender identifies the core to adapters answering sendTo requests.
const messageboxSender = "system.adapter.iotadmin"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application logic, separated for testability.
//
// Parameters:
//   - ctx: Context that is cancelled on shutdown signal
//
// Returns:
//   - error: Startup or runtime failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting IoT admin core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	// Re-initialise logger with configured level and format
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"instance", cfg.Instance.ID,
		"language", cfg.Instance.Language,
		"no_common", cfg.Instance.NoCommon,
	)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations applied")

	registry := objects.NewRegistry(objects.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.With("component", "objects"))
	registry.SetSource(messageboxSender)
	if err := registry.RefreshCache(ctx); err != nil {
		return fmt.Errorf("loading object tree: %w", err)
	}
	log.Info("object tree loaded", "objects", registry.GetObjectCount())

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("closing MQTT connection")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.With("component", "mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT connected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	registry.SetPublisher(objects.NewMQTTPublisher(mqttClient))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", mqttClient.ClientID(),
	)

	// Connect to InfluxDB (if enabled)
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

		history := &stateHistory{writer: influxClient}
		registry.SubscribeState(history, "*")
		defer registry.UnsubscribeState(history, "*")
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	m := metrics.New()

	msgClient := messagebox.NewClient(mqttClient, messagebox.Config{
		Timeout: cfg.MessageboxTimeout(),
		From:    messageboxSender,
	})
	msgClient.SetLogger(log.With("component", "messagebox"))
	msgClient.SetObserver(m.MessageboxRequest)
	if err := msgClient.Start(); err != nil {
		return fmt.Errorf("starting messagebox: %w", err)
	}
	defer func() {
		if closeErr := msgClient.Close(); closeErr != nil {
			log.Error("error closing messagebox", "error", closeErr)
		}
	}()
	adapter := messagebox.NewAdapter(msgClient, cfg.Messagebox.Target)
	log.Info("messagebox ready", "target", adapter.Target(), "reply_topic", msgClient.ReplyTopic())

	browser := browse.NewBrowser(adapter, adapter.Target(), browse.NewCache())
	browser.SetLogger(log.With("component", "browse"))

	smartNames := smartname.NewService(registry, smartname.Options{
		InstanceID: cfg.Instance.ID,
		NoCommon:   cfg.Instance.NoCommon,
		Language:   cfg.Instance.Language,
	})
	smartNames.SetLogger(log.With("component", "smartname"))
	smartNames.SetObserver(func(op string, result smartname.Result) {
		m.SmartNameUpdate(op, string(result))
	})

	app := visuapp.NewHandler(registry, cfg.VisuApp.Namespace)
	app.SetLogger(log.With("component", "visuapp"))
	app.SetSender(msgClient)
	app.SetObserver(m.AppMessage)
	if influxClient != nil {
		app.SetTelemetry(influxClient)
	}
	if cfg.VisuApp.Enabled {
		intake := visuapp.NewIntake(mqttClient, app)
		if err := intake.Start(); err != nil {
			return fmt.Errorf("starting app intake: %w", err)
		}
		defer func() {
			if stopErr := intake.Stop(); stopErr != nil {
				log.Warn("error stopping app intake", "error", stopErr)
			}
		}()
		log.Info("app intake started", "namespace", app.Namespace())
	} else {
		log.Info("app intake disabled")
	}

	apiServer, err := api.New(api.Deps{
		Config:        cfg.API,
		WS:            cfg.WebSocket,
		Security:      cfg.Security,
		Subscriptions: cfg.Subscriptions,
		MetricsConfig: cfg.Metrics,
		Logger:        log,
		Registry:      registry,
		SmartNames:    smartNames,
		Browser:       browser,
		Adapter:       adapter,
		App:           app,
		MQTT:          mqttClient,
		Influx:        influxClient,
		DB:            db,
		Audit:         audit.NewSQLiteRepository(db.DB),
		Metrics:       m,
		Version:       version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: API, app intake,
	// messagebox, InfluxDB, MQTT, database.

	log.Info("IoT admin core stopped")
	return nil
}

// runToken prints a signed access token for the given subject and role.
//
//	iotadmin token <subject> [admin|editor|viewer]
func runToken(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: iotadmin token <subject> [role]")
	}
	role := auth.RoleAdmin
	if len(args) > 1 {
		role = auth.Role(args[1])
	}
	if !auth.IsValidRole(role) {
		return fmt.Errorf("unknown role %q", role)
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ttl := time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute
	token, err := auth.GenerateToken(args[0], role, cfg.Security.JWT.Secret, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

// getConfigPath returns the configuration file path.
// Uses IOTADMIN_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("IOTADMIN_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// stateValueWriter is the InfluxDB surface used for state history.
type stateValueWriter interface {
	WriteStateValue(id string, val any)
}

// stateHistory mirrors every state change into the time-series store.
type stateHistory struct {
	writer stateValueWriter
}

// OnStateChange implements objects.StateListener.
func (h *stateHistory) OnStateChange(id string, state *objects.State) {
	if state == nil {
		return
	}
	h.writer.WriteStateValue(id, state.Val)
}
