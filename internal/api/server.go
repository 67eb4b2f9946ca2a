package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/iot-admin-core/internal/audit"
	"github.com/nerrad567/iot-admin-core/internal/auth"
	"github.com/nerrad567/iot-admin-core/internal/browse"
	"github.com/nerrad567/iot-admin-core/internal/infrastructure/config"
	"github.com/nerrad567/iot-admin-core/internal/infrastructure/database"
	"github.com/nerrad567/iot-admin-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/iot-admin-core/internal/infrastructure/logging"
	"github.com/nerrad567/iot-admin-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/iot-admin-core/internal/metrics"
	"github.com/nerrad567/iot-admin-core/internal/objects"
	"github.com/nerrad567/iot-admin-core/internal/smartname"
	"github.com/nerrad567/iot-admin-core/internal/visuapp"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// AdapterCommander sends commands to the voice-assistant adapter.
// *messagebox.Adapter satisfies it.
type AdapterCommander interface {
	Target() string
	Send(ctx context.Context, command string, payload any) (json.RawMessage, error)
}

// AppHandler processes visuApp messages. *visuapp.Handler satisfies it.
type AppHandler interface {
	Handle(ctx context.Context, req visuapp.Request) (any, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config        config.APIConfig
	WS            config.WebSocketConfig
	Security      config.SecurityConfig
	Subscriptions config.SubscriptionsConfig
	MetricsConfig config.MetricsConfig
	Logger        *logging.Logger
	Registry      *objects.Registry
	SmartNames    *smartname.Service
	Browser       *browse.Browser  // optional: browse routes answer 503 without it
	Adapter       AdapterCommander // optional: adapter routes answer 503 without it
	App           AppHandler       // optional: app routes answer 503 without it
	MQTT          *mqtt.Client     // optional: reported in /system
	DB            *database.DB     // optional: reported in /system
	Influx        *influxdb.Client // optional: reported in /system
	Audit         audit.Repository // optional: edits are not recorded without it
	Metrics       *metrics.Metrics // optional
	Version       string
}

// Server is the HTTP API server for the IoT admin core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	secCfg     config.SecurityConfig
	batchCfg   config.SubscriptionsConfig
	metricsCfg config.MetricsConfig
	logger     *logging.Logger
	registry   *objects.Registry
	smartNames *smartname.Service
	browser    *browse.Browser
	adapter    AdapterCommander
	app        AppHandler
	mqtt       *mqtt.Client
	db         *database.DB
	influx     *influxdb.Client
	metrics    *metrics.Metrics
	auditRepo  audit.Repository
	auditCh    chan *audit.Entry
	version    string
	startTime  time.Time
	server     *http.Server
	hub        *Hub
	cancel     context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (logger, registry, smart-name service, JWT secret)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("object registry is required")
	}
	if deps.SmartNames == nil {
		return nil, fmt.Errorf("smart-name service is required")
	}
	if deps.Security.JWT.Secret == "" {
		return nil, auth.ErrNoSecret
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		secCfg:     deps.Security,
		batchCfg:   deps.Subscriptions,
		metricsCfg: deps.MetricsConfig,
		logger:     deps.Logger,
		registry:   deps.Registry,
		smartNames: deps.SmartNames,
		browser:    deps.Browser,
		adapter:    deps.Adapter,
		app:        deps.App,
		mqtt:       deps.MQTT,
		db:         deps.DB,
		influx:     deps.Influx,
		metrics:    deps.Metrics,
		auditRepo:  deps.Audit,
		version:    deps.Version,
		startTime:  time.Now(),
	}
	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
	}
	s.hub = NewHub(s.wsCfg, s.logger, s.metrics)

	return s, nil
}

// Handler returns the routed HTTP handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Parent context for background goroutines
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	if s.auditRepo != nil {
		go s.drainAuditLog(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// WebSocket clients are disconnected first so their subscriptions are
// released, then in-flight requests get up to 10 seconds to complete.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.hub.closeAll()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
