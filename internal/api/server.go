package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/foundryworks/foundry-core/internal/audit"
	"github.com/foundryworks/foundry-core/internal/auth"
	"github.com/foundryworks/foundry-core/internal/catalog"
	"github.com/foundryworks/foundry-core/internal/grid"
	"github.com/foundryworks/foundry-core/internal/infrastructure/config"
	"github.com/foundryworks/foundry-core/internal/infrastructure/logging"
	"github.com/foundryworks/foundry-core/internal/ledger"
	"github.com/foundryworks/foundry-core/internal/machine"
	"github.com/foundryworks/foundry-core/internal/simulation"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// auditChanSize is the buffer size for the async audit log channel. Entries
// beyond this are dropped (best-effort) to avoid back-pressure on requests.
const auditChanSize = 256

// Registry is the machine registry surface the API drives. *machine.Registry
// satisfies it; tests substitute a registry built over a mock repository.
type Registry interface {
	Place(ctx context.Context, typeID, name string, pos machine.Position, rotation int) (machine.MachineView, error)
	Remove(ctx context.Context, id string) error
	View(id string) (machine.MachineView, error)
	Views() []machine.MachineView
	Stats() machine.Stats
	SetRecipe(ctx context.Context, id, recipeID string) ([]machine.Effect, error)
	ClearRecipe(ctx context.Context, id string) ([]machine.Effect, error)
	SetPowered(ctx context.Context, id string, powered bool) ([]machine.Effect, error)
	SetEnabled(ctx context.Context, id string, enabled bool) ([]machine.Effect, error)
	SetTier(ctx context.Context, id string, tier int) error
	AddToIntake(ctx context.Context, id string, port int, kind string, amount int) (bool, error)
	ExtractFromIntake(ctx context.Context, id string, port int, kind string, amount int) (int, error)
	ExtractFromOutput(ctx context.Context, id string, port int, kind string, amount int) (int, error)
}

// EffectSink fans mutation effects out to MQTT, WebSocket, history and
// telemetry consumers. *simulation.Engine satisfies it.
type EffectSink interface {
	DispatchEffects(ctx context.Context, machineID string, effects []machine.Effect)
	ClearRetainedState(machineID string)
}

// Clock is the simulation clock control surface. *simulation.Engine
// satisfies it.
type Clock interface {
	Status() simulation.Status
	Pause()
	Resume()
	SetSpeed(speed float64) float64
}

// Deps holds the dependencies required by the API server.
//
// Logger and Registry are required. Everything else degrades gracefully:
// a nil Clock disables the simulation endpoints, a nil AuditRepo disables
// the audit trail, and so on.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Site     config.SiteConfig

	Logger   *logging.Logger
	Registry Registry
	Catalog  *catalog.Catalog
	Clock    Clock
	Effects  EffectSink
	Grid     *grid.Grid
	Ledger   *ledger.Ledger
	History  machine.HistoryRepository
	Audit    audit.Repository

	// ExternalHub, when set, is used instead of creating a private hub.
	// The simulation engine broadcasts through the same hub.
	ExternalHub *Hub

	Version string
}

// Server is the HTTP API server for Foundry Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	secCfg  config.SecurityConfig
	siteCfg config.SiteConfig

	logger    *logging.Logger
	registry  Registry
	catalog   *catalog.Catalog
	clock     Clock
	effects   EffectSink
	grid      *grid.Grid
	ledger    *ledger.Ledger
	history   machine.HistoryRepository
	auditRepo audit.Repository
	auditCh   chan *audit.Event

	operators map[string]auth.Operator

	version     string
	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("machine registry is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		siteCfg:   deps.Site,
		logger:    deps.Logger,
		registry:  deps.Registry,
		catalog:   deps.Catalog,
		clock:     deps.Clock,
		effects:   deps.Effects,
		grid:      deps.Grid,
		ledger:    deps.Ledger,
		history:   deps.History,
		auditRepo: deps.Audit,
		version:   deps.Version,
		operators: make(map[string]auth.Operator),
	}

	for _, op := range deps.Security.Operators {
		s.operators[op.Username] = auth.Operator{
			Username:     op.Username,
			PasswordHash: op.PasswordHash,
			Role:         auth.Role(op.Role),
		}
	}

	if deps.Audit != nil {
		s.auditCh = make(chan *audit.Event, auditChanSize)
	}

	// Use an externally-provided hub if available (needed when the engine
	// also requires the hub for WebSocket broadcasting).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub and the audit drain, and
// launches the HTTP listener in a background goroutine. The server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	if s.auditCh != nil {
		go s.drainAuditLog(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
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
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
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

// Hub returns the server's WebSocket hub, creating a detached one when Start
// has not run yet.
func (s *Server) Hub() *Hub {
	return s.hub
}

// dispatchEffects hands mutation effects to the engine so API-sourced
// changes are observable on the same channels as ticks.
func (s *Server) dispatchEffects(ctx context.Context, machineID string, effects []machine.Effect) {
	if s.effects == nil {
		return
	}
	s.effects.DispatchEffects(ctx, machineID, effects)
}

// compile-time checks that the concrete collaborators satisfy the API's
// consumer-side interfaces.
var (
	_ Clock      = (*simulation.Engine)(nil)
	_ EffectSink = (*simulation.Engine)(nil)
	_ Registry   = (*machine.Registry)(nil)
)
