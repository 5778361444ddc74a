package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/foundryworks/foundry-core/internal/machine"
)

// Speed multiplier bounds. SetSpeed clamps instead of erroring so operator
// input can never stall the clock.
const (
	MinSpeed = 0.25
	MaxSpeed = 8.0
)

// MachineRegistry is the interface the engine needs from the machine
// registry.
type MachineRegistry interface {
	// TickAll advances every machine and returns effects keyed by machine ID.
	TickAll(dt float64) map[string][]machine.Effect

	// View returns the read-only projection of one machine.
	View(id string) (machine.MachineView, error)

	// Views returns projections of all machines, ordered by ID.
	Views() []machine.MachineView

	// Stats returns aggregate counts for telemetry sampling.
	Stats() machine.Stats

	// PersistAll writes every machine snapshot. Used by the autosave.
	PersistAll(ctx context.Context) error
}

// Publisher is the interface for publishing telemetry to the MQTT broker.
type Publisher interface {
	// Publish sends a message to the specified MQTT topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Broadcaster is the interface for pushing events to WebSocket clients.
type Broadcaster interface {
	// Broadcast sends an event to all clients subscribed to the given channel.
	Broadcast(channel string, payload any)
}

// MetricsWriter is the interface for recording time-series telemetry.
// Writes are fire-and-forget; the implementation batches asynchronously.
type MetricsWriter interface {
	WriteMachineMetric(machineID, measurement string, value float64)
	WriteCycleMetric(machineID, recipeID string, producedUnits float64)
	WritePowerMetric(machineID string, watts float64)
	WriteSimulationMetric(field string, value float64)
}

// TransitionRecorder records machine state transitions.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, machineID string, from, to machine.State, recipeID, source string) error
}

// ResourceLedger accumulates factory-wide resource totals.
type ResourceLedger interface {
	Credit(kind string, amount int)
	Debit(kind string, amount int) bool
}

// StateStore persists the simulation clock across restarts.
type StateStore interface {
	Save(ctx context.Context, st State) error
	Load(ctx context.Context) (State, bool, error)
}

// State is the persisted portion of the simulation clock.
type State struct {
	SimTime float64
	Speed   float64
	Paused  bool
}

// Logger defines the logging interface for the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps carries the engine's collaborators. Registry is required; every other
// dependency may be nil, which disables that output.
type Deps struct {
	Registry    MachineRegistry
	Publisher   Publisher
	Broadcaster Broadcaster
	Metrics     MetricsWriter
	History     TransitionRecorder
	Ledger      ResourceLedger
	State       StateStore
	Logger      Logger
}

// Config holds engine tuning.
type Config struct {
	// TickRate is ticker fires per second of wall time. Default: 10.
	TickRate float64

	// Speed is the initial speed multiplier. Default: 1. A persisted clock
	// overrides it on Start.
	Speed float64

	// SampleEvery is the number of ticks between telemetry samples.
	// Default: 10.
	SampleEvery int

	// AutosaveEvery is the wall-time interval between snapshot autosaves.
	// Default: 30s.
	AutosaveEvery time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		TickRate:      10,
		Speed:         1,
		SampleEvery:   10,
		AutosaveEvery: 30 * time.Second,
	}
}

// Status is a point-in-time view of the clock for the API.
type Status struct {
	Running   bool    `json:"running"`
	Paused    bool    `json:"paused"`
	SimTime   float64 `json:"sim_time_seconds"`
	Speed     float64 `json:"speed"`
	TickRate  float64 `json:"tick_rate"`
	TickCount uint64  `json:"tick_count"`
}

// Engine runs the simulation loop.
type Engine struct {
	deps     Deps
	cfg      Config
	interval time.Duration
	logger   Logger

	mu        sync.RWMutex
	running   bool
	paused    bool
	simTime   float64
	speed     float64
	tickCount uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates an engine over the given dependencies.
func NewEngine(deps Deps, cfg Config) (*Engine, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("simulation: machine registry is required")
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}

	def := DefaultConfig()
	if cfg.TickRate <= 0 {
		cfg.TickRate = def.TickRate
	}
	if cfg.SampleEvery <= 0 {
		cfg.SampleEvery = def.SampleEvery
	}
	if cfg.AutosaveEvery <= 0 {
		cfg.AutosaveEvery = def.AutosaveEvery
	}

	return &Engine{
		deps:     deps,
		cfg:      cfg,
		interval: time.Duration(float64(time.Second) / cfg.TickRate),
		logger:   deps.Logger,
		speed:    clampSpeed(cfg.Speed),
	}, nil
}

// Start restores the persisted clock and launches the tick loop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("simulation: engine is already running")
	}
	e.running = true
	e.done = make(chan struct{})
	e.mu.Unlock()

	e.restoreState(ctx)

	ctx, e.cancel = context.WithCancel(ctx)
	go e.run(ctx)

	st := e.Status()
	e.logger.Info("simulation engine started",
		"tick_rate", e.cfg.TickRate,
		"speed", st.Speed,
		"paused", st.Paused,
		"sim_time", st.SimTime,
	)
	return nil
}

// restoreState loads the saved clock, if any.
func (e *Engine) restoreState(ctx context.Context) {
	if e.deps.State == nil {
		return
	}
	st, found, err := e.deps.State.Load(ctx)
	if err != nil {
		e.logger.Error("failed to load simulation state", "error", err)
		return
	}
	if !found {
		return
	}

	e.mu.Lock()
	e.simTime = st.SimTime
	e.speed = clampSpeed(st.Speed)
	e.paused = st.Paused
	e.mu.Unlock()
}

// run is the engine goroutine: one ticker drives time, a second drives the
// autosave. The loop exits when the context is cancelled.
func (e *Engine) run(ctx context.Context) {
	defer close(e.done)
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	autosave := time.NewTicker(e.cfg.AutosaveEvery)
	defer autosave.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-autosave.C:
			e.autosave(ctx)
		case <-ticker.C:
			e.step(ctx)
		}
	}
}

// step advances the simulation by one tick. A paused clock swallows the tick
// without advancing time.
func (e *Engine) step(ctx context.Context) {
	e.mu.Lock()
	if e.paused {
		e.mu.Unlock()
		return
	}
	dt := e.interval.Seconds() * e.speed
	e.simTime += dt
	e.tickCount++
	tick := e.tickCount
	simTime := e.simTime
	e.mu.Unlock()

	effects := e.deps.Registry.TickAll(dt)
	for _, id := range sortedKeys(effects) {
		e.dispatch(ctx, id, effects[id], machine.HistorySourceTick, simTime)
	}

	if tick%uint64(e.cfg.SampleEvery) == 0 {
		e.sample()
	}
}

// autosave persists machine snapshots and the clock. Failures are logged;
// the next interval retries.
func (e *Engine) autosave(ctx context.Context) {
	if err := e.deps.Registry.PersistAll(ctx); err != nil {
		e.logger.Error("autosave failed to persist machines", "error", err)
	}
	e.saveState(ctx)
}

// saveState writes the clock through the state store.
func (e *Engine) saveState(ctx context.Context) {
	if e.deps.State == nil {
		return
	}

	e.mu.RLock()
	st := State{SimTime: e.simTime, Speed: e.speed, Paused: e.paused}
	e.mu.RUnlock()

	if err := e.deps.State.Save(ctx, st); err != nil {
		e.logger.Error("failed to save simulation state", "error", err)
	}
}

// Close stops the loop and performs a final save. Safe to call twice.
func (e *Engine) Close() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	e.cancel()
	<-e.done

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := e.deps.Registry.PersistAll(ctx)
	e.saveState(ctx)

	e.logger.Info("simulation engine stopped", "sim_time", e.Status().SimTime)
	return err
}

// Pause freezes the clock. Machines hold their exact mid-cycle state; the
// ticker keeps firing but ticks are swallowed.
func (e *Engine) Pause() {
	e.mu.Lock()
	changed := !e.paused
	e.paused = true
	e.mu.Unlock()

	if changed {
		e.logger.Info("simulation paused", "sim_time", e.Status().SimTime)
		e.publishClock()
	}
}

// Resume unfreezes the clock.
func (e *Engine) Resume() {
	e.mu.Lock()
	changed := e.paused
	e.paused = false
	e.mu.Unlock()

	if changed {
		e.logger.Info("simulation resumed", "sim_time", e.Status().SimTime)
		e.publishClock()
	}
}

// SetSpeed changes the speed multiplier, clamped to [MinSpeed, MaxSpeed],
// and returns the applied value. Takes effect on the next tick.
func (e *Engine) SetSpeed(speed float64) float64 {
	applied := clampSpeed(speed)

	e.mu.Lock()
	e.speed = applied
	e.mu.Unlock()

	e.logger.Info("simulation speed changed", "speed", applied)
	e.publishClock()
	return applied
}

// Status returns the current clock reading.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return Status{
		Running:   e.running,
		Paused:    e.paused,
		SimTime:   e.simTime,
		Speed:     e.speed,
		TickRate:  e.cfg.TickRate,
		TickCount: e.tickCount,
	}
}

// clampSpeed folds a requested multiplier into the supported range. NaN and
// non-positive values fall back to 1.
func clampSpeed(speed float64) float64 {
	if speed != speed || speed <= 0 {
		return 1
	}
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}
