package simulation

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/foundryworks/foundry-core/internal/infrastructure/mqtt"
	"github.com/foundryworks/foundry-core/internal/machine"
)

// topics builds the MQTT topic strings. Machine state topics are retained
// so late subscribers see the latest known state; event topics are transient.
var topics mqtt.Topics

// WebSocket channels.
const (
	channelStateChanged   = "machine.state_changed"
	channelCycleCompleted = "machine.cycle_completed"
	channelClock          = "simulation.clock"
)

// DispatchEffects fans out the effects returned by a registry mutation, the
// same way tick effects are dispatched. API handlers and the MQTT command
// dispatcher call this after every mutating registry call so that a recipe
// change or power toggle is observable through the same channels as a tick.
//
// The machine's retained state topic is refreshed even when the mutation
// produced no effects, because port contents and tier are not effect-bearing.
func (e *Engine) DispatchEffects(ctx context.Context, machineID string, effects []machine.Effect) {
	e.dispatch(ctx, machineID, effects, machine.HistorySourceCommand, e.Status().SimTime)
}

// ClearRetainedState drops the retained MQTT state for a removed machine by
// publishing an empty payload.
func (e *Engine) ClearRetainedState(machineID string) {
	if e.deps.Publisher == nil {
		return
	}
	if err := e.deps.Publisher.Publish(topics.MachineState(machineID), nil, 1, true); err != nil {
		e.logger.Error("failed to clear retained machine state",
			"machine_id", machineID, "error", err)
	}
}

// dispatch routes one machine's effects to every configured consumer.
func (e *Engine) dispatch(ctx context.Context, machineID string, effects []machine.Effect, source string, simTime float64) {
	view, err := e.deps.Registry.View(machineID)
	haveView := err == nil
	if haveView {
		e.publishJSON(topics.MachineState(machineID), view, true)
	} else {
		// Removed between tick and dispatch; effect-borne data still flows.
		e.logger.Debug("machine gone before dispatch", "machine_id", machineID)
	}

	for _, eff := range effects {
		switch eff.Kind {
		case machine.EffectStateChanged:
			recipeID := eff.RecipeID
			if recipeID == "" && haveView {
				recipeID = view.RecipeID
			}
			e.recordTransition(ctx, machineID, eff.Old, eff.New, recipeID, source)
			e.broadcast(channelStateChanged, map[string]any{
				"machine_id": machineID,
				"old":        eff.Old,
				"new":        eff.New,
				"sim_time":   simTime,
			})

		case machine.EffectProcessingStarted:
			e.publishEvent(machineID, map[string]any{
				"event":      "processing_started",
				"machine_id": machineID,
				"recipe_id":  eff.RecipeID,
				"sim_time":   simTime,
			})

		case machine.EffectProcessingCompleted:
			e.mirrorCompletion(eff)
			if e.deps.Metrics != nil {
				e.deps.Metrics.WriteCycleMetric(machineID, eff.RecipeID, float64(stackUnits(eff.Produced)))
			}
			payload := map[string]any{
				"event":      "cycle_completed",
				"machine_id": machineID,
				"recipe_id":  eff.RecipeID,
				"consumed":   eff.Consumed,
				"produced":   eff.Produced,
				"sim_time":   simTime,
			}
			e.publishEvent(machineID, payload)
			e.broadcast(channelCycleCompleted, payload)

		case machine.EffectCycleHeld:
			e.publishEvent(machineID, map[string]any{
				"event":      "cycle_held",
				"machine_id": machineID,
				"recipe_id":  eff.RecipeID,
				"sim_time":   simTime,
			})

		case machine.EffectPowerChanged:
			// Carried by the retained state topic; nothing extra to emit.
		}
	}
}

// mirrorCompletion feeds a completed cycle into the resource ledger.
// Consumption may floor at zero: resources fed into intakes from outside
// the factory were never credited.
func (e *Engine) mirrorCompletion(eff machine.Effect) {
	if e.deps.Ledger == nil {
		return
	}
	for _, s := range eff.Consumed {
		e.deps.Ledger.Debit(s.Kind, s.Amount)
	}
	for _, s := range eff.Produced {
		e.deps.Ledger.Credit(s.Kind, s.Amount)
	}
}

// recordTransition writes one history row, logging instead of failing.
func (e *Engine) recordTransition(ctx context.Context, machineID string, from, to machine.State, recipeID, source string) {
	if e.deps.History == nil {
		return
	}
	if err := e.deps.History.RecordTransition(ctx, machineID, from, to, recipeID, source); err != nil {
		e.logger.Error("failed to record state transition",
			"machine_id", machineID, "from", from, "to", to, "error", err)
	}
}

// sample writes periodic telemetry and publishes the clock.
func (e *Engine) sample() {
	if e.deps.Metrics != nil {
		stats := e.deps.Registry.Stats()
		e.deps.Metrics.WriteSimulationMetric("power_draw_watts", stats.PowerDraw)
		e.deps.Metrics.WriteSimulationMetric("machines_processing",
			float64(stats.ByState[machine.StateProcessing]))

		for _, view := range e.deps.Registry.Views() {
			e.deps.Metrics.WritePowerMetric(view.ID, view.PowerDraw)
			if view.State == machine.StateProcessing {
				e.deps.Metrics.WriteMachineMetric(view.ID, "progress", view.Progress)
			}
		}
	}

	e.publishClock()
}

// publishClock pushes the current clock reading to the retained clock topic
// and the WebSocket clock channel.
func (e *Engine) publishClock() {
	st := e.Status()
	payload := map[string]any{
		"sim_time":   st.SimTime,
		"speed":      st.Speed,
		"paused":     st.Paused,
		"tick_count": st.TickCount,
	}
	e.publishJSON(topics.SimulationClock(), payload, true)
	e.broadcast(channelClock, payload)
}

// publishEvent sends a transient machine event.
func (e *Engine) publishEvent(machineID string, payload any) {
	e.publishJSON(topics.MachineEvent(machineID), payload, false)
}

// publishJSON marshals and publishes, logging failures.
func (e *Engine) publishJSON(topic string, payload any, retained bool) {
	if e.deps.Publisher == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.Error("failed to marshal mqtt payload", "topic", topic, "error", err)
		return
	}
	if err := e.deps.Publisher.Publish(topic, data, 1, retained); err != nil {
		e.logger.Error("mqtt publish failed", "topic", topic, "error", err)
	}
}

// broadcast pushes to a WebSocket channel when a hub is configured.
func (e *Engine) broadcast(channel string, payload any) {
	if e.deps.Broadcaster == nil {
		return
	}
	e.deps.Broadcaster.Broadcast(channel, payload)
}

// stackUnits sums the amounts across a stack list.
func stackUnits(stacks []machine.Stack) int {
	total := 0
	for _, s := range stacks {
		total += s.Amount
	}
	return total
}

// sortedKeys returns the map keys in ascending order so effect dispatch is
// deterministic.
func sortedKeys(m map[string][]machine.Effect) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
