// Package simulation drives the factory clock.
//
// The Engine owns the only goroutine that advances machines: a fixed-timestep
// loop ticks the registry, collects the effects every machine returned, and
// fans them out to MQTT, WebSocket clients, the transition history, the
// metrics store and the resource ledger. Mutations arriving from the API or
// MQTT command handlers reuse the same fan-out through DispatchEffects, so
// every observable change leaves the system through one path.
//
// Collaborators are passed in as small interfaces on Deps; everything except
// the machine registry is optional and a nil dependency simply disables that
// output. The engine never blocks the tick loop on a slow consumer: publish
// and persistence failures are logged and the next tick proceeds.
//
// Wall-clock pacing and simulated time are related by the speed multiplier:
// every ticker fire advances the simulation by interval multiplied by speed,
// so speed 2 runs the factory twice as fast without changing the tick rate.
package simulation
