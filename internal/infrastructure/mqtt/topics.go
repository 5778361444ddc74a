package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the Foundry MQTT hierarchy.
//
// All topics live under the flat scheme: foundry/{category}/...
// Machine topics carry the machine ID as the third segment so a single
// wildcard subscription covers the whole fleet.
const (
	// TopicPrefix is the base for all Foundry topics.
	TopicPrefix = "foundry"

	// TopicPrefixMachine is the base for per-machine topics.
	TopicPrefixMachine = "foundry/machine"

	// TopicPrefixSimulation is the base for simulation-wide topics.
	TopicPrefixSimulation = "foundry/simulation"

	// TopicPrefixCore is the base for core service topics.
	TopicPrefixCore = "foundry/core"
)

// Topics provides builders for Foundry MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.MachineState("mach-1f2a8c3b")
//	// Returns: "foundry/machine/mach-1f2a8c3b/state"
type Topics struct{}

// MachineState returns the retained state topic for a machine.
// Core publishes the full machine view here after every mutation.
//
// Example: foundry/machine/mach-1f2a8c3b/state
func (Topics) MachineState(machineID string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixMachine, machineID)
}

// MachineEvent returns the transient event topic for a machine.
// Cycle starts, completions and holds are published here.
//
// Example: foundry/machine/mach-1f2a8c3b/event
func (Topics) MachineEvent(machineID string) string {
	return fmt.Sprintf("%s/%s/event", TopicPrefixMachine, machineID)
}

// MachineCommand returns the command topic for a machine.
// External clients publish JSON commands here; Core subscribes.
//
// Example: foundry/machine/mach-1f2a8c3b/set
func (Topics) MachineCommand(machineID string) string {
	return fmt.Sprintf("%s/%s/set", TopicPrefixMachine, machineID)
}

// SimulationClock returns the retained simulation clock topic.
//
// Example: foundry/simulation/clock
func (Topics) SimulationClock() string {
	return fmt.Sprintf("%s/clock", TopicPrefixSimulation)
}

// CoreAvailability returns the core availability topic.
// Carries retained online/offline status and the LWT message.
//
// Example: foundry/core/availability
func (Topics) CoreAvailability() string {
	return fmt.Sprintf("%s/availability", TopicPrefixCore)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllMachineStates returns a pattern matching every machine state topic.
//
// Pattern: foundry/machine/+/state
func (Topics) AllMachineStates() string {
	return fmt.Sprintf("%s/+/state", TopicPrefixMachine)
}

// AllMachineEvents returns a pattern matching every machine event topic.
//
// Pattern: foundry/machine/+/event
func (Topics) AllMachineEvents() string {
	return fmt.Sprintf("%s/+/event", TopicPrefixMachine)
}

// AllMachineCommands returns a pattern matching every machine command topic.
// Core subscribes to this to receive operator commands over MQTT.
//
// Pattern: foundry/machine/+/set
func (Topics) AllMachineCommands() string {
	return fmt.Sprintf("%s/+/set", TopicPrefixMachine)
}

// AllTopics returns a pattern matching all Foundry topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: foundry/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// ParseMachineCommand extracts the machine ID from a command topic.
//
// Returns the machine ID and true for topics of the form
// foundry/machine/{id}/set, or "" and false for anything else.
// Wildcard-expanded topics delivered by the broker always take this form
// when subscribed via AllMachineCommands.
func ParseMachineCommand(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "foundry" || parts[1] != "machine" || parts[3] != "set" {
		return "", false
	}
	if parts[2] == "" || strings.ContainsAny(parts[2], "+#") {
		return "", false
	}
	return parts[2], true
}
