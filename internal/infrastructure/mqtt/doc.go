// Package mqtt provides MQTT client connectivity for Foundry Core.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Foundry uses MQTT as the telemetry bus: machine state and simulation
// clock updates flow out to dashboards and external tooling, and machine
// commands flow back in on per-machine command topics.
//
//	Foundry Core ↔ MQTT Broker ↔ Dashboards / external tooling
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all machine command topics
//	err = client.Subscribe(mqtt.Topics{}.AllMachineCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a machine state update
//	topic := mqtt.Topics{}.MachineState("mach-1f2a8c3b")
//	client.Publish(topic, stateJSON, 1, true)
package mqtt
