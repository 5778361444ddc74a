package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteMachineMetric writes a single machine measurement to InfluxDB.
//
// This is the primary method for recording per-machine telemetry.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - machineID: Unique identifier for the machine (e.g., "saw-1f2a8c3b")
//   - measurement: The metric name (e.g., "progress", "intake_fill")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteMachineMetric("saw-1f2a8c3b", "progress", 0.45)
func (c *Client) WriteMachineMetric(machineID string, measurement string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"machine_metrics",
		map[string]string{
			"machine_id":  machineID,
			"measurement": measurement,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCycleMetric records one completed production cycle.
//
// Used for throughput dashboards: units produced per machine per recipe
// over time.
//
// Parameters:
//   - machineID: Machine identifier
//   - recipeID: The recipe that completed
//   - producedUnits: Total units emitted by the cycle
func (c *Client) WriteCycleMetric(machineID string, recipeID string, producedUnits float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"cycles",
		map[string]string{
			"machine_id": machineID,
			"recipe_id":  recipeID,
		},
		map[string]interface{}{
			"produced_units": producedUnits,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePowerMetric records a machine's current power draw.
//
// Sampled periodically by the simulation loop; idle and unpowered machines
// report zero.
//
// Parameters:
//   - machineID: Machine identifier
//   - watts: Current power draw in watts
func (c *Client) WritePowerMetric(machineID string, watts float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"power",
		map[string]string{
			"machine_id": machineID,
		},
		map[string]interface{}{
			"watts": watts,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSimulationMetric records a factory-wide gauge under the simulation
// measurement.
//
// Parameters:
//   - field: The gauge name (e.g., "power_draw_watts", "machines_processing")
//   - value: The gauge value
func (c *Client) WriteSimulationMetric(field string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"simulation",
		nil,
		map[string]interface{}{
			field: value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., backfilled data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
