package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/homelink/homelink-core/internal/connection"
)

// WriteQualityMetric writes a connection-quality sample to InfluxDB.
//
// This is the primary method for recording link telemetry. The write is
// non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Identifier of the peer the session talks to
//   - quality: The quality metrics snapshot to record
//
// Example:
//
//	client.WriteQualityMetric("hub-1", info.Quality)
func (c *Client) WriteQualityMetric(deviceID string, quality connection.Quality) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{
		"score":       quality.Score(),
		"stability":   quality.Stability,
		"latency_ms":  quality.Latency,
		"throughput":  quality.Throughput,
		"packet_loss": quality.PacketLoss,
		"error_rate":  quality.ErrorRate,
	}
	if quality.SignalStrength != nil {
		fields["signal_dbm"] = *quality.SignalStrength
	}

	point := write.NewPoint(
		"connection_quality",
		map[string]string{
			"device_id": deviceID,
			"level":     string(quality.Level()),
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSessionEvent writes a session lifecycle event (state transition).
//
// Used for reconstructing connection history: when the session connected,
// dropped, recovered or failed.
//
// Parameters:
//   - deviceID: Identifier of the peer the session talks to
//   - event: The event name (typically the new connection state)
func (c *Client) WriteSessionEvent(deviceID string, event string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"session_events",
		map[string]string{
			"device_id": deviceID,
			"event":     event,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteStatistics writes a cumulative statistics snapshot.
//
// Parameters:
//   - deviceID: Identifier of the peer the session talks to
//   - stats: The statistics snapshot to record
func (c *Client) WriteStatistics(deviceID string, stats connection.Statistics) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"connection_statistics",
		map[string]string{
			"device_id": deviceID,
			"health":    string(stats.HealthStatus()),
		},
		map[string]interface{}{
			"connections":       stats.ConnectionCount,
			"reconnections":     stats.ReconnectionCount,
			"errors":            stats.ErrorCount,
			"messages":          stats.MessageCount,
			"bytes_sent":        stats.BytesSent,
			"bytes_received":    stats.BytesReceived,
			"conn_success":      stats.ConnectionSuccessRate,
			"msg_success":       stats.MessageSuccessRate,
			"performance_score": stats.PerformanceScore(),
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
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
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

// Sink adapts the client to the session manager's metrics interface.
// A nil inner client is tolerated so callers can wire metrics
// unconditionally and leave InfluxDB disabled.
type Sink struct {
	Client *Client
}

// RecordQuality forwards a quality sample.
func (s Sink) RecordQuality(deviceID string, quality connection.Quality) {
	if s.Client != nil {
		s.Client.WriteQualityMetric(deviceID, quality)
	}
}

// RecordSessionEvent forwards a lifecycle event.
func (s Sink) RecordSessionEvent(deviceID, event string) {
	if s.Client != nil {
		s.Client.WriteSessionEvent(deviceID, event)
	}
}
