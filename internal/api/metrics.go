package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/homelink/homelink-core/internal/connection"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string                `json:"timestamp"`
	Version       string                `json:"version"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	Runtime       RuntimeMetrics        `json:"runtime"`
	WebSocket     WSMetrics             `json:"websocket"`
	Connection    ConnectionMetrics     `json:"connection"`
	Statistics    connection.Statistics `json:"statistics"`
}

// RuntimeMetrics reports Go runtime health.
type RuntimeMetrics struct {
	Goroutines     int    `json:"goroutines"`
	HeapAllocBytes uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes   uint64 `json:"heap_sys_bytes"`
	NumGC          uint32 `json:"num_gc"`
}

// WSMetrics reports WebSocket hub state.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// ConnectionMetrics reports the session's current state and quality.
type ConnectionMetrics struct {
	State        connection.State        `json:"state"`
	QualityLevel connection.Level        `json:"quality_level"`
	QualityScore float64                 `json:"quality_score"`
	Health       connection.HealthStatus `json:"health"`
}

// handleMetrics returns runtime, WebSocket, and connection metrics in a
// single snapshot for local monitoring.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	info := s.session.Info()

	clients := 0
	if s.hub != nil {
		clients = s.hub.ClientCount()
	}

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:     runtime.NumGoroutine(),
			HeapAllocBytes: mem.HeapAlloc,
			HeapSysBytes:   mem.HeapSys,
			NumGC:          mem.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: clients,
		},
		Connection: ConnectionMetrics{
			State:        info.State,
			QualityLevel: info.Quality.Level(),
			QualityScore: info.Quality.Score(),
			Health:       info.Statistics.HealthStatus(),
		},
		Statistics: info.Statistics,
	}

	writeJSON(w, http.StatusOK, metrics)
}
