package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/gray-logic-audio/internal/node"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	MQTT          MQTTMetrics     `json:"mqtt"`
	Routing       RoutingMetrics  `json:"routing"`
	Database      DatabaseMetrics `json:"database"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// RoutingMetrics contains node registry and router statistics.
type RoutingMetrics struct {
	Nodes       int            `json:"nodes"`
	ByImplement map[string]int `json:"by_implement"`
	ByDirection map[string]int `json:"by_direction"`
	Routes      int            `json:"routes"`
	Connections int            `json:"connections"`
	Passes      uint64         `json:"passes"`
	Stamp       uint64         `json:"stamp"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns comprehensive system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	// Collect runtime stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
	}

	// MQTT metrics (if available)
	if s.mqtt != nil {
		metrics.MQTT = MQTTMetrics{
			Connected: s.mqtt.IsConnected(),
		}
	}

	// Routing stats are read on the main loop
	var nodes []node.Node
	err := s.onLoop(r, func() {
		nodes = s.registry.Snapshot()
		metrics.Routing.Routes = len(s.router.Routes())
		metrics.Routing.Connections = len(s.router.Connections())
		metrics.Routing.Passes = s.engine.Passes()
		metrics.Routing.Stamp = s.router.Stamp()
	})
	if err != nil {
		writeUnavailable(w, "routing core busy")
		return
	}
	metrics.Routing.Nodes = len(nodes)
	metrics.Routing.ByImplement = make(map[string]int)
	metrics.Routing.ByDirection = make(map[string]int)
	for _, n := range nodes {
		metrics.Routing.ByImplement[n.Implement.String()]++
		metrics.Routing.ByDirection[n.Direction.String()]++
	}

	// Database stats (if available)
	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
