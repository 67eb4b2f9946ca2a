package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/iot-admin-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/iot-admin-core/internal/infrastructure/mqtt"
)

// SystemMetrics represents the complete system status response.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	MQTT          MQTTMetrics     `json:"mqtt"`
	InfluxDB      influxdb.Stats  `json:"influxdb"`
	Objects       ObjectMetrics   `json:"objects"`
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
	Configured bool `json:"configured"`
	mqtt.Stats
}

// ObjectMetrics contains object registry statistics.
type ObjectMetrics struct {
	Cached             int `json:"cached"`
	StateSubscriptions int `json:"state_subscriptions"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// bytesPerMB converts byte counts to megabytes.
const bytesPerMB = 1024 * 1024

// handleSystem returns a JSON status snapshot for the admin dashboard.
// Prometheus scrapes use /metrics instead.
func (s *Server) handleSystem(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / bytesPerMB,
			MemoryTotalMB: float64(memStats.TotalAlloc) / bytesPerMB,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		InfluxDB: s.influx.Stats(),
		Objects: ObjectMetrics{
			Cached:             s.registry.GetObjectCount(),
			StateSubscriptions: s.registry.StateSubscriptionCount(),
		},
	}

	if s.mqtt != nil {
		m.MQTT = MQTTMetrics{Configured: true, Stats: s.mqtt.Stats()}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		m.Database = DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, m)
}
