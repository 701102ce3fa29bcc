package infrastructure

import (
	"runtime"
	"time"
)

// SystemStats is a point-in-time snapshot of the Go runtime
type SystemStats struct {
	GoRoutines    int           `json:"goroutines"`
	MemoryUsage   uint64        `json:"memory_usage_bytes"`
	MemorySystem  uint64        `json:"memory_system_bytes"`
	GCCount       uint32        `json:"gc_count"`
	LastGCPause   time.Duration `json:"last_gc_pause_ns"`
	CPUCount      int           `json:"cpu_count"`
	ProcessUptime time.Duration `json:"uptime_ns"`
	Timestamp     time.Time     `json:"timestamp"`
}

// CollectSystemStats reads the current runtime statistics. startTime is the
// moment the process (or service) started.
func CollectSystemStats(startTime time.Time) SystemStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return SystemStats{
		GoRoutines:    runtime.NumGoroutine(),
		MemoryUsage:   memStats.Alloc,
		MemorySystem:  memStats.Sys,
		GCCount:       memStats.NumGC,
		LastGCPause:   time.Duration(memStats.PauseNs[(memStats.NumGC+255)%256]),
		CPUCount:      runtime.NumCPU(),
		ProcessUptime: time.Since(startTime),
		Timestamp:     time.Now(),
	}
}
