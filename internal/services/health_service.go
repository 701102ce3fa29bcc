package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"dashcli/internal/cache"
	"dashcli/internal/infrastructure"
	"dashcli/internal/retry"
	"dashcli/pkg/contracts"
)

// DashboardStats is the part of the dashboard service the health checks read.
type DashboardStats interface {
	CacheStats() cache.Stats
	ListDatasets() []DatasetInfo
}

// HealthService provides health check functionality
type HealthService struct {
	version    string
	buildTime  string
	dashboard  DashboardStats
	retryStore retry.Store
	startTime  time.Time
	logger     *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service. dashboard and retryStore
// may be nil, in which case their checks are skipped.
func NewHealthService(version, buildTime string, dashboard DashboardStats, retryStore retry.Store, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime))

	return &HealthService{
		version:    version,
		buildTime:  buildTime,
		dashboard:  dashboard,
		retryStore: retryStore,
		startTime:  time.Now(),
		logger:     logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
	if hs.dashboard != nil {
		stats := hs.dashboard.CacheStats()
		status.Services = map[string]interface{}{
			"datasets": len(hs.dashboard.ListDatasets()),
			"cache":    stats,
		}
	}
	return status
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	status.Services["retry_store"] = hs.checkRetryStore(ctx)
	status.Services["dashboard"] = hs.checkDashboard()

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	build := contracts.GetVersionInfo()
	result := map[string]interface{}{
		"version":      hs.version,
		"api_version":  build.APIVersion,
		"git_commit":   build.GitCommit,
		"go_version":   build.GoVersion,
		"os":           build.OS,
		"arch":         build.Architecture,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

// SystemStats returns process statistics
func (hs *HealthService) SystemStats() infrastructure.SystemStats {
	return infrastructure.CollectSystemStats(hs.startTime)
}

func (hs *HealthService) checkRetryStore(ctx context.Context) ServiceHealth {
	if hs.retryStore == nil {
		return ServiceHealth{Status: "ready", Message: "not configured"}
	}
	if _, _, err := hs.retryStore.Get(ctx, "health:probe"); err != nil {
		hs.logger.WarnContext(ctx, "retry store check failed", slog.String("error", err.Error()))
		return ServiceHealth{Status: "degraded", Message: err.Error()}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkDashboard() ServiceHealth {
	if hs.dashboard == nil {
		return ServiceHealth{Status: "not_ready", Message: "dashboard service not initialized"}
	}
	return ServiceHealth{Status: "ready"}
}
