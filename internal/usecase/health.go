package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"notifications/internal/domain"
)

const defaultProbeTimeout = 2 * time.Second

type HealthMetrics interface {
	ObserveProbe(name string, healthy bool)
}

// HealthAggregator builds liveness and readiness reports. Readiness runs
// every probe in order; a failing probe never prevents the next one from
// running.
type HealthAggregator struct {
	Service      string
	Version      string
	Probes       []domain.Probe
	ProbeTimeout time.Duration
	Now          func() time.Time
	Logger       *slog.Logger
	Metrics      HealthMetrics
}

func (h *HealthAggregator) Liveness() domain.HealthReport {
	return domain.HealthReport{
		Status:    domain.StatusHealthy,
		Service:   h.Service,
		Version:   h.Version,
		Timestamp: h.now().Unix(),
	}
}

// Readiness returns an error only when the caller's context is already done;
// dependency failures are reported inside the report.
func (h *HealthAggregator) Readiness(ctx context.Context) (domain.HealthReport, error) {
	if err := ctx.Err(); err != nil {
		return domain.HealthReport{}, fmt.Errorf("readiness aborted: %w", err)
	}
	report := h.Liveness()
	report.Checks = make(map[string]domain.ProbeResult, len(h.Probes))
	for _, probe := range h.Probes {
		if probe == nil {
			continue
		}
		result := h.runProbe(ctx, probe)
		report.Checks[probe.Name()] = result
		if h.Metrics != nil {
			h.Metrics.ObserveProbe(probe.Name(), result.Healthy())
		}
	}
	report.Status = Aggregate(report.Checks)

	if report.Status != domain.StatusHealthy {
		h.logger().Warn("detailed health check failed",
			"event", "health_degraded",
			"module", "internal/usecase",
			"layer", "usecase",
			"checks", report.Checks,
		)
	}
	return report, nil
}

func (h *HealthAggregator) runProbe(ctx context.Context, probe domain.Probe) (result domain.ProbeResult) {
	timeout := h.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			h.logger().Error("health probe panicked",
				"event", "health_probe_panic",
				"module", "internal/usecase",
				"layer", "usecase",
				"probe", probe.Name(),
				"panic", fmt.Sprint(r),
			)
			result = domain.ProbeResult{
				Status:  domain.StatusUnhealthy,
				Message: fmt.Sprintf("%s check failed: %v", probe.Name(), r),
			}
		}
	}()
	return probe.Check(probeCtx)
}

// Aggregate is healthy iff every check is healthy.
func Aggregate(checks map[string]domain.ProbeResult) domain.HealthStatus {
	for _, result := range checks {
		if !result.Healthy() {
			return domain.StatusUnhealthy
		}
	}
	return domain.StatusHealthy
}

func (h *HealthAggregator) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func (h *HealthAggregator) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}
