package domain

import "context"

type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
)

type ProbeResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message"`
}

func (r ProbeResult) Healthy() bool {
	return r.Status == StatusHealthy
}

// HealthReport is built per request. Status is healthy iff every entry in
// Checks is healthy; liveness reports carry no checks.
type HealthReport struct {
	Status    HealthStatus           `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp int64                  `json:"timestamp"`
	Checks    map[string]ProbeResult `json:"checks,omitempty"`
}

// Probe tests a single dependency. Implementations must not return errors or
// panic past their own boundary; failures are reported in the result.
type Probe interface {
	Name() string
	Check(ctx context.Context) ProbeResult
}
