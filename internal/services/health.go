package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const healthCheckTimeout = 5 * time.Second

// HealthCheck probes one dependency. A failing critical check makes the
// service unhealthy; a failing non-critical one only degrades it.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

type HealthService struct {
	checks  []HealthCheck
	metrics *Metrics
	logger  *logrus.Logger
}

type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Services    map[string]string `json:"services"`
	Critical    []string          `json:"critical_failures,omitempty"`
	NonCritical []string          `json:"non_critical_failures,omitempty"`
	Latency     time.Duration     `json:"latency,omitempty"`
}

func NewHealthService(checks []HealthCheck, metrics *Metrics, logger *logrus.Logger) *HealthService {
	return &HealthService{checks: checks, metrics: metrics, logger: logger}
}

func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{
		Timestamp: start.UTC(),
		Services:  make(map[string]string, len(s.checks)),
	}

	for _, hc := range s.checks {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := hc.Check(checkCtx)
		cancel()

		if err == nil {
			status.Services[hc.Name] = "healthy"
			s.metrics.HealthStatus.WithLabelValues(hc.Name).Set(1)
			continue
		}

		status.Services[hc.Name] = "unhealthy"
		s.metrics.HealthStatus.WithLabelValues(hc.Name).Set(0)
		if hc.Critical {
			status.Critical = append(status.Critical, hc.Name)
			s.logger.WithError(err).Errorf("Critical service %s is unhealthy", hc.Name)
		} else {
			status.NonCritical = append(status.NonCritical, hc.Name)
			s.logger.WithError(err).Warnf("Non-critical service %s is unhealthy", hc.Name)
		}
	}

	switch {
	case len(status.Critical) > 0:
		status.Status = "unhealthy"
	case len(status.NonCritical) > 0:
		status.Status = "degraded"
	default:
		status.Status = "healthy"
	}
	status.Latency = time.Since(start)

	return status
}
