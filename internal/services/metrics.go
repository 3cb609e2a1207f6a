package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	Requests     *prometheus.CounterVec
	Fallbacks    *prometheus.CounterVec
	Latency      *prometheus.HistogramVec
	CacheLookups *prometheus.CounterVec
	Feedback     *prometheus.CounterVec
	HealthStatus *prometheus.GaugeVec
	DBPool       *prometheus.GaugeVec
}

// NewMetrics registers the collectors with reg. Collectors already present
// in reg are reused.
func NewMetrics(reg prometheus.Registerer, logger *logrus.Logger) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shoprec_recommendation_requests_total",
			Help: "Recommendation requests by requested mode and serving source",
		}, []string{"mode", "source"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shoprec_recommendation_fallbacks_total",
			Help: "Fallback cascade steps taken",
		}, []string{"from", "to", "reason"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shoprec_recommendation_latency_seconds",
			Help:    "Time spent computing recommendations",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shoprec_cache_lookups_total",
			Help: "Recommendation cache lookups by result",
		}, []string{"result"}),
		Feedback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shoprec_feedback_total",
			Help: "Recommendation feedback received",
		}, []string{"feedback"}),
		HealthStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shoprec_health_check_status",
			Help: "Health check status (1 = healthy, 0 = unhealthy)",
		}, []string{"service"}),
		DBPool: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shoprec_database_pool_connections",
			Help: "PostgreSQL pool connections by state",
		}, []string{"state"}),
	}

	m.Requests = register(reg, logger, m.Requests)
	m.Fallbacks = register(reg, logger, m.Fallbacks)
	m.Latency = register(reg, logger, m.Latency)
	m.CacheLookups = register(reg, logger, m.CacheLookups)
	m.Feedback = register(reg, logger, m.Feedback)
	m.HealthStatus = register(reg, logger, m.HealthStatus)
	m.DBPool = register(reg, logger, m.DBPool)

	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, logger *logrus.Logger, c C) C {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		logger.WithError(err).Warn("Failed to register metric")
	}
	return c
}

// CollectPoolStats samples pool usage every interval until ctx is done.
func (m *Metrics) CollectPoolStats(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := pool.Stat()
			m.DBPool.WithLabelValues("acquired").Set(float64(stats.AcquiredConns()))
			m.DBPool.WithLabelValues("idle").Set(float64(stats.IdleConns()))
			m.DBPool.WithLabelValues("total").Set(float64(stats.TotalConns()))
			m.DBPool.WithLabelValues("max").Set(float64(stats.MaxConns()))
		}
	}
}
