package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/temcen/copyink/internal/database"
)

type HealthService struct {
	logger    *logrus.Logger
	db        *database.Database
	generator bool

	// Prometheus metrics
	healthCheckStatus *prometheus.GaugeVec
	lastHealthCheck   *prometheus.GaugeVec
}

type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Services    map[string]string `json:"services"`
	Critical    []string          `json:"critical_failures,omitempty"`
	NonCritical []string          `json:"non_critical_failures,omitempty"`
}

// NewHealthService checks the bound stores. generatorConfigured only
// affects reporting; running on fallback copy counts as degraded.
func NewHealthService(logger *logrus.Logger, db *database.Database, generatorConfigured bool, reg prometheus.Registerer) *HealthService {
	factory := promauto.With(reg)

	return &HealthService{
		logger:    logger,
		db:        db,
		generator: generatorConfigured,

		healthCheckStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "health_check_status",
			Help: "Health check status (1 = healthy, 0 = unhealthy)",
		}, []string{"service"}),

		lastHealthCheck: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "health_check_timestamp",
			Help: "Timestamp of last health check",
		}, []string{"service"}),
	}
}

func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Timestamp: time.Now(),
		Services:  make(map[string]string),
	}

	// Quotas and cooldowns fail closed, so their stores are critical
	criticalServices := map[string]func(context.Context) error{}
	if s.db != nil && s.db.Redis != nil {
		criticalServices["redis"] = s.checkRedis
	} else {
		status.Services["redis"] = "not_configured"
	}
	if s.db != nil && s.db.PG != nil {
		criticalServices["postgresql"] = s.checkPostgreSQL
	} else {
		status.Services["postgresql"] = "not_configured"
	}

	allCriticalHealthy := true
	for name, checkFunc := range criticalServices {
		if err := checkFunc(ctx); err != nil {
			status.Services[name] = "unhealthy"
			status.Critical = append(status.Critical, name)
			allCriticalHealthy = false
			s.logger.WithError(err).Errorf("Critical service %s is unhealthy", name)
			s.UpdateHealthMetrics(name, false)
		} else {
			status.Services[name] = "healthy"
			s.UpdateHealthMetrics(name, true)
		}
	}

	if s.generator {
		status.Services["generator"] = "configured"
	} else {
		status.Services["generator"] = "not_configured"
		status.NonCritical = append(status.NonCritical, "generator")
	}

	// Overall status
	if allCriticalHealthy {
		if len(status.NonCritical) == 0 {
			status.Status = "healthy"
		} else {
			status.Status = "degraded"
		}
	} else {
		status.Status = "unhealthy"
	}

	return status
}

func (s *HealthService) checkPostgreSQL(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return s.db.PG.Ping(ctx)
}

func (s *HealthService) checkRedis(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return s.db.Redis.Ping(ctx).Err()
}

// UpdateHealthMetrics updates health check metrics
func (s *HealthService) UpdateHealthMetrics(serviceName string, healthy bool) {
	if healthy {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(1)
	} else {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(0)
	}
	s.lastHealthCheck.WithLabelValues(serviceName).Set(float64(time.Now().Unix()))
}
