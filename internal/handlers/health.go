package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/copyink/internal/services"
)

// Degraded still serves traffic: requests fall back to catalog copy.
var healthStatusCodes = map[string]int{
	"healthy":   http.StatusOK,
	"degraded":  http.StatusOK,
	"unhealthy": http.StatusServiceUnavailable,
}

type HealthHandler struct {
	logger        *logrus.Logger
	healthService *services.HealthService
}

func NewHealthHandler(logger *logrus.Logger, healthService *services.HealthService) *HealthHandler {
	return &HealthHandler{
		logger:        logger,
		healthService: healthService,
	}
}

// Check reports store connectivity and whether generator credentials are
// configured.
func (h *HealthHandler) Check(c *gin.Context) {
	status := h.healthService.CheckHealth(c.Request.Context())

	code, ok := healthStatusCodes[status.Status]
	if !ok {
		code = http.StatusInternalServerError
	}
	if code != http.StatusOK {
		h.logger.WithField("critical_failures", status.Critical).Warn("Health check failed")
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(code, status)
}

// Live only proves the process is serving requests.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
