package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/temcen/copyink/internal/services"
	"github.com/temcen/copyink/pkg/models"
)

// AdminHandler serves operator endpoints behind middleware.AdminToken.
type AdminHandler struct {
	logger    *logrus.Logger
	service   GenerationService
	validator *validator.Validate
}

func NewAdminHandler(logger *logrus.Logger, service GenerationService) *AdminHandler {
	return &AdminHandler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// SetPlan assigns a subscription plan to a user. Usage already counted
// for the current period is kept.
func (h *AdminHandler) SetPlan(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": invalidRequestMessage,
			"details": gin.H{"userId": "is required"},
		})
		return
	}

	var req models.SetPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid JSON in set plan request")
		c.JSON(http.StatusBadRequest, gin.H{
			"message": invalidRequestMessage,
			"details": gin.H{"body": err.Error()},
		})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": invalidRequestMessage,
			"details": gin.H{"plan": "must be one of free, light, premium"},
		})
		return
	}

	if err := h.service.SetPlan(c.Request.Context(), userID, req.Plan); err != nil {
		if errors.Is(err, services.ErrQuotaDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Quota store is not configured"})
			return
		}
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"plan":    req.Plan,
	}).Info("Plan updated")

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"plan":    req.Plan,
	})
}
