package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/copyink/internal/middleware"
)

type UserHandler struct {
	logger  *logrus.Logger
	service GenerationService
}

func NewUserHandler(logger *logrus.Logger, service GenerationService) *UserHandler {
	return &UserHandler{
		logger:  logger,
		service: service,
	}
}

// Me returns the caller's quota for the current period.
func (h *UserHandler) Me(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	record, err := h.service.Usage(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, record)
}
