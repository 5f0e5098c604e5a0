package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/copyink/internal/services"
)

const invalidRequestMessage = "リクエストデータが正しくありません"

// respondError maps service errors to status codes. Anything unrecognized
// is logged and reported as 500.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var validationErr *services.ValidationError
	var quotaErr *services.QuotaExceededError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"message": invalidRequestMessage,
			"details": validationErr.Details,
		})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
	case errors.As(err, &quotaErr):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error": "今月の生成上限に達しました",
			"plan":  quotaErr.Record.Plan,
			"limit": quotaErr.Record.Limit,
			"used":  quotaErr.Record.Used,
		})
	case errors.Is(err, services.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "リクエストが多すぎます。数秒待ってから再試行してください"})
	default:
		logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
