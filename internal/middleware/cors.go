package middleware

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/temcen/copyink/internal/config"
)

// CORS answers preflight requests before authentication runs.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: cfg.AllowedMethods,
		AllowHeaders: cfg.AllowedHeaders,
		MaxAge:       24 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = cfg.AllowedOrigins
		config.AllowCredentials = true
	}

	return cors.New(config)
}
