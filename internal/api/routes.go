package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/sds011-gateway/internal/api/middleware"
)

// RegisterRoutes 注册 /api/v1 路由
func RegisterRoutes(r *gin.Engine, deps Deps, authCfg middleware.AuthConfig, logger *zap.Logger) {
	if r == nil || deps.Adapter == nil || deps.Commands == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := NewHandler(deps, logger)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.CORS())
	if authCfg.Enabled {
		v1.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}

	v1.GET("/commands", h.ListCommands)
	v1.POST("/commands", h.SendCommand)

	v1.GET("/session", h.GetSession)
	v1.POST("/session/reset", h.ResetSession)

	v1.GET("/readings/latest", h.LatestReading)
	v1.GET("/readings", h.ListReadings)

	v1.GET("/serial/ports", h.ListSerialPorts)

	logger.Info("api routes registered", zap.Int("endpoints", 7))
}
