package api

import (
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter wires the HTTP surface: JSON API, metrics and the websocket
// subscription endpoint. CORS is open by design, the API is consumed by
// browser clients on other origins.
func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(logger, true))
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/alerts", h.listAlerts)
		api.GET("/alerts/:date", h.alertsByDate)
		api.GET("/stats", h.getStats)
		api.GET("/debug", h.debug)
		api.GET("/test-connection", h.testConnection)
		api.GET("/health", h.health)
		api.POST("/check-now", h.checkNow)
		api.GET("/gameData", h.getGameData)
		api.POST("/gameData", h.putGameData)
	}

	r.GET("/ws", h.serveWS)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
