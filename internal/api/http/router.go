// Package httpapi exposes predictions and notification controls over HTTP
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter wires the handlers onto a gin engine running in ginMode
func SetupRouter(ginMode string, h *Handler) *gin.Engine {
	gin.SetMode(ginMode)
	router := gin.Default()

	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/predictions", h.ListPredictions)
		v1.GET("/findings/:id/prediction", h.GetPrediction)
		v1.GET("/findings/:id/share", h.ShareFinding)

		v1.GET("/notifications", h.ListNotifications)
		v1.POST("/notifications/test", h.TestNotification)
		v1.POST("/notifications/daily/tick", h.DailyTick)
	}

	return router
}
