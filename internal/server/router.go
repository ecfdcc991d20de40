package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"CoinDash/internal/logger"
)

func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/dashboard", h.Dashboard)
		api.POST("/refresh", h.Refresh)
		api.GET("/changes", h.Changes)
		api.GET("/composition", h.Composition)
		api.GET("/market-table", h.MarketTable)
		api.GET("/volumes", h.Volumes)
		api.GET("/symbols", h.Symbols)
		api.POST("/symbols/refresh", h.RefreshSymbols)
		api.GET("/periods", h.Periods)
		api.GET("/chart", h.Chart)
		api.GET("/chart/:symbol", h.Chart)
	}

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.With("http").WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request")
	}
}
