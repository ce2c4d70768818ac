package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"leafscan/internal/health"
)

// NewRouter builds the engine with access logging, panic recovery and CORS
// for the web client origins.
func NewRouter(allowOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	if len(allowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     allowOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	return router
}

// RegisterSystemRoutes adds the public root, health and metrics endpoints.
func RegisterSystemRoutes(router *gin.Engine, checker *health.Checker, gatherer prometheus.Gatherer) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "LeafScan API is running",
			"version": "1.0.0",
			"docs":    "/swagger/index.html",
		})
	})

	router.GET("/health", func(c *gin.Context) {
		report := checker.Check(c.Request.Context())

		code := http.StatusOK
		if report.Status == health.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
