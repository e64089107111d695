package rewards

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aimd54/reward-economy/internal/api/middleware"
	"github.com/aimd54/reward-economy/internal/config"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

// Health implements HealthChecker.
func (f HealthCheckFunc) Health(ctx context.Context) error { return f(ctx) }

// RouterDeps groups what NewRouter wires.
type RouterDeps struct {
	Handler *Handler
	Auth    gin.HandlerFunc
	Metrics config.PrometheusConfig
	Checks  map[string]HealthChecker
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps RouterDeps, mw ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestIDMiddleware())
	router.Use(mw...)

	router.GET("/health", healthHandler(deps.Checks))
	if deps.Metrics.Enabled {
		path := deps.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(promhttp.Handler()))
	}

	h := deps.Handler
	api := router.Group("/api/v1")
	api.GET("/leaderboard", h.GetLeaderboard)
	api.GET("/badges", h.GetBadgeCatalog)

	authed := api.Group("", deps.Auth)
	authed.POST("/checkin", h.CheckIn)
	authed.GET("/me", h.GetProfile)
	authed.GET("/me/stats", h.GetStats)
	authed.GET("/me/ledger", h.GetLedger)
	authed.GET("/me/audit", h.GetAudit)
	authed.GET("/me/badges", h.GetBadges)
	authed.GET("/boxes", h.GetPendingBoxes)
	authed.POST("/boxes/:id/open", h.OpenBox)
	authed.GET("/tasks", h.GetTasks)
	authed.POST("/tasks/:id/complete", h.CompleteTask)
	authed.POST("/wallet", h.ConnectWallet)

	return router
}

func healthHandler(checks map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.Health(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":    state,
			"checks":    results,
			"timestamp": time.Now().UTC(),
		})
	}
}
