package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"venture-backend/internal/analyses"
	"venture-backend/internal/plans"
	"venture-backend/internal/shared/config"
	"venture-backend/internal/shared/metrics"
	"venture-backend/internal/shared/server/middleware"
	"venture-backend/internal/shared/server/respond"
)

// RouterDeps carries the wired handlers the router registers.
type RouterDeps struct {
	Config          config.Config
	AnalysisHandler *analyses.Handler
	PlanHandler     *plans.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
// Health and metrics are reachable without identity; everything under
// /api/v1 goes through auth and rate limiting.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.Use(
		middleware.Auth(),
		middleware.RateLimit(rateLimitConfig()),
	)

	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	registerMeRoutes(api)
	if deps.PlanHandler != nil {
		deps.PlanHandler.RegisterRoutes(api)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}

	return r
}

// rateLimitConfig keeps status polling on its own budget so a tight poll loop
// cannot starve a user's other requests.
func rateLimitConfig() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			"DEFAULT": {Rate: 5, Burst: 10},
			"POLL":    {Rate: 2, Burst: 6},
		},
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodGet && c.FullPath() == "/api/v1/analyses/:id" {
				return "POLL"
			}
			return ""
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
