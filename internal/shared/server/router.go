package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dream-backend/internal/interpret"
	"dream-backend/internal/shared/config"
	"dream-backend/internal/shared/metrics"
	"dream-backend/internal/shared/server/middleware"
	"dream-backend/internal/shared/server/respond"
)

const rateLimitGroupInterpret = "INTERPRET"

// RouterDeps are the services exposed over HTTP.
type RouterDeps struct {
	Interpret *interpret.Service
	// Limiter is shared across routers in tests; nil creates a fresh one.
	Limiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config, deps RouterDeps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	limit := middleware.RateLimit(middleware.RateLimitConfig{
		DefaultGroup: rateLimitGroupInterpret,
		Limiter:      deps.Limiter,
		Rules: map[string]middleware.RateLimitRule{
			rateLimitGroupInterpret: {Rate: cfg.RatePerSecond, Burst: cfg.RateBurst},
		},
	})

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	interpret.NewHandler(deps.Interpret).RegisterRoutes(api, limit)

	return r
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
