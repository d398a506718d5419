package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/strategiq/swot/internal/middleware"
	"github.com/strategiq/swot/internal/modules/health"
	"github.com/strategiq/swot/internal/modules/history"
	"github.com/strategiq/swot/internal/pkg/response"
	"github.com/strategiq/swot/internal/pkg/session"
)

const analyzeIdempotenceTTL = 5 * time.Second

func (a *App) registerRoutes(sessions *session.Manager) {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.Use(middleware.Session(sessions, a.logger))

	// Status polling runs every second, so only submissions are rate limited.
	root := r.Group("")
	a.site.RegisterRoutes(root,
		middleware.RateLimit(a.rc.Raw(), a.logger, middleware.RateLimitOptions{}),
		middleware.Idempotence(a.rc.Raw(), analyzeIdempotenceTTL),
	)

	api := r.Group("/api")
	api.GET("", func(c *gin.Context) {
		response.OK(c, gin.H{
			"name":    "strategiq-swot",
			"version": "1.0.0",
			"uptime":  humanizeDuration(time.Since(processStart)),
		})
	})

	var adminMW []gin.HandlerFunc
	if a.cfg.AdminToken != "" {
		adminMW = append(adminMW, middleware.AdminToken(a.cfg.AdminToken))
	}

	// Without a token the cache endpoints stay open in development only.
	cacheMW := adminMW
	if len(cacheMW) == 0 && !a.cfg.IsDev() {
		cacheMW = []gin.HandlerFunc{middleware.AdminToken("")}
	}
	a.site.RegisterCacheRoutes(api, cacheMW...)

	health.RegisterRoutes(api, health.Options{
		Redis:     a.rc,
		DB:        a.db,
		Scheduler: a.sched,
		LogDir:    a.cfg.LogDir(),
	}, adminMW...)

	if a.history != nil {
		history.NewHandler(a.history).RegisterRoutes(api)
	}
}

var processStart = time.Now()
