package app

import (
	"net/url"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/strategiq/swot/internal/config"
	"github.com/strategiq/swot/internal/modules/site"
)

func newCORS(cfg *config.AppConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "HX-Request", "HX-Current-URL", "HX-Target", "HX-Trigger"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", site.HeaderPDFCache},
		AllowCredentials: true,
	}
	corsConfig.AllowOriginFunc = originMatcher(cfg.AllowedOrigins, cfg.IsDev())
	return cors.New(corsConfig)
}

// originMatcher allows every origin in development or when no patterns are
// configured.
func originMatcher(patterns []string, dev bool) func(string) bool {
	if len(patterns) == 0 || dev {
		return func(string) bool { return true }
	}
	return func(origin string) bool {
		host := extractOriginHost(origin)
		for _, pattern := range patterns {
			if matchOriginPattern(pattern, host) {
				return true
			}
		}
		return false
	}
}

// extractOriginHost returns the "host[:port]" portion of an origin URL.
func extractOriginHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}

// matchOriginPattern reports whether host matches the given wildcard pattern.
func matchOriginPattern(pattern, host string) bool {
	if pattern == host {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(host, pattern[1:])
	}
	if strings.HasSuffix(pattern, ":*") {
		return strings.HasPrefix(host, pattern[:len(pattern)-1])
	}
	return false
}
