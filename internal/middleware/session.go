package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/strategiq/swot/internal/pkg/session"
	"go.uber.org/zap"
)

const ContextKeyAnalysisID = "analysis_id"

// Session reads the signed session cookie and exposes the analysis id to
// handlers. Requests without a valid cookie pass through with no id.
func Session(mgr *session.Manager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(session.CookieName)
		if err == nil && raw != "" {
			claims, parseErr := mgr.Parse(raw)
			if parseErr == nil {
				c.Set(ContextKeyAnalysisID, claims.AnalysisID)
			} else {
				log.Debug("discarding session cookie", zap.Error(parseErr))
			}
		}
		c.Next()
	}
}

// AnalysisID returns the analysis id bound to the request's session, or "".
func AnalysisID(c *gin.Context) string {
	return c.GetString(ContextKeyAnalysisID)
}

// BindAnalysis signs a new session cookie carrying analysisID and updates
// the request context.
func BindAnalysis(c *gin.Context, mgr *session.Manager, analysisID string, secure bool) error {
	token, err := mgr.Sign(analysisID)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, token, int(mgr.TTL().Seconds()), "/", "", secure, true)
	c.Set(ContextKeyAnalysisID, analysisID)
	return nil
}
