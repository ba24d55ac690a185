package paas

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func InjectClientMiddleware(p *Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p != nil && c.Request != nil {
			c.Request = c.Request.WithContext(WithClient(c.Request.Context(), p))
		}
		c.Next()
	}
}

// RequireBearerMiddleware protects /api, /swagger and /docs. An empty token
// only checks that a bearer header is present, for deployments behind the
// PaaS gateway.
func RequireBearerMiddleware(token string) gin.HandlerFunc {
	token = strings.TrimSpace(token)
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if p == "/healthz" || p == "/readyz" {
			c.Next()
			return
		}
		if strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/swagger") || p == "/docs" {
			auth := strings.TrimSpace(c.GetHeader("Authorization"))
			if !strings.HasPrefix(auth, "Bearer ") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
				return
			}
			got := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token != "" && subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer token"})
				return
			}
		}
		c.Next()
	}
}

// WriteAuditMiddleware records non-GET admin calls in the PaaS log.
func WriteAuditMiddleware(p *Client, logger *zap.Logger) gin.HandlerFunc {
	if p == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		method := strings.ToUpper(c.Request.Method)
		if !strings.HasPrefix(path, "/api/") {
			return
		}
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return
		}
		status := c.Writer.Status()
		LogBestEffortCtx(WithClient(c.Request.Context(), p), "santa_http_write", levelFromStatus(status), map[string]any{
			"method":   method,
			"path":     path,
			"query":    c.Request.URL.RawQuery,
			"status":   status,
			"duration": time.Since(start).String(),
		})
		if logger != nil {
			logger.Debug("admin write", zap.String("path", path), zap.Int("status", status))
		}
	}
}

func levelFromStatus(status int) string {
	if status >= 500 {
		return "error"
	}
	if status >= 400 {
		return "warn"
	}
	return "info"
}
