package paas

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, `# Anime Santa admin API

All /api/* routes require a Bearer token. Health endpoints are public.

## Routes

- GET /healthz
- GET /readyz
- GET /swagger/index.html
- GET /api/v1/events?creator=<user id>
- GET /api/v1/events/:id
- GET /api/v1/events/:id/participants?status=<status>
- POST /api/v1/scheduler/run?day=YYYY-MM-DD
`)
	})
}
