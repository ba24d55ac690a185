package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"animesanta/internal/scheduler"
	"animesanta/internal/santa"
)

// SweepRunner is the part of the scheduler the admin API drives.
type SweepRunner interface {
	Today() time.Time
	RunDay(ctx context.Context, day time.Time, force bool) (scheduler.Result, error)
}

type SchedulerHandler struct {
	Scheduler SweepRunner
}

func (h *SchedulerHandler) Register(r *gin.Engine) {
	r.POST("/api/v1/scheduler/run", h.run)
}

// @Summary Run the daily sweeps
// @Description Runs the sweeps for a day (default today). A claimed day is re-run only with force, which defaults to true here.
// @Tags scheduler
// @Param day query string false "YYYY-MM-DD"
// @Param force query bool false "re-run an already claimed day"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/v1/scheduler/run [post]
func (h *SchedulerHandler) run(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "scheduler unavailable", nil)
		return
	}
	day := h.Scheduler.Today()
	if raw := strings.TrimSpace(c.Query("day")); raw != "" {
		d, err := santa.ParseDate(raw, time.DateOnly)
		if err != nil {
			Error(c, http.StatusBadRequest, "day must be YYYY-MM-DD", nil)
			return
		}
		day = d
	}
	res, err := h.Scheduler.RunDay(c.Request.Context(), day, boolQueryDefault(c, "force", true))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, res, map[string]any{"day": day.Format(time.DateOnly)})
}
