package handler

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"animesanta/internal/repository"
	"animesanta/internal/santa"
)

type EventHandler struct {
	Repo     repository.Repository
	Location *time.Location
	Now      func() time.Time
}

func (h *EventHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/events")
	group.GET("", h.listEvents)
	group.GET("/:id", h.getEvent)
	group.GET("/:id/participants", h.listParticipants)
}

type eventView struct {
	ID                string           `json:"id"`
	CreatorID         int64            `json:"creator_id"`
	Name              string           `json:"name"`
	Phase             string           `json:"phase"`
	RegistrationEnd   string           `json:"registration_end"`
	SelectionDeadline string           `json:"selection_deadline"`
	ReviewDeadline    string           `json:"review_deadline"`
	ChatID            *int64           `json:"chat_id,omitempty"`
	Restrictions      []string         `json:"restrictions"`
	Options           map[string]bool  `json:"options,omitempty"`
	Paired            bool             `json:"paired"`
	Counts            map[string]int64 `json:"counts,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}

type participantView struct {
	UserID      int64           `json:"user_id"`
	DisplayName string          `json:"display_name,omitempty"`
	Status      string          `json:"status"`
	Choice      *santa.Choice   `json:"choice,omitempty"`
	Options     map[string]bool `json:"options,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (h *EventHandler) today() time.Time {
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	return santa.Today(now, h.Location)
}

func (h *EventHandler) view(e santa.Event) eventView {
	rules := make([]string, 0, len(e.Restrictions))
	for _, r := range e.Restrictions {
		rules = append(rules, r.String())
	}
	return eventView{
		ID:                e.ID,
		CreatorID:         e.CreatorID,
		Name:              e.Name,
		Phase:             string(e.Phase(h.today())),
		RegistrationEnd:   e.RegistrationEnd.Format(time.DateOnly),
		SelectionDeadline: e.SelectionDeadline.Format(time.DateOnly),
		ReviewDeadline:    e.ReviewDeadline.Format(time.DateOnly),
		ChatID:            e.Chat,
		Restrictions:      rules,
		Options:           e.Options,
		Paired:            e.Paired(),
		CreatedAt:         e.CreatedAt,
	}
}

// @Summary List events of a creator
// @Tags events
// @Param creator query int true "creator user id"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/v1/events [get]
func (h *EventHandler) listEvents(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	creator, err := strconv.ParseInt(strings.TrimSpace(c.Query("creator")), 10, 64)
	if err != nil || creator == 0 {
		Error(c, http.StatusBadRequest, "creator required", nil)
		return
	}
	events, err := h.Repo.ListEventsByCreator(c.Request.Context(), creator)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
	items := make([]eventView, 0, len(events))
	for _, e := range events {
		items = append(items, h.view(e))
	}
	Ok(c, items, map[string]any{"total": len(items)})
}

// @Summary Get event
// @Tags events
// @Param id path string true "event id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/events/{id} [get]
func (h *EventHandler) getEvent(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	e, err := h.Repo.FindEvent(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if e == nil {
		Error(c, http.StatusNotFound, "event not found", nil)
		return
	}
	counts, err := h.Repo.CountParticipantsByStatus(c.Request.Context(), e.ID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	v := h.view(*e)
	v.Counts = make(map[string]int64, len(counts))
	for st, n := range counts {
		v.Counts[string(st)] = n
	}
	Ok(c, v, nil)
}

// @Summary List participants of an event
// @Tags events
// @Param id path string true "event id"
// @Param status query string false "comma separated statuses"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/events/{id}/participants [get]
func (h *EventHandler) listParticipants(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var statuses []santa.Status
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, err := santa.ParseStatus(strings.TrimSpace(part))
			if err != nil {
				Error(c, http.StatusBadRequest, err.Error(), nil)
				return
			}
			statuses = append(statuses, st)
		}
	}
	ctx := c.Request.Context()
	e, err := h.Repo.FindEvent(ctx, strings.TrimSpace(c.Param("id")))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if e == nil {
		Error(c, http.StatusNotFound, "event not found", nil)
		return
	}
	list, err := h.Repo.ListParticipants(ctx, e.ID, statuses...)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	items := make([]participantView, 0, len(list))
	for _, p := range list {
		items = append(items, participantView{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Status:      string(p.Status),
			Choice:      p.Choice,
			Options:     p.Options,
			CreatedAt:   p.CreatedAt,
		})
	}
	Ok(c, items, map[string]any{"total": len(items)})
}
