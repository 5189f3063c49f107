package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"

	"venture/internal/repository"
	"venture/internal/service"
)

type ActivityHandler struct {
	Repo repository.Repository
	Hub  *service.StreamHub
}

func (h *ActivityHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/activities", h.listActivities)
	r.GET("/api/v1/activities/stream", h.stream)
}

// @Summary List agent activity log entries
// @Tags activity
// @Param project_id query string false "project filter"
// @Param agent_id query string false "agent filter"
// @Param status query string false "status filter"
// @Success 200 {object} apiResponse
// @Router /api/v1/activities [get]
func (h *ActivityHandler) listActivities(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	items, err := h.Repo.ListAgentActivities(c.Request.Context(), repository.ListActivitiesParams{
		Limit:     intQuery(c, "limit", 50),
		Offset:    intQuery(c, "offset", 0),
		ProjectID: stringQueryPtr(c, "project_id"),
		AgentID:   stringQueryPtr(c, "agent_id"),
		Status:    stringQueryPtr(c, "status"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, items)
}

// @Summary Live activity stream over websocket
// @Tags activity
// @Router /api/v1/activities/stream [get]
func (h *ActivityHandler) stream(c *gin.Context) {
	if h.Hub == nil {
		Error(c, http.StatusInternalServerError, "stream unavailable")
		return
	}
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := c.Request.Context()
	ch, cancel := h.Hub.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				return
			}
		}
	}
}
