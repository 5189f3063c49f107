package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"venture/internal/phase"
	"venture/internal/repository"
)

type DeliverableHandler struct {
	Repo repository.Repository
	Gate *phase.Gate
}

func (h *DeliverableHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/phases/:phaseId/deliverables", h.listByPhase)
	group := r.Group("/api/v1/deliverables")
	group.GET("/:id", h.get)
	group.POST("/:id/approve", h.approve)
	group.POST("/:id/reject", h.reject)
	group.POST("/:id/regenerate", h.regenerate)
}

// @Summary List deliverables in a phase
// @Tags deliverables
// @Param phaseId path string true "phase id"
// @Param status query string false "comma separated status filter"
// @Success 200 {object} apiResponse
// @Router /api/v1/phases/{phaseId}/deliverables [get]
func (h *DeliverableHandler) listByPhase(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	phaseID := strings.TrimSpace(c.Param("phaseId"))
	if phaseID == "" {
		Error(c, http.StatusBadRequest, "phase id required")
		return
	}
	var statuses []string
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, s)
			}
		}
	}
	items, err := h.Repo.ListDeliverablesByPhase(c.Request.Context(), phaseID, statuses)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	type deliverableView struct {
		ID      string      `json:"id"`
		Name    string      `json:"name"`
		Type    string      `json:"type"`
		Status  string      `json:"status"`
		State   phase.State `json:"state"`
		Agent   string      `json:"agent_name,omitempty"`
		CEOOK   bool        `json:"ceo_approved"`
		UserOK  bool        `json:"user_approved"`
		HasWork bool        `json:"has_content"`
	}
	views := make([]deliverableView, 0, len(items))
	for _, d := range items {
		views = append(views, deliverableView{
			ID:      d.ID,
			Name:    d.Name,
			Type:    d.Type,
			Status:  d.Status,
			State:   phase.DeliverableState(d),
			Agent:   d.AgentName,
			CEOOK:   d.CEOApproved,
			UserOK:  d.UserApproved,
			HasWork: len(d.Content) > 0,
		})
	}
	Ok(c, views)
}

// @Summary Get a deliverable
// @Tags deliverables
// @Param id path string true "deliverable id"
// @Success 200 {object} apiResponse
// @Router /api/v1/deliverables/{id} [get]
func (h *DeliverableHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required")
		return
	}
	item, err := h.Repo.GetDeliverableByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "deliverable not found")
		return
	}
	Ok(c, item)
}

type approvalRequest struct {
	Party string `json:"party" binding:"required"`
}

// @Summary Approve a deliverable as ceo or user
// @Tags deliverables
// @Param id path string true "deliverable id"
// @Param body body approvalRequest true "party: ceo|user"
// @Success 200 {object} apiResponse
// @Router /api/v1/deliverables/{id}/approve [post]
func (h *DeliverableHandler) approve(c *gin.Context) {
	if h.Gate == nil {
		Error(c, http.StatusInternalServerError, "review gate unavailable")
		return
	}
	var req approvalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.Gate.Approve(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.Party)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, item)
}

type rejectRequest struct {
	Party    string `json:"party" binding:"required"`
	Feedback string `json:"feedback" binding:"required"`
}

// @Summary Reject a deliverable and request a revision
// @Tags deliverables
// @Param id path string true "deliverable id"
// @Param body body rejectRequest true "party and feedback"
// @Success 200 {object} apiResponse
// @Router /api/v1/deliverables/{id}/reject [post]
func (h *DeliverableHandler) reject(c *gin.Context) {
	if h.Gate == nil {
		Error(c, http.StatusInternalServerError, "review gate unavailable")
		return
	}
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.Gate.RequestRevision(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.Party, req.Feedback)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, item)
}

// @Summary Re-dispatch a revision-requested deliverable to the executor
// @Tags deliverables
// @Param id path string true "deliverable id"
// @Success 200 {object} apiResponse
// @Router /api/v1/deliverables/{id}/regenerate [post]
func (h *DeliverableHandler) regenerate(c *gin.Context) {
	if h.Repo == nil || h.Gate == nil {
		Error(c, http.StatusInternalServerError, "handler unavailable")
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	item, err := h.Repo.GetDeliverableByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "deliverable not found")
		return
	}
	project, err := h.Repo.GetProjectByID(c.Request.Context(), item.ProjectID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if project == nil {
		Error(c, http.StatusNotFound, "project not found")
		return
	}
	if err := h.Gate.Regenerate(c.Request.Context(), project, id); err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, gin.H{"deliverable_id": id, "status": "in_progress"})
}
