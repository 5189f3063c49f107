package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"venture/internal/models"
	"venture/internal/phase"
	"venture/internal/repository"
)

type PhaseHandler struct {
	Repo   repository.Repository
	Worker *phase.Worker
}

func (h *PhaseHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/projects/:id/phases")
	group.GET("", h.listPhases)
	group.POST("/:number/activate", h.activate)
	group.POST("/:number/start", h.start)
	group.POST("/:number/advance", h.advance)
	r.GET("/api/v1/phases/:phaseId/completion", h.completion)
}

// @Summary List a project's phases
// @Tags phases
// @Param id path string true "project id"
// @Success 200 {object} apiResponse
// @Router /api/v1/projects/{id}/phases [get]
func (h *PhaseHandler) listPhases(c *gin.Context) {
	project, ok := h.loadProject(c)
	if !ok {
		return
	}
	items, err := h.Repo.ListPhasesByProject(c.Request.Context(), project.ID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, items)
}

// @Summary Activate a phase and materialize its checklist
// @Tags phases
// @Param id path string true "project id"
// @Param number path int true "phase number"
// @Success 200 {object} apiResponse
// @Router /api/v1/projects/{id}/phases/{number}/activate [post]
func (h *PhaseHandler) activate(c *gin.Context) {
	project, number, ok := h.loadProjectAndNumber(c)
	if !ok {
		return
	}
	ph, err := h.Worker.ActivatePhase(c.Request.Context(), project, number)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, ph)
}

// @Summary Start a phase: dispatch every pending deliverable
// @Tags phases
// @Param id path string true "project id"
// @Param number path int true "phase number"
// @Success 200 {object} apiResponse
// @Router /api/v1/projects/{id}/phases/{number}/start [post]
func (h *PhaseHandler) start(c *gin.Context) {
	project, number, ok := h.loadProjectAndNumber(c)
	if !ok {
		return
	}
	// Partial failure is the normal case here: individual dispatch failures
	// land in the outcome list, not in the HTTP status.
	outcomes, err := h.Worker.StartPhase(c.Request.Context(), project, number)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, outcomes)
}

// @Summary Complete a phase and activate the next one
// @Tags phases
// @Param id path string true "project id"
// @Param number path int true "current phase number"
// @Success 200 {object} apiResponse
// @Router /api/v1/projects/{id}/phases/{number}/advance [post]
func (h *PhaseHandler) advance(c *gin.Context) {
	project, number, ok := h.loadProjectAndNumber(c)
	if !ok {
		return
	}
	result, err := h.Worker.AdvanceToNextPhase(c.Request.Context(), project, number)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, result)
}

// @Summary Completion report for a phase
// @Tags phases
// @Param phaseId path string true "phase id"
// @Success 200 {object} apiResponse
// @Router /api/v1/phases/{phaseId}/completion [get]
func (h *PhaseHandler) completion(c *gin.Context) {
	if h.Worker == nil {
		Error(c, http.StatusInternalServerError, "worker unavailable")
		return
	}
	phaseID := strings.TrimSpace(c.Param("phaseId"))
	if phaseID == "" {
		Error(c, http.StatusBadRequest, "phase id required")
		return
	}
	report, err := h.Worker.CheckPhaseCompletion(c.Request.Context(), phaseID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, report)
}

func (h *PhaseHandler) loadProject(c *gin.Context) (*models.Project, bool) {
	if h.Repo == nil || h.Worker == nil {
		Error(c, http.StatusInternalServerError, "handler unavailable")
		return nil, false
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "project id required")
		return nil, false
	}
	project, err := h.Repo.GetProjectByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return nil, false
	}
	if project == nil {
		Error(c, http.StatusNotFound, "project not found")
		return nil, false
	}
	return project, true
}

func (h *PhaseHandler) loadProjectAndNumber(c *gin.Context) (*models.Project, int, bool) {
	project, ok := h.loadProject(c)
	if !ok {
		return nil, 0, false
	}
	number, err := strconv.Atoi(strings.TrimSpace(c.Param("number")))
	if err != nil || number < 1 {
		Error(c, http.StatusBadRequest, "invalid phase number")
		return nil, 0, false
	}
	return project, number, true
}
