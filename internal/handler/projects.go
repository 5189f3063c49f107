package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"venture/internal/models"
	"venture/internal/phase"
	"venture/internal/repository"
)

type ProjectHandler struct {
	Repo   repository.Repository
	Worker *phase.Worker
}

func (h *ProjectHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/projects")
	group.POST("", h.createProject)
	group.GET("", h.listProjects)
	group.GET("/:id", h.getProject)
	group.POST("/:id/autonomous", h.setAutonomous)
	group.GET("/:id/progress", h.progress)
}

type createProjectRequest struct {
	OwnerUserID string `json:"owner_user_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Industry    string `json:"industry"`
	Exchange    string `json:"exchange"`
	Mode        string `json:"mode"`
	Capital     string `json:"capital"`
}

// @Summary Create a project with its full phase sequence
// @Tags projects
// @Param body body createProjectRequest true "project"
// @Success 200 {object} apiResponse
// @Router /api/v1/projects [post]
func (h *ProjectHandler) createProject(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode != "live" {
		mode = "paper"
	}
	capital := decimal.Zero
	if strings.TrimSpace(req.Capital) != "" {
		parsed, err := decimal.NewFromString(strings.TrimSpace(req.Capital))
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid capital: "+err.Error())
			return
		}
		capital = parsed
	}
	now := time.Now().UTC()
	project := &models.Project{
		ID:           uuid.NewString(),
		OwnerUserID:  strings.TrimSpace(req.OwnerUserID),
		Name:         strings.TrimSpace(req.Name),
		Industry:     strings.TrimSpace(req.Industry),
		Exchange:     strings.TrimSpace(req.Exchange),
		Mode:         mode,
		Capital:      capital,
		TotalPnL:     decimal.Zero,
		CurrentPhase: 1,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.Repo.InsertProject(c.Request.Context(), project); err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if h.Worker != nil {
		if err := h.Worker.SeedPhases(c.Request.Context(), project.ID); err != nil {
			Error(c, http.StatusBadGateway, err.Error())
			return
		}
	}
	Ok(c, project)
}

// @Summary List projects
// @Tags projects
// @Param owner_user_id query string false "owner filter"
// @Param status query string false "status filter"
// @Param autonomous query bool false "autonomous filter"
// @Success 200 {object} apiResponse
// @Router /api/v1/projects [get]
func (h *ProjectHandler) listProjects(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	items, err := h.Repo.ListProjects(c.Request.Context(), repository.ListProjectsParams{
		Limit:       intQuery(c, "limit", 100),
		Offset:      intQuery(c, "offset", 0),
		OwnerUserID: stringQueryPtr(c, "owner_user_id"),
		Status:      stringQueryPtr(c, "status"),
		Autonomous:  boolQueryPtr(c, "autonomous"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, items)
}

// @Summary Get a project
// @Tags projects
// @Param id path string true "project id"
// @Success 200 {object} apiResponse
// @Router /api/v1/projects/{id} [get]
func (h *ProjectHandler) getProject(c *gin.Context) {
	project, ok := h.loadProject(c)
	if !ok {
		return
	}
	Ok(c, project)
}

type setAutonomousRequest struct {
	Enabled bool `json:"enabled"`
}

// @Summary Toggle autonomous mode
// @Tags projects
// @Param id path string true "project id"
// @Param body body setAutonomousRequest true "flag"
// @Success 200 {object} apiResponse
// @Router /api/v1/projects/{id}/autonomous [post]
func (h *ProjectHandler) setAutonomous(c *gin.Context) {
	project, ok := h.loadProject(c)
	if !ok {
		return
	}
	var req setAutonomousRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Repo.SetProjectAutonomous(c.Request.Context(), project.ID, req.Enabled); err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	project.AutonomousMode = req.Enabled
	Ok(c, project)
}

// @Summary Per-phase progress and recent activity
// @Tags projects
// @Param id path string true "project id"
// @Success 200 {object} apiResponse
// @Router /api/v1/projects/{id}/progress [get]
func (h *ProjectHandler) progress(c *gin.Context) {
	project, ok := h.loadProject(c)
	if !ok {
		return
	}
	if h.Worker == nil {
		Error(c, http.StatusInternalServerError, "worker unavailable")
		return
	}
	report, err := h.Worker.MonitorProgress(c.Request.Context(), project)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, report)
}

func (h *ProjectHandler) loadProject(c *gin.Context) (*models.Project, bool) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return nil, false
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required")
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
