package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"venture/internal/models"
	"venture/internal/repository"
	"venture/internal/risk"
	"venture/internal/trading"
)

type TradingHandler struct {
	Repo  repository.Repository
	Loop  *trading.Loop
	Guard *risk.Guard
}

func (h *TradingHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/trading")
	group.POST("/tick", h.tick)
	group.POST("/strategies", h.createStrategy)
	group.GET("/strategies", h.listStrategies)
	group.POST("/strategies/:id/toggle", h.toggleStrategy)
	group.POST("/strategies/:id/execute", h.executeStrategy)
	group.GET("/executions", h.listExecutions)
	group.GET("/portfolio/:projectId", h.portfolio)
	group.GET("/risk/:projectId", h.riskControls)
	group.POST("/risk/:projectId/clear", h.clearKillSwitch)
}

// @Summary Run one trading tick over all autonomous projects
// @Tags trading
// @Success 200 {object} apiResponse
// @Router /api/v1/trading/tick [post]
func (h *TradingHandler) tick(c *gin.Context) {
	if h.Loop == nil {
		Error(c, http.StatusInternalServerError, "trading loop unavailable")
		return
	}
	result, err := h.Loop.TickOnce(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, result)
}

type createStrategyRequest struct {
	ProjectID     string `json:"project_id" binding:"required"`
	Name          string `json:"name" binding:"required"`
	StrategyType  string `json:"strategy_type" binding:"required"`
	Symbol        string `json:"symbol" binding:"required"`
	AmountUSD     string `json:"amount_usd" binding:"required"`
	IntervalHours int    `json:"interval_hours"`
	Mode          string `json:"mode"`
	Active        bool   `json:"active"`
}

// @Summary Create a trading strategy
// @Tags trading
// @Param body body createStrategyRequest true "strategy"
// @Success 200 {object} apiResponse
// @Router /api/v1/trading/strategies [post]
func (h *TradingHandler) createStrategy(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	var req createStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	strategyType := strings.ToLower(strings.TrimSpace(req.StrategyType))
	switch strategyType {
	case "dca", "grid", "momentum":
	default:
		Error(c, http.StatusBadRequest, "strategy_type must be dca, grid or momentum")
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.AmountUSD))
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		Error(c, http.StatusBadRequest, "amount_usd must be a positive number")
		return
	}
	interval := req.IntervalHours
	if interval <= 0 {
		interval = 24
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode != "live" {
		mode = "paper"
	}
	now := time.Now().UTC()
	item := &models.TradingStrategy{
		ID:            uuid.NewString(),
		ProjectID:     strings.TrimSpace(req.ProjectID),
		Name:          strings.TrimSpace(req.Name),
		StrategyType:  strategyType,
		Symbol:        strings.ToUpper(strings.TrimSpace(req.Symbol)),
		AmountUSD:     amount,
		IntervalHours: interval,
		IsActive:      req.Active,
		Mode:          mode,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.Repo.InsertStrategy(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, item)
}

// @Summary List strategies for a project
// @Tags trading
// @Param project_id query string true "project id"
// @Param active query bool false "active only"
// @Success 200 {object} apiResponse
// @Router /api/v1/trading/strategies [get]
func (h *TradingHandler) listStrategies(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	projectID := strings.TrimSpace(c.Query("project_id"))
	if projectID == "" {
		Error(c, http.StatusBadRequest, "project_id required")
		return
	}
	activeOnly := false
	if v := boolQueryPtr(c, "active"); v != nil {
		activeOnly = *v
	}
	items, err := h.Repo.ListStrategiesByProject(c.Request.Context(), projectID, activeOnly)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, items)
}

type toggleStrategyRequest struct {
	Active bool `json:"active"`
}

// @Summary Enable or disable a strategy
// @Tags trading
// @Param id path string true "strategy id"
// @Param body body toggleStrategyRequest true "flag"
// @Success 200 {object} apiResponse
// @Router /api/v1/trading/strategies/{id}/toggle [post]
func (h *TradingHandler) toggleStrategy(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	item, err := h.Repo.GetStrategyByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "strategy not found")
		return
	}
	var req toggleStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Repo.SetStrategyActive(c.Request.Context(), id, req.Active); err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	item.IsActive = req.Active
	Ok(c, item)
}

// @Summary Manually execute a DCA strategy once
// @Tags trading
// @Param id path string true "strategy id"
// @Success 200 {object} apiResponse
// @Router /api/v1/trading/strategies/{id}/execute [post]
func (h *TradingHandler) executeStrategy(c *gin.Context) {
	if h.Repo == nil || h.Loop == nil {
		Error(c, http.StatusInternalServerError, "handler unavailable")
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	strategy, err := h.Repo.GetStrategyByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if strategy == nil {
		Error(c, http.StatusNotFound, "strategy not found")
		return
	}
	project, err := h.Repo.GetProjectByID(c.Request.Context(), strategy.ProjectID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if project == nil {
		Error(c, http.StatusNotFound, "project not found")
		return
	}
	// Manual execution still honors the kill switch.
	if h.Guard != nil {
		allowed, err := h.Guard.Allowed(c.Request.Context(), project.ID)
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error())
			return
		}
		if !allowed {
			Error(c, http.StatusConflict, "kill switch is active")
			return
		}
	}
	if err := h.Loop.ExecuteDCA(c.Request.Context(), project, strategy); err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, gin.H{"strategy_id": id, "executed": true})
}

// @Summary List executions
// @Tags trading
// @Param project_id query string false "project filter"
// @Param symbol query string false "symbol filter"
// @Success 200 {object} apiResponse
// @Router /api/v1/trading/executions [get]
func (h *TradingHandler) listExecutions(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	items, err := h.Repo.ListExecutions(c.Request.Context(), repository.ListExecutionsParams{
		Limit:      intQuery(c, "limit", 100),
		Offset:     intQuery(c, "offset", 0),
		ProjectID:  stringQueryPtr(c, "project_id"),
		StrategyID: stringQueryPtr(c, "strategy_id"),
		Symbol:     stringQueryPtr(c, "symbol"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, items)
}

// @Summary Latest portfolio snapshot for a project
// @Tags trading
// @Param projectId path string true "project id"
// @Success 200 {object} apiResponse
// @Router /api/v1/trading/portfolio/{projectId} [get]
func (h *TradingHandler) portfolio(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	projectID := strings.TrimSpace(c.Param("projectId"))
	snap, err := h.Repo.GetPortfolioSnapshot(c.Request.Context(), projectID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if snap == nil {
		Error(c, http.StatusNotFound, "no snapshot yet")
		return
	}
	Ok(c, snap)
}

// @Summary Risk controls for a project
// @Tags trading
// @Param projectId path string true "project id"
// @Success 200 {object} apiResponse
// @Router /api/v1/trading/risk/{projectId} [get]
func (h *TradingHandler) riskControls(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	projectID := strings.TrimSpace(c.Param("projectId"))
	rc, err := h.Repo.GetRiskControls(c.Request.Context(), projectID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if rc == nil {
		Error(c, http.StatusNotFound, "no risk controls")
		return
	}
	Ok(c, rc)
}

// @Summary Manually clear a tripped kill switch
// @Tags trading
// @Param projectId path string true "project id"
// @Success 200 {object} apiResponse
// @Router /api/v1/trading/risk/{projectId}/clear [post]
func (h *TradingHandler) clearKillSwitch(c *gin.Context) {
	if h.Repo == nil || h.Guard == nil {
		Error(c, http.StatusInternalServerError, "handler unavailable")
		return
	}
	projectID := strings.TrimSpace(c.Param("projectId"))
	project, err := h.Repo.GetProjectByID(c.Request.Context(), projectID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if project == nil {
		Error(c, http.StatusNotFound, "project not found")
		return
	}
	if err := h.Guard.Clear(c.Request.Context(), project); err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, gin.H{"project_id": projectID, "kill_switch_active": false})
}
