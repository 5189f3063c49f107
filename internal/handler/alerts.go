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
)

type AlertHandler struct {
	Repo repository.Repository
}

func (h *AlertHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/alerts")
	group.POST("", h.createAlert)
	group.GET("", h.listAlerts)
	group.POST("/:id/deactivate", h.deactivate)
}

type createAlertRequest struct {
	ProjectID    string `json:"project_id" binding:"required"`
	UserID       string `json:"user_id" binding:"required"`
	Symbol       string `json:"symbol" binding:"required"`
	Condition    string `json:"condition" binding:"required"`
	TriggerPrice string `json:"trigger_price" binding:"required"`
	AutoAction   string `json:"auto_action"`
}

// @Summary Create a one-shot price alert
// @Tags alerts
// @Param body body createAlertRequest true "alert"
// @Success 200 {object} apiResponse
// @Router /api/v1/alerts [post]
func (h *AlertHandler) createAlert(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	condition := strings.ToLower(strings.TrimSpace(req.Condition))
	switch condition {
	case "above", "below", "crossover", "crossunder":
	default:
		Error(c, http.StatusBadRequest, "condition must be above, below, crossover or crossunder")
		return
	}
	trigger, err := decimal.NewFromString(strings.TrimSpace(req.TriggerPrice))
	if err != nil || trigger.LessThanOrEqual(decimal.Zero) {
		Error(c, http.StatusBadRequest, "trigger_price must be a positive number")
		return
	}
	action := strings.TrimSpace(req.AutoAction)
	if action != "" {
		parts := strings.SplitN(action, ":", 2)
		side := ""
		if len(parts) == 2 {
			side = strings.ToLower(strings.TrimSpace(parts[0]))
		}
		if side != "buy" && side != "sell" {
			Error(c, http.StatusBadRequest, "auto_action must be BUY:<qty> or SELL:<qty>")
			return
		}
	}
	now := time.Now().UTC()
	item := &models.Alert{
		ID:           uuid.NewString(),
		ProjectID:    strings.TrimSpace(req.ProjectID),
		UserID:       strings.TrimSpace(req.UserID),
		Symbol:       strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Condition:    condition,
		TriggerPrice: trigger,
		AutoAction:   action,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.Repo.InsertAlert(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, item)
}

// @Summary List alerts
// @Tags alerts
// @Param project_id query string false "project filter"
// @Param user_id query string false "user filter"
// @Param active query bool false "active filter"
// @Success 200 {object} apiResponse
// @Router /api/v1/alerts [get]
func (h *AlertHandler) listAlerts(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	items, err := h.Repo.ListAlerts(c.Request.Context(), repository.ListAlertsParams{
		Limit:     intQuery(c, "limit", 100),
		Offset:    intQuery(c, "offset", 0),
		ProjectID: stringQueryPtr(c, "project_id"),
		UserID:    stringQueryPtr(c, "user_id"),
		Active:    boolQueryPtr(c, "active"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, items)
}

// @Summary Deactivate an alert without firing it
// @Tags alerts
// @Param id path string true "alert id"
// @Success 200 {object} apiResponse
// @Router /api/v1/alerts/{id}/deactivate [post]
func (h *AlertHandler) deactivate(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	item, err := h.Repo.GetAlertByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "alert not found")
		return
	}
	if err := h.Repo.SetAlertActive(c.Request.Context(), id, false); err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	item.IsActive = false
	Ok(c, item)
}
