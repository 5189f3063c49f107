package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"venture/internal/repository"
	"venture/internal/service"
)

type SettingsHandler struct {
	Repo     repository.Repository
	Settings *service.SystemSettingsService
}

func (h *SettingsHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/settings")
	group.GET("", h.list)
	group.GET("/:key", h.get)
	group.PUT("/:key", h.put)
}

// @Summary List system settings
// @Tags settings
// @Param prefix query string false "key prefix filter"
// @Success 200 {object} apiResponse
// @Router /api/v1/settings [get]
func (h *SettingsHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	items, err := h.Repo.ListSystemSettings(c.Request.Context(), repository.ListSystemSettingsParams{
		Limit:  intQuery(c, "limit", 200),
		Offset: intQuery(c, "offset", 0),
		Prefix: stringQueryPtr(c, "prefix"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, items)
}

// @Summary Get a system setting
// @Tags settings
// @Param key path string true "setting key"
// @Success 200 {object} apiResponse
// @Router /api/v1/settings/{key} [get]
func (h *SettingsHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		Error(c, http.StatusBadRequest, "key required")
		return
	}
	item, err := h.Repo.GetSystemSettingByKey(c.Request.Context(), key)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "setting not found")
		return
	}
	Ok(c, item)
}

type putSettingRequest struct {
	Value       any    `json:"value"`
	Description string `json:"description"`
}

// @Summary Create or replace a system setting
// @Tags settings
// @Param key path string true "setting key"
// @Param body body putSettingRequest true "value"
// @Success 200 {object} apiResponse
// @Router /api/v1/settings/{key} [put]
func (h *SettingsHandler) put(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings unavailable")
		return
	}
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		Error(c, http.StatusBadRequest, "key required")
		return
	}
	var req putSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Settings.Set(c.Request.Context(), key, req.Value, req.Description); err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	item, err := h.Repo.GetSystemSettingByKey(c.Request.Context(), key)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, item)
}
