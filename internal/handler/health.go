package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"venture/internal/service"
)

type HealthHandler struct {
	DB       *gorm.DB
	Settings *service.SystemSettingsService
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

// @Summary Liveness check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Readiness check
// @Description Reports database reachability and the state of the loop switches.
// @Tags health
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /readyz [get]
func (h *HealthHandler) ready(c *gin.Context) {
	components := gin.H{}
	ready := true

	switch {
	case h.DB == nil:
		components["database"] = "not_configured"
		ready = false
	default:
		sqlDB, err := h.DB.DB()
		if err != nil {
			components["database"] = "error"
			ready = false
			break
		}
		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			components["database"] = "unreachable"
			ready = false
			break
		}
		components["database"] = "up"
	}

	if ready && h.Settings != nil {
		// Switch state is informational: a paused loop is still a ready service.
		components["trading_loop"] = h.Settings.IsEnabled(c.Request.Context(), service.FeatureTradingLoop, true)
		components["phase_monitor"] = h.Settings.IsEnabled(c.Request.Context(), service.FeaturePhaseMonitor, true)
		components["ceo_review"] = h.Settings.IsEnabled(c.Request.Context(), service.FeatureCEOReview, false)
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}
	c.JSON(status, gin.H{"status": state, "components": components})
}
