package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"venture/internal/repository"
)

type NotificationHandler struct {
	Repo repository.Repository
}

func (h *NotificationHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/notifications", h.listNotifications)
}

// @Summary List notifications for a user
// @Tags notifications
// @Param user_id query string true "user id"
// @Param project_id query string false "project filter"
// @Param category query string false "category filter"
// @Param unread query bool false "unread only"
// @Success 200 {object} apiResponse
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) listNotifications(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		Error(c, http.StatusBadRequest, "user_id required")
		return
	}
	items, err := h.Repo.ListNotifications(c.Request.Context(), repository.ListNotificationsParams{
		Limit:     intQuery(c, "limit", 50),
		Offset:    intQuery(c, "offset", 0),
		UserID:    &userID,
		ProjectID: stringQueryPtr(c, "project_id"),
		Category:  stringQueryPtr(c, "category"),
		Unread:    boolQueryPtr(c, "unread"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, items)
}
