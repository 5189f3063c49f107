package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"venture/internal/models"
	"venture/internal/repository"
)

const (
	NotifyCategoryPhase   = "phase"
	NotifyCategoryReview  = "review"
	NotifyCategoryTrading = "trading"
	NotifyCategoryRisk    = "risk"
)

// Notifier creates user-facing notifications. Like activity recording this is
// fire-and-forget: delivery failures are logged, never propagated.
type Notifier struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (n *Notifier) Notify(ctx context.Context, userID, projectID, category, title, body string) {
	if n == nil || n.Repo == nil || userID == "" {
		return
	}
	item := &models.Notification{
		UserID:    userID,
		ProjectID: projectID,
		Title:     title,
		Body:      body,
		Category:  category,
		CreatedAt: time.Now().UTC(),
	}
	if err := n.Repo.InsertNotification(ctx, item); err != nil && n.Logger != nil {
		n.Logger.Warn("notification insert failed",
			zap.String("user_id", userID),
			zap.String("category", category),
			zap.Error(err))
	}
}
