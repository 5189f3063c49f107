package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"venture/internal/models"
	"venture/internal/repository"
)

// ActivityService writes the append-only audit log and mirrors each entry to
// the live stream. Recording is best-effort everywhere it is called from: a
// failed insert must never abort the operation being logged, so Record
// swallows errors after logging them.
type ActivityService struct {
	Repo   repository.Repository
	Hub    *StreamHub
	Logger *zap.Logger
}

type ActivityEntry struct {
	ProjectID string
	AgentID   string
	AgentName string
	Action    string
	Status    string
	Metadata  map[string]any
}

func (s *ActivityService) Record(ctx context.Context, entry ActivityEntry) {
	if s == nil || s.Repo == nil {
		return
	}
	var meta datatypes.JSON
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err == nil {
			meta = datatypes.JSON(raw)
		}
	}
	item := &models.AgentActivity{
		ProjectID: entry.ProjectID,
		AgentID:   entry.AgentID,
		AgentName: entry.AgentName,
		Action:    entry.Action,
		Status:    entry.Status,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.InsertAgentActivity(ctx, item); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("activity insert failed",
				zap.String("project_id", entry.ProjectID),
				zap.String("action", entry.Action),
				zap.Error(err))
		}
		return
	}
	if s.Hub != nil {
		payload, err := json.Marshal(map[string]any{
			"type":       "agent_activity",
			"id":         item.ID,
			"project_id": item.ProjectID,
			"agent_id":   item.AgentID,
			"agent_name": item.AgentName,
			"action":     item.Action,
			"status":     item.Status,
			"created_at": item.CreatedAt,
		})
		if err == nil {
			s.Hub.Publish(payload)
		}
	}
}
