package phase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"venture/internal/client/executor"
	"venture/internal/models"
	"venture/internal/repository"
	"venture/internal/service"
)

const (
	PartyCEO  = "ceo"
	PartyUser = "user"
)

// Gate is the two-party sign-off state machine. The two approval flags are
// independent columns, settable in either order; last writer wins and the
// flags never conflict with each other.
type Gate struct {
	Repo     repository.Repository
	Executor Dispatcher
	Activity *service.ActivityService
	Notifier *service.Notifier
}

// FeedbackEntry is one rejection in a deliverable's append-only feedback
// history.
type FeedbackEntry struct {
	Party     string    `json:"party"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Approve sets one party's flag. When both flags end up true the stored
// status is not rewritten to an "approved" string; downstream completion
// logic derives approval from the flags alone.
func (g *Gate) Approve(ctx context.Context, deliverableID, party string) (*models.Deliverable, error) {
	if g == nil || g.Repo == nil {
		return nil, fmt.Errorf("review gate is not configured")
	}
	party = strings.ToLower(strings.TrimSpace(party))
	if party != PartyCEO && party != PartyUser {
		return nil, fmt.Errorf("unknown approval party: %s", party)
	}
	d, err := g.Repo.GetDeliverableByID(ctx, deliverableID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("deliverable %s not found", deliverableID)
	}
	if err := g.Repo.SetDeliverableApproval(ctx, d.ID, party, true); err != nil {
		return nil, err
	}
	switch party {
	case PartyCEO:
		d.CEOApproved = true
	case PartyUser:
		d.UserApproved = true
	}
	if g.Activity != nil {
		g.Activity.Record(ctx, service.ActivityEntry{
			ProjectID: d.ProjectID,
			AgentID:   d.AgentID,
			AgentName: d.AgentName,
			Action:    fmt.Sprintf("%s approved %s", party, d.Name),
			Status:    "completed",
			Metadata:  map[string]any{"deliverable_id": d.ID, "party": party},
		})
	}
	return d, nil
}

// RequestRevision rejects the deliverable: status back to revision_requested,
// both approval flags cleared, feedback appended to the history.
func (g *Gate) RequestRevision(ctx context.Context, deliverableID, party, feedbackText string) (*models.Deliverable, error) {
	if g == nil || g.Repo == nil {
		return nil, fmt.Errorf("review gate is not configured")
	}
	party = strings.ToLower(strings.TrimSpace(party))
	if party != PartyCEO && party != PartyUser {
		return nil, fmt.Errorf("unknown approval party: %s", party)
	}
	d, err := g.Repo.GetDeliverableByID(ctx, deliverableID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("deliverable %s not found", deliverableID)
	}

	var history []FeedbackEntry
	if len(d.Feedback) > 0 {
		_ = json.Unmarshal(d.Feedback, &history)
	}
	history = append(history, FeedbackEntry{
		Party:     party,
		Text:      feedbackText,
		CreatedAt: time.Now().UTC(),
	})
	raw, err := json.Marshal(history)
	if err != nil {
		return nil, err
	}
	if err := g.Repo.RequestDeliverableRevision(ctx, d.ID, raw); err != nil {
		return nil, err
	}
	d.Status = "revision_requested"
	d.CEOApproved = false
	d.UserApproved = false
	d.Feedback = raw

	if g.Activity != nil {
		g.Activity.Record(ctx, service.ActivityEntry{
			ProjectID: d.ProjectID,
			AgentID:   d.AgentID,
			AgentName: d.AgentName,
			Action:    fmt.Sprintf("%s requested revision of %s", party, d.Name),
			Status:    "revision_requested",
			Metadata:  map[string]any{"deliverable_id": d.ID, "party": party},
		})
	}
	return d, nil
}

// Regenerate re-dispatches a revision-requested deliverable to the executor
// with the accumulated feedback history as context.
func (g *Gate) Regenerate(ctx context.Context, project *models.Project, deliverableID string) error {
	if g == nil || g.Repo == nil {
		return fmt.Errorf("review gate is not configured")
	}
	if project == nil {
		return fmt.Errorf("project is required")
	}
	d, err := g.Repo.GetDeliverableByID(ctx, deliverableID)
	if err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("deliverable %s not found", deliverableID)
	}
	ph, err := g.Repo.GetPhaseByID(ctx, d.PhaseID)
	if err != nil {
		return err
	}
	if ph == nil {
		return fmt.Errorf("phase %s not found", d.PhaseID)
	}
	if err := g.Repo.UpdateDeliverableStatus(ctx, d.ID, "in_progress"); err != nil {
		return err
	}
	if g.Executor == nil {
		return fmt.Errorf("work executor is not configured")
	}
	req := executor.TaskRequest{
		UserID:        project.OwnerUserID,
		ProjectID:     project.ID,
		DeliverableID: d.ID,
		AgentID:       d.AgentID,
		TaskType:      d.Type,
		PhaseNumber:   ph.PhaseNumber,
	}
	if len(d.Feedback) > 0 {
		req.InputData = []byte(d.Feedback)
	}
	if _, err := g.Executor.Dispatch(ctx, req); err != nil {
		return err
	}
	if g.Activity != nil {
		g.Activity.Record(ctx, service.ActivityEntry{
			ProjectID: d.ProjectID,
			AgentID:   d.AgentID,
			AgentName: d.AgentName,
			Action:    "Regenerating " + d.Name,
			Status:    "in_progress",
			Metadata:  map[string]any{"deliverable_id": d.ID},
		})
	}
	return nil
}
