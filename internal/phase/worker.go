// Package phase drives a project's fixed workflow: checklist materialization,
// work dispatch, dual sign-off and advancement.
package phase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"venture/internal/client/executor"
	"venture/internal/models"
	"venture/internal/repository"
	"venture/internal/service"
)

// Dispatcher is the slice of the work executor client the worker needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, req executor.TaskRequest) (*executor.TaskResponse, error)
}

type Worker struct {
	Repo     repository.Repository
	Executor Dispatcher
	Activity *service.ActivityService
	Notifier *service.Notifier
	Logger   *zap.Logger

	// AdvanceCreatesChecklist makes AdvanceToNextPhase materialize the next
	// phase's deliverables itself instead of leaving that to a follow-up
	// ActivatePhase call.
	AdvanceCreatesChecklist bool
}

// DeliverableOutcome is one entry of StartPhase's per-deliverable result
// list. Partial failure is the normal case: callers must inspect each entry,
// not just the error return.
type DeliverableOutcome struct {
	DeliverableID string `json:"deliverable_id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
}

type CompletionReport struct {
	PhaseID              string        `json:"phase_id"`
	Total                int           `json:"total"`
	ApprovedDeliverables int           `json:"approved_deliverables"`
	ByState              map[State]int `json:"by_state"`
	Complete             bool          `json:"complete"`
}

type AdvanceResult struct {
	ProjectComplete bool   `json:"project_complete"`
	NextPhaseID     string `json:"next_phase_id,omitempty"`
	NextPhaseNumber int    `json:"next_phase_number,omitempty"`
	NextPhaseName   string `json:"next_phase_name,omitempty"`
}

type PhaseProgress struct {
	PhaseID     string  `json:"phase_id"`
	PhaseNumber int     `json:"phase_number"`
	Name        string  `json:"name"`
	Status      string  `json:"status"`
	Total       int     `json:"total"`
	Approved    int     `json:"approved"`
	PercentDone float64 `json:"percent_done"`
}

type ProgressReport struct {
	ProjectID      string                 `json:"project_id"`
	CurrentPhase   int                    `json:"current_phase"`
	Phases         []PhaseProgress        `json:"phases"`
	RecentActivity []models.AgentActivity `json:"recent_activity"`
}

// SeedPhases inserts the full pending phase sequence for a fresh project.
// Phases that already exist are left alone.
func (w *Worker) SeedPhases(ctx context.Context, projectID string) error {
	if w == nil || w.Repo == nil {
		return nil
	}
	existing, err := w.Repo.ListPhasesByProject(ctx, projectID)
	if err != nil {
		return err
	}
	have := make(map[int]bool, len(existing))
	for _, p := range existing {
		have[p.PhaseNumber] = true
	}
	now := time.Now().UTC()
	var rows []models.Phase
	for _, tpl := range AllTemplates() {
		if have[tpl.Number] {
			continue
		}
		rows = append(rows, models.Phase{
			ID:          uuid.NewString(),
			ProjectID:   projectID,
			PhaseNumber: tpl.Number,
			Name:        tpl.Name,
			Status:      "pending",
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return w.Repo.InsertPhases(ctx, rows)
}

// ActivatePhase claims the phase, materializes its checklist and announces
// the start. Checklist inserts are best-effort per item: one failed insert is
// logged and does not abort the rest.
func (w *Worker) ActivatePhase(ctx context.Context, project *models.Project, phaseNumber int) (*models.Phase, error) {
	if w == nil || w.Repo == nil {
		return nil, fmt.Errorf("worker is not configured")
	}
	if project == nil {
		return nil, fmt.Errorf("project is required")
	}
	ph, err := w.Repo.GetPhase(ctx, project.ID, phaseNumber)
	if err != nil {
		return nil, err
	}
	if ph == nil {
		return nil, fmt.Errorf("phase %d not found for project %s", phaseNumber, project.ID)
	}
	tpl := TemplateForPhase(phaseNumber)
	if tpl == nil {
		return nil, fmt.Errorf("no checklist template for phase %d", phaseNumber)
	}

	now := time.Now().UTC()
	claimed, err := w.Repo.ClaimPhaseActivation(ctx, ph.ID, now)
	if err != nil {
		return nil, err
	}
	if claimed {
		ph.Status = "active"
		ph.StartedAt = &now
	}

	if err := w.materializeChecklist(ctx, project, ph, tpl); err != nil {
		return nil, err
	}

	if claimed {
		if err := w.Repo.UpdateProjectPhase(ctx, project.ID, phaseNumber, "active"); err != nil {
			w.logWarn("project phase update failed", project.ID, err)
		}
		w.recordActivity(ctx, project.ID, tpl, "Phase "+ph.Name+" activated", "completed", map[string]any{
			"phase_number": phaseNumber,
		})
		if w.Notifier != nil {
			w.Notifier.Notify(ctx, project.OwnerUserID, project.ID, service.NotifyCategoryPhase,
				"Phase started: "+ph.Name,
				fmt.Sprintf("%s moved into phase %d (%s).", project.Name, phaseNumber, ph.Name))
		}
	}
	return ph, nil
}

// materializeChecklist inserts one deliverable per template entry, skipping
// types that already exist so re-activation is idempotent.
func (w *Worker) materializeChecklist(ctx context.Context, project *models.Project, ph *models.Phase, tpl *Template) error {
	existing, err := w.Repo.ListDeliverablesByPhase(ctx, ph.ID, nil)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, d := range existing {
		have[d.Type] = true
	}
	now := time.Now().UTC()
	for _, td := range tpl.Deliverables {
		if have[td.Type] {
			continue
		}
		item := &models.Deliverable{
			ID:          uuid.NewString(),
			ProjectID:   project.ID,
			PhaseID:     ph.ID,
			Type:        td.Type,
			Name:        td.Name,
			Description: td.Description,
			Status:      "pending",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := w.Repo.InsertDeliverable(ctx, item); err != nil {
			w.logWarn("deliverable insert failed", project.ID, err)
		}
	}
	return nil
}

// StartPhase is the idempotent re-entry point: it claims activation if still
// pending, then dispatches every deliverable not yet in review to the work
// executor. Items already in_progress are re-dispatched, which is the recovery
// path for tasks the executor accepted but never completed. Failures are
// fire-and-continue; the returned outcome list carries one entry per attempted
// deliverable.
func (w *Worker) StartPhase(ctx context.Context, project *models.Project, phaseNumber int) ([]DeliverableOutcome, error) {
	if w == nil || w.Repo == nil {
		return nil, fmt.Errorf("worker is not configured")
	}
	if project == nil {
		return nil, fmt.Errorf("project is required")
	}
	ph, err := w.ActivatePhase(ctx, project, phaseNumber)
	if err != nil {
		return nil, err
	}
	tpl := TemplateForPhase(phaseNumber)

	pending, err := w.Repo.ListDeliverablesByPhase(ctx, ph.ID, []string{"pending", "in_progress", "revision_requested"})
	if err != nil {
		return nil, err
	}

	outcomes := make([]DeliverableOutcome, 0, len(pending))
	for _, d := range pending {
		outcome := DeliverableOutcome{
			DeliverableID: d.ID,
			Name:          d.Name,
			Type:          d.Type,
		}
		if err := w.dispatchDeliverable(ctx, project, ph, tpl, d); err != nil {
			outcome.Error = err.Error()
			w.recordActivity(ctx, project.ID, tpl, "Dispatch failed for "+d.Name, "failed", map[string]any{
				"deliverable_id": d.ID,
				"error":          err.Error(),
			})
			if w.Logger != nil {
				w.Logger.Warn("deliverable dispatch failed",
					zap.String("project_id", project.ID),
					zap.String("deliverable_id", d.ID),
					zap.Error(err))
			}
		} else {
			outcome.Success = true
			w.recordActivity(ctx, project.ID, tpl, "Started work on "+d.Name, "in_progress", map[string]any{
				"deliverable_id": d.ID,
			})
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// dispatchDeliverable assigns the phase's designated agent, marks the item
// in_progress and hands it to the executor. The executor owns the transition
// to "review"; this function never sets it.
func (w *Worker) dispatchDeliverable(ctx context.Context, project *models.Project, ph *models.Phase, tpl *Template, d models.Deliverable) error {
	agentID, agentName := "", ""
	if tpl != nil {
		agentID, agentName = tpl.AgentCode, tpl.AgentName
	}
	if err := w.Repo.AssignDeliverable(ctx, d.ID, agentID, agentName, "in_progress"); err != nil {
		return err
	}
	if w.Executor == nil {
		return fmt.Errorf("work executor is not configured")
	}
	req := executor.TaskRequest{
		UserID:        project.OwnerUserID,
		ProjectID:     project.ID,
		DeliverableID: d.ID,
		AgentID:       agentID,
		TaskType:      d.Type,
		PhaseNumber:   ph.PhaseNumber,
	}
	if len(d.Feedback) > 0 {
		req.InputData = []byte(d.Feedback)
	}
	_, err := w.Executor.Dispatch(ctx, req)
	return err
}

// CheckPhaseCompletion is a pure read: counts by derived state plus the
// completion predicate (every deliverable has both sign-offs).
func (w *Worker) CheckPhaseCompletion(ctx context.Context, phaseID string) (*CompletionReport, error) {
	if w == nil || w.Repo == nil {
		return nil, fmt.Errorf("worker is not configured")
	}
	items, err := w.Repo.ListDeliverablesByPhase(ctx, phaseID, nil)
	if err != nil {
		return nil, err
	}
	report := &CompletionReport{
		PhaseID: phaseID,
		Total:   len(items),
		ByState: make(map[State]int),
	}
	for _, d := range items {
		st := DeliverableState(d)
		report.ByState[st]++
		if st == StateApproved {
			report.ApprovedDeliverables++
		}
	}
	report.Complete = len(items) > 0 && report.ApprovedDeliverables == len(items)
	return report, nil
}

// AdvanceToNextPhase completes the current phase and activates the next one.
// Past the last phase it reports project-complete and marks the project
// completed. When AdvanceCreatesChecklist is set the next phase's checklist
// is materialized here as well.
func (w *Worker) AdvanceToNextPhase(ctx context.Context, project *models.Project, currentPhaseNumber int) (*AdvanceResult, error) {
	if w == nil || w.Repo == nil {
		return nil, fmt.Errorf("worker is not configured")
	}
	if project == nil {
		return nil, fmt.Errorf("project is required")
	}
	current, err := w.Repo.GetPhase(ctx, project.ID, currentPhaseNumber)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("phase %d not found for project %s", currentPhaseNumber, project.ID)
	}
	now := time.Now().UTC()
	if err := w.Repo.CompletePhase(ctx, current.ID, now); err != nil {
		return nil, err
	}

	next, err := w.Repo.GetPhase(ctx, project.ID, currentPhaseNumber+1)
	if err != nil {
		return nil, err
	}
	if next == nil {
		if err := w.Repo.UpdateProjectPhase(ctx, project.ID, currentPhaseNumber, "completed"); err != nil {
			return nil, err
		}
		w.recordActivity(ctx, project.ID, TemplateForPhase(currentPhaseNumber), "All phases completed", "completed", nil)
		if w.Notifier != nil {
			w.Notifier.Notify(ctx, project.OwnerUserID, project.ID, service.NotifyCategoryPhase,
				"Project complete", project.Name+" has finished its final phase.")
		}
		return &AdvanceResult{ProjectComplete: true}, nil
	}

	if _, err := w.Repo.ClaimPhaseActivation(ctx, next.ID, now); err != nil {
		return nil, err
	}
	if err := w.Repo.UpdateProjectPhase(ctx, project.ID, next.PhaseNumber, "active"); err != nil {
		return nil, err
	}
	if w.AdvanceCreatesChecklist {
		if tpl := TemplateForPhase(next.PhaseNumber); tpl != nil {
			if err := w.materializeChecklist(ctx, project, next, tpl); err != nil {
				w.logWarn("next phase checklist failed", project.ID, err)
			}
		}
	}
	w.recordActivity(ctx, project.ID, TemplateForPhase(next.PhaseNumber), "Advanced to phase "+next.Name, "completed", map[string]any{
		"phase_number": next.PhaseNumber,
	})
	if w.Notifier != nil {
		w.Notifier.Notify(ctx, project.OwnerUserID, project.ID, service.NotifyCategoryPhase,
			"Phase started: "+next.Name,
			fmt.Sprintf("%s advanced to phase %d (%s).", project.Name, next.PhaseNumber, next.Name))
	}
	return &AdvanceResult{
		NextPhaseID:     next.ID,
		NextPhaseNumber: next.PhaseNumber,
		NextPhaseName:   next.Name,
	}, nil
}

// MonitorProgress is a read-only aggregate for dashboards: per-phase
// completion percentage plus the activity log tail.
func (w *Worker) MonitorProgress(ctx context.Context, project *models.Project) (*ProgressReport, error) {
	if w == nil || w.Repo == nil {
		return nil, fmt.Errorf("worker is not configured")
	}
	if project == nil {
		return nil, fmt.Errorf("project is required")
	}
	phases, err := w.Repo.ListPhasesByProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	report := &ProgressReport{
		ProjectID:    project.ID,
		CurrentPhase: project.CurrentPhase,
	}
	for _, ph := range phases {
		items, err := w.Repo.ListDeliverablesByPhase(ctx, ph.ID, nil)
		if err != nil {
			return nil, err
		}
		approved := 0
		for _, d := range items {
			if IsApproved(d) {
				approved++
			}
		}
		pct := 0.0
		if len(items) > 0 {
			pct = float64(approved) / float64(len(items)) * 100
		}
		report.Phases = append(report.Phases, PhaseProgress{
			PhaseID:     ph.ID,
			PhaseNumber: ph.PhaseNumber,
			Name:        ph.Name,
			Status:      ph.Status,
			Total:       len(items),
			Approved:    approved,
			PercentDone: pct,
		})
	}
	projectID := project.ID
	activities, err := w.Repo.ListAgentActivities(ctx, repository.ListActivitiesParams{
		ProjectID: &projectID,
		Limit:     20,
	})
	if err != nil {
		return nil, err
	}
	report.RecentActivity = activities
	return report, nil
}

func (w *Worker) recordActivity(ctx context.Context, projectID string, tpl *Template, action, status string, metadata map[string]any) {
	if w.Activity == nil {
		return
	}
	entry := service.ActivityEntry{
		ProjectID: projectID,
		Action:    action,
		Status:    status,
		Metadata:  metadata,
	}
	if tpl != nil {
		entry.AgentID = tpl.AgentCode
		entry.AgentName = tpl.AgentName
	}
	w.Activity.Record(ctx, entry)
}

func (w *Worker) logWarn(msg, projectID string, err error) {
	if w.Logger != nil {
		w.Logger.Warn(msg, zap.String("project_id", projectID), zap.Error(err))
	}
}
