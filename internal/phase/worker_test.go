package phase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"venture/internal/client/executor"
	"venture/internal/models"
	memoryrepo "venture/internal/repository/memory"
)

type stubDispatcher struct {
	calls   []executor.TaskRequest
	failFor map[string]bool
}

func (s *stubDispatcher) Dispatch(ctx context.Context, req executor.TaskRequest) (*executor.TaskResponse, error) {
	s.calls = append(s.calls, req)
	if s.failFor[req.DeliverableID] {
		return nil, fmt.Errorf("executor unavailable")
	}
	return &executor.TaskResponse{Success: true}, nil
}

func newTestProject(store *memoryrepo.Store) *models.Project {
	project := &models.Project{
		ID:           uuid.NewString(),
		OwnerUserID:  uuid.NewString(),
		Name:         "Acme Studio",
		Mode:         "paper",
		CurrentPhase: 1,
		Status:       "active",
	}
	_ = store.InsertProject(context.Background(), project)
	return project
}

func TestStartPhase_DispatchesAllPendingDeliverables(t *testing.T) {
	store := memoryrepo.New()
	project := newTestProject(store)
	dispatcher := &stubDispatcher{}
	w := &Worker{Repo: store, Executor: dispatcher}
	if err := w.SeedPhases(context.Background(), project.ID); err != nil {
		t.Fatalf("seed: %v", err)
	}

	outcomes, err := w.StartPhase(context.Background(), project, 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	tpl := TemplateForPhase(1)
	if len(outcomes) != len(tpl.Deliverables) {
		t.Fatalf("outcomes=%d want %d", len(outcomes), len(tpl.Deliverables))
	}
	for _, o := range outcomes {
		if !o.Success {
			t.Fatalf("outcome for %s failed: %s", o.Name, o.Error)
		}
	}
	if len(dispatcher.calls) != len(tpl.Deliverables) {
		t.Fatalf("dispatch calls=%d want %d", len(dispatcher.calls), len(tpl.Deliverables))
	}
	// The executor owns the in_progress -> review transition; the worker must
	// leave every dispatched deliverable in_progress.
	for _, d := range store.Deliverables {
		if d.Status != "in_progress" {
			t.Fatalf("deliverable %s status=%q want in_progress", d.Name, d.Status)
		}
		if d.AgentID != tpl.AgentCode {
			t.Fatalf("deliverable %s agent=%q want %q", d.Name, d.AgentID, tpl.AgentCode)
		}
	}
}

func TestStartPhase_PartialFailureIsolation(t *testing.T) {
	store := memoryrepo.New()
	project := newTestProject(store)
	w := &Worker{Repo: store}
	if err := w.SeedPhases(context.Background(), project.ID); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ph, err := store.GetPhase(context.Background(), project.ID, 1)
	if err != nil || ph == nil {
		t.Fatalf("phase lookup: %v", err)
	}
	if _, err := w.ActivatePhase(context.Background(), project, 1); err != nil {
		t.Fatalf("activate: %v", err)
	}
	items, _ := store.ListDeliverablesByPhase(context.Background(), ph.ID, nil)
	if len(items) < 3 {
		t.Fatalf("checklist=%d want >=3", len(items))
	}
	failing := items[1].ID
	dispatcher := &stubDispatcher{failFor: map[string]bool{failing: true}}
	w.Executor = dispatcher

	outcomes, err := w.StartPhase(context.Background(), project, 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(outcomes) != len(items) {
		t.Fatalf("outcomes=%d want %d", len(outcomes), len(items))
	}
	failures := 0
	for _, o := range outcomes {
		if !o.Success {
			failures++
			if o.DeliverableID != failing {
				t.Fatalf("failed outcome=%s want %s", o.DeliverableID, failing)
			}
			if o.Error == "" {
				t.Fatalf("failed outcome has empty error")
			}
		}
	}
	if failures != 1 {
		t.Fatalf("failures=%d want 1", failures)
	}
	if len(dispatcher.calls) != len(items) {
		t.Fatalf("dispatch calls=%d want %d (all must be attempted)", len(dispatcher.calls), len(items))
	}
}

func TestStartPhase_ReentryRedispatchesStuckItems(t *testing.T) {
	store := memoryrepo.New()
	project := newTestProject(store)
	dispatcher := &stubDispatcher{}
	w := &Worker{Repo: store, Executor: dispatcher}
	if err := w.SeedPhases(context.Background(), project.ID); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := w.StartPhase(context.Background(), project, 1); err != nil {
		t.Fatalf("first start: %v", err)
	}
	firstCalls := len(dispatcher.calls)
	tpl := TemplateForPhase(1)
	if firstCalls != len(tpl.Deliverables) {
		t.Fatalf("first start dispatched %d want %d", firstCalls, len(tpl.Deliverables))
	}

	// Every item is now in_progress: the executor accepted the tasks but the
	// work never came back. Re-entering must dispatch all of them again.
	outcomes, err := w.StartPhase(context.Background(), project, 1)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if len(outcomes) != len(tpl.Deliverables) {
		t.Fatalf("second start outcomes=%d want %d (stuck items re-dispatched)", len(outcomes), len(tpl.Deliverables))
	}
	if len(dispatcher.calls) != 2*firstCalls {
		t.Fatalf("dispatch calls=%d want %d", len(dispatcher.calls), 2*firstCalls)
	}
	items, _ := store.ListDeliverablesByPhase(context.Background(), store.Phases[0].ID, nil)
	if len(items) != len(tpl.Deliverables) {
		t.Fatalf("deliverables=%d want %d (no duplicates)", len(items), len(tpl.Deliverables))
	}
}

func TestStartPhase_SkipsItemsAlreadyInReview(t *testing.T) {
	store := memoryrepo.New()
	project := newTestProject(store)
	dispatcher := &stubDispatcher{}
	w := &Worker{Repo: store, Executor: dispatcher}
	if err := w.SeedPhases(context.Background(), project.ID); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := w.ActivatePhase(context.Background(), project, 1); err != nil {
		t.Fatalf("activate: %v", err)
	}
	ph, _ := store.GetPhase(context.Background(), project.ID, 1)
	items, _ := store.ListDeliverablesByPhase(context.Background(), ph.ID, nil)
	if len(items) < 2 {
		t.Fatalf("checklist=%d want >=2", len(items))
	}
	// One item already made it to review; it must not be re-dispatched.
	_ = store.UpdateDeliverableStatus(context.Background(), items[0].ID, "review")

	outcomes, err := w.StartPhase(context.Background(), project, 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(outcomes) != len(items)-1 {
		t.Fatalf("outcomes=%d want %d", len(outcomes), len(items)-1)
	}
	for _, call := range dispatcher.calls {
		if call.DeliverableID == items[0].ID {
			t.Fatalf("item in review was re-dispatched")
		}
	}
	d, _ := store.GetDeliverableByID(context.Background(), items[0].ID)
	if d.Status != "review" {
		t.Fatalf("status=%q want review untouched", d.Status)
	}
}

func TestCheckPhaseCompletion_Invariant(t *testing.T) {
	store := memoryrepo.New()
	project := newTestProject(store)
	w := &Worker{Repo: store}
	phaseID := uuid.NewString()
	_ = store.InsertPhases(context.Background(), []models.Phase{{
		ID: phaseID, ProjectID: project.ID, PhaseNumber: 1, Name: "Research & Validation", Status: "active",
	}})
	for i := 0; i < 3; i++ {
		d := &models.Deliverable{
			ID:        uuid.NewString(),
			ProjectID: project.ID,
			PhaseID:   phaseID,
			Type:      fmt.Sprintf("item_%d", i),
			Name:      fmt.Sprintf("Item %d", i),
			Status:    "review",
		}
		_ = store.InsertDeliverable(context.Background(), d)
	}
	// Two fully approved, one only ceo-approved.
	items, _ := store.ListDeliverablesByPhase(context.Background(), phaseID, nil)
	_ = store.SetDeliverableApproval(context.Background(), items[0].ID, "ceo", true)
	_ = store.SetDeliverableApproval(context.Background(), items[0].ID, "user", true)
	_ = store.SetDeliverableApproval(context.Background(), items[1].ID, "ceo", true)
	_ = store.SetDeliverableApproval(context.Background(), items[1].ID, "user", true)
	_ = store.SetDeliverableApproval(context.Background(), items[2].ID, "ceo", true)

	report, err := w.CheckPhaseCompletion(context.Background(), phaseID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if report.Complete {
		t.Fatalf("complete=true with a half-approved deliverable")
	}
	if report.ApprovedDeliverables != 2 {
		t.Fatalf("approved=%d want 2", report.ApprovedDeliverables)
	}

	_ = store.SetDeliverableApproval(context.Background(), items[2].ID, "user", true)
	report, err = w.CheckPhaseCompletion(context.Background(), phaseID)
	if err != nil {
		t.Fatalf("recheck: %v", err)
	}
	if !report.Complete || report.ApprovedDeliverables != 3 {
		t.Fatalf("complete=%v approved=%d want true/3", report.Complete, report.ApprovedDeliverables)
	}
}

func TestAdvanceToNextPhase_ActivatesAndMaterializes(t *testing.T) {
	store := memoryrepo.New()
	project := newTestProject(store)
	w := &Worker{Repo: store, Executor: &stubDispatcher{}, AdvanceCreatesChecklist: true}
	if err := w.SeedPhases(context.Background(), project.ID); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := w.ActivatePhase(context.Background(), project, 1); err != nil {
		t.Fatalf("activate: %v", err)
	}

	result, err := w.AdvanceToNextPhase(context.Background(), project, 1)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if result.ProjectComplete {
		t.Fatalf("project complete after phase 1")
	}
	if result.NextPhaseNumber != 2 {
		t.Fatalf("next=%d want 2", result.NextPhaseNumber)
	}
	prev, _ := store.GetPhase(context.Background(), project.ID, 1)
	if prev.Status != "completed" || prev.CompletedAt == nil {
		t.Fatalf("phase 1 status=%q completedAt=%v", prev.Status, prev.CompletedAt)
	}
	next, _ := store.GetPhase(context.Background(), project.ID, 2)
	if next.Status != "active" || next.StartedAt == nil {
		t.Fatalf("phase 2 status=%q startedAt=%v", next.Status, next.StartedAt)
	}
	items, _ := store.ListDeliverablesByPhase(context.Background(), next.ID, nil)
	if len(items) != len(TemplateForPhase(2).Deliverables) {
		t.Fatalf("next checklist=%d want %d", len(items), len(TemplateForPhase(2).Deliverables))
	}
	updated, _ := store.GetProjectByID(context.Background(), project.ID)
	if updated.CurrentPhase != 2 {
		t.Fatalf("project cursor=%d want 2", updated.CurrentPhase)
	}
}

func TestAdvanceToNextPhase_TerminalState(t *testing.T) {
	store := memoryrepo.New()
	project := newTestProject(store)
	w := &Worker{Repo: store}
	last := TotalPhases()
	_ = store.InsertPhases(context.Background(), []models.Phase{{
		ID: uuid.NewString(), ProjectID: project.ID, PhaseNumber: last, Name: "Operations & Trading", Status: "active",
		StartedAt: timePtr(time.Now().UTC()),
	}})

	result, err := w.AdvanceToNextPhase(context.Background(), project, last)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !result.ProjectComplete {
		t.Fatalf("expected project-complete past phase %d", last)
	}
	updated, _ := store.GetProjectByID(context.Background(), project.ID)
	if updated.Status != "completed" {
		t.Fatalf("project status=%q want completed", updated.Status)
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
