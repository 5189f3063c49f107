package phase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"venture/internal/models"
	memoryrepo "venture/internal/repository/memory"
)

func seedReviewDeliverable(store *memoryrepo.Store, project *models.Project) models.Deliverable {
	phaseID := uuid.NewString()
	_ = store.InsertPhases(context.Background(), []models.Phase{{
		ID: phaseID, ProjectID: project.ID, PhaseNumber: 1, Name: "Research & Validation", Status: "active",
	}})
	d := &models.Deliverable{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		PhaseID:   phaseID,
		Type:      "market_research",
		Name:      "Market Research Report",
		Status:    "review",
		AgentID:   "atlas",
		AgentName: "Atlas",
		Content:   []byte(`{"summary":"looks viable"}`),
	}
	_ = store.InsertDeliverable(context.Background(), d)
	return *d
}

func TestGate_ApproveEitherOrder(t *testing.T) {
	store := memoryrepo.New()
	project := newTestProject(store)
	d := seedReviewDeliverable(store, project)
	g := &Gate{Repo: store}

	item, err := g.Approve(context.Background(), d.ID, PartyUser)
	if err != nil {
		t.Fatalf("user approve: %v", err)
	}
	if item.CEOApproved || !item.UserApproved {
		t.Fatalf("flags ceo=%v user=%v after user approval", item.CEOApproved, item.UserApproved)
	}
	if DeliverableState(*item) == StateApproved {
		t.Fatalf("approved with a single flag")
	}

	item, err = g.Approve(context.Background(), d.ID, PartyCEO)
	if err != nil {
		t.Fatalf("ceo approve: %v", err)
	}
	if DeliverableState(*item) != StateApproved {
		t.Fatalf("state=%q want approved", DeliverableState(*item))
	}
}

func TestGate_RejectUnknownParty(t *testing.T) {
	store := memoryrepo.New()
	project := newTestProject(store)
	d := seedReviewDeliverable(store, project)
	g := &Gate{Repo: store}
	if _, err := g.Approve(context.Background(), d.ID, "board"); err == nil {
		t.Fatalf("expected error for unknown party")
	}
}

func TestGate_RequestRevisionClearsFlagsAndAppendsFeedback(t *testing.T) {
	store := memoryrepo.New()
	project := newTestProject(store)
	d := seedReviewDeliverable(store, project)
	g := &Gate{Repo: store}

	if _, err := g.Approve(context.Background(), d.ID, PartyCEO); err != nil {
		t.Fatalf("approve: %v", err)
	}
	item, err := g.RequestRevision(context.Background(), d.ID, PartyUser, "needs competitor pricing")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if item.Status != "revision_requested" {
		t.Fatalf("status=%q want revision_requested", item.Status)
	}
	if item.CEOApproved || item.UserApproved {
		t.Fatalf("approval flags survived a rejection")
	}
	var history []FeedbackEntry
	if err := json.Unmarshal(item.Feedback, &history); err != nil {
		t.Fatalf("feedback decode: %v", err)
	}
	if len(history) != 1 || history[0].Text != "needs competitor pricing" || history[0].Party != PartyUser {
		t.Fatalf("history=%+v", history)
	}

	// A second rejection appends, never replaces.
	item, err = g.RequestRevision(context.Background(), d.ID, PartyCEO, "tighten the TAM estimate")
	if err != nil {
		t.Fatalf("second reject: %v", err)
	}
	history = nil
	if err := json.Unmarshal(item.Feedback, &history); err != nil {
		t.Fatalf("feedback decode: %v", err)
	}
	if len(history) != 2 || history[1].Party != PartyCEO {
		t.Fatalf("history=%+v want 2 entries", history)
	}
}

func TestGate_RegenerateCarriesFeedback(t *testing.T) {
	store := memoryrepo.New()
	project := newTestProject(store)
	d := seedReviewDeliverable(store, project)
	dispatcher := &stubDispatcher{}
	g := &Gate{Repo: store, Executor: dispatcher}

	if _, err := g.RequestRevision(context.Background(), d.ID, PartyUser, "wrong market"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := g.Regenerate(context.Background(), project, d.ID); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if len(dispatcher.calls) != 1 {
		t.Fatalf("dispatch calls=%d want 1", len(dispatcher.calls))
	}
	req := dispatcher.calls[0]
	if req.DeliverableID != d.ID || req.TaskType != d.Type || req.PhaseNumber != 1 {
		t.Fatalf("request=%+v", req)
	}
	if len(req.InputData) == 0 {
		t.Fatalf("regeneration request lacks feedback context")
	}
	item, _ := store.GetDeliverableByID(context.Background(), d.ID)
	if item.Status != "in_progress" {
		t.Fatalf("status=%q want in_progress", item.Status)
	}
}
