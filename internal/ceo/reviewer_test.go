package ceo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"venture/internal/models"
	"venture/internal/phase"
	memoryrepo "venture/internal/repository/memory"
)

type stubLLM struct {
	replies map[string]string
	err     error
	calls   int
}

func (s *stubLLM) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	for needle, reply := range s.replies {
		if strings.Contains(prompt, needle) {
			return reply, nil
		}
	}
	return "APPROVE", nil
}

func seedReviewItem(store *memoryrepo.Store, name string) models.Deliverable {
	projectID := uuid.NewString()
	_ = store.InsertProject(context.Background(), &models.Project{
		ID: projectID, OwnerUserID: uuid.NewString(), Name: "Acme Studio", Mode: "paper", Status: "active",
	})
	phaseID := uuid.NewString()
	_ = store.InsertPhases(context.Background(), []models.Phase{{
		ID: phaseID, ProjectID: projectID, PhaseNumber: 1, Name: "Research & Validation", Status: "active",
	}})
	d := &models.Deliverable{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		PhaseID:   phaseID,
		Type:      "market_research",
		Name:      name,
		Status:    "review",
		Content:   []byte(`{"summary":"tam 40b"}`),
	}
	_ = store.InsertDeliverable(context.Background(), d)
	return *d
}

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		reply        string
		wantVerdict  string
		wantFeedback string
	}{
		{"APPROVE", "approve", ""},
		{"approve, ship it", "approve", ""},
		{"APPROVE\nextra commentary below", "approve", ""},
		{"REVISE: tighten the TAM estimate", "revise", "tighten the TAM estimate"},
		{"revise", "revise", "Needs revision."},
		{"  REVISE:   ", "revise", "Needs revision."},
		{"I cannot decide", "", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		verdict, feedback := parseVerdict(tc.reply)
		if verdict != tc.wantVerdict || feedback != tc.wantFeedback {
			t.Fatalf("reply=%q got (%q, %q) want (%q, %q)", tc.reply, verdict, feedback, tc.wantVerdict, tc.wantFeedback)
		}
	}
}

func TestScanOnce_AppliesVerdictsThroughGate(t *testing.T) {
	store := memoryrepo.New()
	approved := seedReviewItem(store, "Market Research Report")
	revised := seedReviewItem(store, "Competitor Teardown")
	llm := &stubLLM{replies: map[string]string{
		"Market Research Report": "APPROVE",
		"Competitor Teardown":    "REVISE: pricing section is missing two major rivals",
	}}
	r := &Reviewer{Repo: store, Gate: &phase.Gate{Repo: store}, LLM: llm}

	applied, err := r.ScanOnce(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if applied != 2 {
		t.Fatalf("applied=%d want 2", applied)
	}

	a, _ := store.GetDeliverableByID(context.Background(), approved.ID)
	if !a.CEOApproved || a.UserApproved {
		t.Fatalf("flags ceo=%v user=%v want ceo-only approval", a.CEOApproved, a.UserApproved)
	}
	if a.Status != "review" {
		t.Fatalf("status=%q want review until the user also approves", a.Status)
	}

	rv, _ := store.GetDeliverableByID(context.Background(), revised.ID)
	if rv.Status != "revision_requested" {
		t.Fatalf("status=%q want revision_requested", rv.Status)
	}
	var history []phase.FeedbackEntry
	if err := json.Unmarshal(rv.Feedback, &history); err != nil {
		t.Fatalf("feedback decode: %v", err)
	}
	if len(history) != 1 || history[0].Party != phase.PartyCEO {
		t.Fatalf("history=%+v want one ceo entry", history)
	}
	if history[0].Text != "pricing section is missing two major rivals" {
		t.Fatalf("feedback=%q", history[0].Text)
	}
}

func TestScanOnce_SkipsUnparseableAndKeepsGoing(t *testing.T) {
	store := memoryrepo.New()
	garbled := seedReviewItem(store, "Brand Guidelines")
	clean := seedReviewItem(store, "Logo Concepts")
	llm := &stubLLM{replies: map[string]string{
		"Brand Guidelines": "Well, it depends on the audience.",
		"Logo Concepts":    "APPROVE",
	}}
	r := &Reviewer{Repo: store, Gate: &phase.Gate{Repo: store}, LLM: llm}

	applied, err := r.ScanOnce(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if applied != 1 {
		t.Fatalf("applied=%d want 1", applied)
	}
	g, _ := store.GetDeliverableByID(context.Background(), garbled.ID)
	if g.CEOApproved || g.Status != "review" {
		t.Fatalf("garbled item mutated: approved=%v status=%q", g.CEOApproved, g.Status)
	}
	c, _ := store.GetDeliverableByID(context.Background(), clean.ID)
	if !c.CEOApproved {
		t.Fatalf("clean item not approved")
	}

	// The garbled item stays in the queue for the next scan.
	pending, _ := store.ListDeliverablesAwaitingCEO(context.Background(), 10)
	if len(pending) != 1 || pending[0].ID != garbled.ID {
		t.Fatalf("pending=%d want the garbled item only", len(pending))
	}
}

func TestScanOnce_LLMErrorLeavesItemAlone(t *testing.T) {
	store := memoryrepo.New()
	item := seedReviewItem(store, "Market Research Report")
	llm := &stubLLM{err: fmt.Errorf("rate limited")}
	r := &Reviewer{Repo: store, Gate: &phase.Gate{Repo: store}, LLM: llm}

	applied, err := r.ScanOnce(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if applied != 0 {
		t.Fatalf("applied=%d want 0", applied)
	}
	d, _ := store.GetDeliverableByID(context.Background(), item.ID)
	if d.CEOApproved || d.Status != "review" {
		t.Fatalf("item mutated on llm failure")
	}
}
