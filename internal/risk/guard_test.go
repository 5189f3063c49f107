package risk

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"venture/internal/models"
	memoryrepo "venture/internal/repository/memory"
	"venture/internal/service"
)

func newGuardProject(store *memoryrepo.Store) *models.Project {
	project := &models.Project{
		ID:          uuid.NewString(),
		OwnerUserID: uuid.NewString(),
		Name:        "Acme Fund",
		Mode:        "paper",
		Status:      "active",
	}
	_ = store.InsertProject(context.Background(), project)
	return project
}

func TestGuard_AllowedCreatesDefaults(t *testing.T) {
	store := memoryrepo.New()
	project := newGuardProject(store)
	g := &Guard{Repo: store, DefaultMaxDrawdownPct: 15}

	allowed, err := g.Allowed(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("allowed: %v", err)
	}
	if !allowed {
		t.Fatalf("fresh project must be allowed")
	}
	rc, _ := store.GetRiskControls(context.Background(), project.ID)
	if rc == nil || rc.MaxDrawdownPct != 15 {
		t.Fatalf("controls=%+v want seeded max drawdown 15", rc)
	}
}

func TestGuard_DrawdownTripsExactlyOnce(t *testing.T) {
	store := memoryrepo.New()
	project := newGuardProject(store)
	activity := &service.ActivityService{Repo: store}
	g := &Guard{Repo: store, Activity: activity, DefaultMaxDrawdownPct: 20}

	// Establish the watermark.
	halted, err := g.CheckDrawdown(context.Background(), project, decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if halted {
		t.Fatalf("halted at the peak")
	}

	// 25% drawdown breaches the 20% threshold.
	halted, err = g.CheckDrawdown(context.Background(), project, decimal.NewFromInt(750))
	if err != nil {
		t.Fatalf("breach check: %v", err)
	}
	if !halted {
		t.Fatalf("expected halt on breach")
	}
	rc, _ := store.GetRiskControls(context.Background(), project.ID)
	if !rc.KillSwitchActive || rc.TrippedAt == nil {
		t.Fatalf("controls=%+v want tripped kill switch", rc)
	}

	trips := 0
	for _, a := range store.Activities {
		if a.Action == "KILL SWITCH AUTO-ACTIVATED" {
			trips++
		}
	}
	if trips != 1 {
		t.Fatalf("trip activities=%d want 1", trips)
	}

	// A second breach check halts but must not log a second trip.
	halted, err = g.CheckDrawdown(context.Background(), project, decimal.NewFromInt(700))
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if !halted {
		t.Fatalf("expected halt while tripped")
	}
	trips = 0
	for _, a := range store.Activities {
		if a.Action == "KILL SWITCH AUTO-ACTIVATED" {
			trips++
		}
	}
	if trips != 1 {
		t.Fatalf("trip activities=%d want exactly 1", trips)
	}
}

func TestGuard_NoAutomaticReset(t *testing.T) {
	store := memoryrepo.New()
	project := newGuardProject(store)
	g := &Guard{Repo: store, DefaultMaxDrawdownPct: 20}

	if _, err := g.CheckDrawdown(context.Background(), project, decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("peak: %v", err)
	}
	if _, err := g.CheckDrawdown(context.Background(), project, decimal.NewFromInt(500)); err != nil {
		t.Fatalf("breach: %v", err)
	}

	// Recovery above the threshold must not clear the switch.
	halted, err := g.CheckDrawdown(context.Background(), project, decimal.NewFromInt(990))
	if err != nil {
		t.Fatalf("recovery check: %v", err)
	}
	if !halted {
		t.Fatalf("kill switch auto-cleared on recovery")
	}

	if err := g.Clear(context.Background(), project); err != nil {
		t.Fatalf("clear: %v", err)
	}
	allowed, err := g.Allowed(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("allowed: %v", err)
	}
	if !allowed {
		t.Fatalf("manual clear did not restore trading")
	}
}
