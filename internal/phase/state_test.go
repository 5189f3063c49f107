package phase

import (
	"testing"

	"venture/internal/models"
)

func TestDeliverableState_BothFlagsWin(t *testing.T) {
	d := models.Deliverable{Status: "review", CEOApproved: true, UserApproved: true}
	if st := DeliverableState(d); st != StateApproved {
		t.Fatalf("state=%q want approved", st)
	}
}

func TestDeliverableState_SingleFlagIsNotApproved(t *testing.T) {
	d := models.Deliverable{Status: "review", CEOApproved: true}
	if st := DeliverableState(d); st != StateInReview {
		t.Fatalf("state=%q want review", st)
	}
	d = models.Deliverable{Status: "review", UserApproved: true}
	if st := DeliverableState(d); st != StateInReview {
		t.Fatalf("state=%q want review", st)
	}
}

func TestDeliverableState_RevisionRequested(t *testing.T) {
	d := models.Deliverable{Status: "revision_requested"}
	if st := DeliverableState(d); st != StateRevisionRequested {
		t.Fatalf("state=%q want revision_requested", st)
	}
}

func TestDeliverableState_StatusFallback(t *testing.T) {
	cases := []struct {
		status string
		want   State
	}{
		{"pending", StatePending},
		{"", StatePending},
		{"in_progress", StateInProgress},
		{"review", StateInReview},
	}
	for _, tc := range cases {
		if st := DeliverableState(models.Deliverable{Status: tc.status}); st != tc.want {
			t.Fatalf("status=%q state=%q want %q", tc.status, st, tc.want)
		}
	}
}
