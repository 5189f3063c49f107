package phase

import "venture/internal/models"

// State is the derived per-deliverable state. "approved" is never stored: it
// is computed from the two sign-off flags so the rule lives in exactly one
// place.
type State string

const (
	StatePending           State = "pending"
	StateInProgress        State = "in_progress"
	StateInReview          State = "review"
	StateApproved          State = "approved"
	StateRevisionRequested State = "revision_requested"
)

// DeliverableState derives the effective state from the stored status string
// plus the approval flags. Both flags set wins over whatever the status
// column says; revision_requested wins over a stale review status.
func DeliverableState(d models.Deliverable) State {
	if d.CEOApproved && d.UserApproved {
		return StateApproved
	}
	switch d.Status {
	case "revision_requested":
		return StateRevisionRequested
	case "review":
		return StateInReview
	case "in_progress":
		return StateInProgress
	default:
		return StatePending
	}
}

// IsApproved reports whether both parties have signed off.
func IsApproved(d models.Deliverable) bool {
	return d.CEOApproved && d.UserApproved
}
