package ceo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"venture/internal/models"
	"venture/internal/phase"
	"venture/internal/repository"
	"venture/internal/service"
)

const reviewSystemPrompt = `You are the AI CEO of an autonomous venture studio.
You review deliverables produced by specialist agents before they reach the human founder.
Reply with exactly one line starting with APPROVE or REVISE.
For REVISE, follow with a colon and one or two concrete sentences of feedback.`

// Reviewer periodically scans deliverables in review that lack the CEO flag
// and applies a verdict through the same gate the HTTP API uses. Per-item
// failures are logged and skipped; the item is retried on the next scan.
type Reviewer struct {
	Repo   repository.Repository
	Gate   *phase.Gate
	LLM    LLM
	Flags  *service.SystemSettingsService
	Logger *zap.Logger

	ScanInterval time.Duration
	BatchSize    int
}

func (r *Reviewer) Run(ctx context.Context) {
	if r == nil || r.Repo == nil {
		return
	}
	interval := r.ScanInterval
	if interval <= 0 {
		interval = 45 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.Flags != nil && !r.Flags.IsEnabled(ctx, service.FeatureCEOReview, false) {
				continue
			}
			if _, err := r.ScanOnce(ctx); err != nil && r.Logger != nil {
				r.Logger.Error("ceo review scan failed", zap.Error(err))
			}
		}
	}
}

// ScanOnce reviews one batch and returns how many verdicts were applied.
func (r *Reviewer) ScanOnce(ctx context.Context) (int, error) {
	if r == nil || r.Repo == nil || r.Gate == nil {
		return 0, fmt.Errorf("reviewer is not configured")
	}
	if r.LLM == nil {
		return 0, fmt.Errorf("llm client is not configured")
	}
	batch := r.BatchSize
	if batch <= 0 {
		batch = 10
	}
	items, err := r.Repo.ListDeliverablesAwaitingCEO(ctx, batch)
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, d := range items {
		if err := r.reviewOne(ctx, d); err != nil {
			if r.Logger != nil {
				r.Logger.Warn("ceo review failed",
					zap.String("deliverable_id", d.ID),
					zap.Error(err))
			}
			continue
		}
		applied++
	}
	return applied, nil
}

func (r *Reviewer) reviewOne(ctx context.Context, d models.Deliverable) error {
	prompt := buildReviewPrompt(d)
	reply, err := r.LLM.CompleteWithSystem(ctx, reviewSystemPrompt, prompt)
	if err != nil {
		return err
	}
	verdict, feedback := parseVerdict(reply)
	switch verdict {
	case "approve":
		_, err = r.Gate.Approve(ctx, d.ID, phase.PartyCEO)
		return err
	case "revise":
		_, err = r.Gate.RequestRevision(ctx, d.ID, phase.PartyCEO, feedback)
		return err
	default:
		return fmt.Errorf("unparseable verdict: %q", reply)
	}
}

func buildReviewPrompt(d models.Deliverable) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Deliverable: %s (%s)\n", d.Name, d.Type)
	if d.Description != "" {
		fmt.Fprintf(&b, "Brief: %s\n", d.Description)
	}
	if len(d.Content) > 0 {
		fmt.Fprintf(&b, "Content:\n%s\n", string(d.Content))
	} else {
		b.WriteString("Content: (empty)\n")
	}
	if len(d.Feedback) > 0 {
		fmt.Fprintf(&b, "Prior feedback history:\n%s\n", string(d.Feedback))
	}
	return b.String()
}

// parseVerdict accepts "APPROVE", "REVISE: ..." and minor decoration around
// either keyword. Anything else is unparseable and the item is left alone.
func parseVerdict(reply string) (string, string) {
	line := strings.TrimSpace(reply)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	upper := strings.ToUpper(line)
	switch {
	case strings.HasPrefix(upper, "APPROVE"):
		return "approve", ""
	case strings.HasPrefix(upper, "REVISE"):
		feedback := line[len("REVISE"):]
		feedback = strings.TrimSpace(strings.TrimPrefix(feedback, ":"))
		if feedback == "" {
			feedback = "Needs revision."
		}
		return "revise", feedback
	default:
		return "", ""
	}
}
