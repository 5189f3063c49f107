// Package risk holds the per-project kill switch and drawdown guard.
package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"venture/internal/models"
	"venture/internal/repository"
	"venture/internal/service"
)

type Guard struct {
	Repo     repository.Repository
	Activity *service.ActivityService
	Notifier *service.Notifier
	Logger   *zap.Logger

	// DefaultMaxDrawdownPct seeds risk-control rows for projects that have
	// none yet.
	DefaultMaxDrawdownPct float64
}

// Allowed reports whether trading actions may run for the project. A missing
// risk-control row is created with defaults rather than treated as a block.
func (g *Guard) Allowed(ctx context.Context, projectID string) (bool, error) {
	rc, err := g.ensureControls(ctx, projectID)
	if err != nil {
		return false, err
	}
	return !rc.KillSwitchActive, nil
}

func (g *Guard) ensureControls(ctx context.Context, projectID string) (*models.RiskControls, error) {
	if g == nil || g.Repo == nil {
		return nil, fmt.Errorf("risk guard is not configured")
	}
	rc, err := g.Repo.GetRiskControls(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		return rc, nil
	}
	maxDD := g.DefaultMaxDrawdownPct
	if maxDD <= 0 {
		maxDD = 20
	}
	now := time.Now().UTC()
	rc = &models.RiskControls{
		ProjectID:      projectID,
		MaxDrawdownPct: maxDD,
		PeakEquity:     decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := g.Repo.UpsertRiskControls(ctx, rc); err != nil {
		return nil, err
	}
	return rc, nil
}

// CheckDrawdown advances the peak-equity watermark and trips the kill switch
// when drawdown from the peak reaches the configured threshold. The trip is a
// conditional update so a breach fires exactly once even under overlapping
// ticks; it reports whether trading must stop for the rest of this tick.
func (g *Guard) CheckDrawdown(ctx context.Context, project *models.Project, equity decimal.Decimal) (bool, error) {
	if g == nil || g.Repo == nil {
		return false, fmt.Errorf("risk guard is not configured")
	}
	if project == nil {
		return false, fmt.Errorf("project is required")
	}
	rc, err := g.ensureControls(ctx, project.ID)
	if err != nil {
		return false, err
	}
	if rc.KillSwitchActive {
		return true, nil
	}
	if err := g.Repo.UpdatePeakEquity(ctx, project.ID, equity); err != nil {
		return false, err
	}
	peak := rc.PeakEquity
	if equity.GreaterThan(peak) {
		peak = equity
	}
	if peak.LessThanOrEqual(decimal.Zero) {
		return false, nil
	}
	drawdownPct := peak.Sub(equity).Div(peak).Mul(decimal.NewFromInt(100))
	threshold := decimal.NewFromFloat(rc.MaxDrawdownPct)
	if drawdownPct.LessThan(threshold) {
		return false, nil
	}

	now := time.Now().UTC()
	tripped, err := g.Repo.ActivateKillSwitch(ctx, project.ID, now)
	if err != nil {
		return true, err
	}
	if tripped {
		if g.Logger != nil {
			g.Logger.Error("kill switch auto-activated",
				zap.String("project_id", project.ID),
				zap.String("equity", equity.String()),
				zap.String("peak_equity", peak.String()),
				zap.String("drawdown_pct", drawdownPct.StringFixed(2)))
		}
		if g.Activity != nil {
			g.Activity.Record(ctx, service.ActivityEntry{
				ProjectID: project.ID,
				AgentID:   "risk",
				AgentName: "Risk Guard",
				Action:    "KILL SWITCH AUTO-ACTIVATED",
				Status:    "failed",
				Metadata: map[string]any{
					"equity":       equity.String(),
					"peak_equity":  peak.String(),
					"drawdown_pct": drawdownPct.StringFixed(2),
					"max_drawdown": rc.MaxDrawdownPct,
				},
			})
		}
		if g.Notifier != nil {
			g.Notifier.Notify(ctx, project.OwnerUserID, project.ID, service.NotifyCategoryRisk,
				"Kill switch activated",
				fmt.Sprintf("%s hit %s%% drawdown; autonomous trading stopped until manually cleared.",
					project.Name, drawdownPct.StringFixed(1)))
		}
	}
	return true, nil
}

// Clear is the manual reset. There is no automatic path back.
func (g *Guard) Clear(ctx context.Context, project *models.Project) error {
	if g == nil || g.Repo == nil {
		return fmt.Errorf("risk guard is not configured")
	}
	if project == nil {
		return fmt.Errorf("project is required")
	}
	if err := g.Repo.ClearKillSwitch(ctx, project.ID); err != nil {
		return err
	}
	if g.Activity != nil {
		g.Activity.Record(ctx, service.ActivityEntry{
			ProjectID: project.ID,
			AgentID:   "risk",
			AgentName: "Risk Guard",
			Action:    "Kill switch cleared",
			Status:    "completed",
		})
	}
	return nil
}
