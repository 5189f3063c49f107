// Package trading is the autonomous control loop: one tick advances every
// autonomous project through kill-switch check, portfolio sync, alert
// evaluation and strategy execution, in that order.
package trading

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"venture/internal/client/broker"
	"venture/internal/client/gateway"
	"venture/internal/models"
	"venture/internal/repository"
	"venture/internal/risk"
	"venture/internal/service"
)

// BrokerClient is the slice of the broker adapter the loop consumes.
type BrokerClient interface {
	GetAccount(ctx context.Context, mode string) (*broker.Account, error)
	GetPositions(ctx context.Context, mode string) ([]broker.Position, error)
	GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error)
	CreateOrder(ctx context.Context, req broker.CreateOrderRequest) (*broker.Order, error)
	GetBars(ctx context.Context, symbol, timeframe string, limit int) ([]broker.Bar, error)
}

// GatewayClient submits alert auto-action orders.
type GatewayClient interface {
	SubmitOrder(ctx context.Context, req gateway.SubmitOrderRequest) (*gateway.SubmitOrderResponse, error)
}

type Loop struct {
	Repo     repository.Repository
	Broker   BrokerClient
	Gateway  GatewayClient
	Guard    *risk.Guard
	Activity *service.ActivityService
	Notifier *service.Notifier
	Flags    *service.SystemSettingsService
	Logger   *zap.Logger

	TickInterval       time.Duration
	ProjectConcurrency int
	MaxProjects        int
}

// ProjectResult is the per-project outcome of one tick. Errors are recorded
// here, never propagated out of the batch.
type ProjectResult struct {
	ProjectID          string `json:"project_id"`
	Skipped            bool   `json:"skipped"`
	SkipReason         string `json:"skip_reason,omitempty"`
	AlertsTriggered    int    `json:"alerts_triggered"`
	StrategiesExecuted int    `json:"strategies_executed"`
	Error              string `json:"error,omitempty"`
}

type TickResult struct {
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Projects   []ProjectResult `json:"projects"`
}

// Run ticks until the context is cancelled.
func (l *Loop) Run(ctx context.Context) {
	if l == nil || l.Repo == nil {
		return
	}
	interval := l.TickInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if l.Flags != nil && !l.Flags.IsEnabled(ctx, service.FeatureTradingLoop, true) {
				continue
			}
			if _, err := l.TickOnce(ctx); err != nil && l.Logger != nil {
				l.Logger.Error("trading tick failed", zap.Error(err))
			}
		}
	}
}

// TickOnce runs one batch over all autonomous projects. Projects are
// processed with bounded fan-out; within one project the step order is
// strict. Per-project failures land in the result, not in the error return.
func (l *Loop) TickOnce(ctx context.Context) (*TickResult, error) {
	if l == nil || l.Repo == nil {
		return nil, fmt.Errorf("trading loop is not configured")
	}
	result := &TickResult{StartedAt: time.Now().UTC()}
	projects, err := l.Repo.ListAutonomousProjects(ctx, l.MaxProjects)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		result.FinishedAt = time.Now().UTC()
		return result, nil
	}

	concurrency := l.ProjectConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range projects {
		project := projects[i]
		g.Go(func() error {
			pr := l.tickProject(gctx, &project)
			mu.Lock()
			result.Projects = append(result.Projects, pr)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	result.FinishedAt = time.Now().UTC()
	return result, nil
}

// tickProject runs the strict per-project sequence. Any step error is caught
// here; a tripped drawdown guard stops the whole project for this tick.
func (l *Loop) tickProject(ctx context.Context, project *models.Project) ProjectResult {
	pr := ProjectResult{ProjectID: project.ID}

	allowed, err := l.Guard.Allowed(ctx, project.ID)
	if err != nil {
		pr.Error = err.Error()
		l.logProjectErr(project.ID, "kill switch check failed", err)
		return pr
	}
	if !allowed {
		pr.Skipped = true
		pr.SkipReason = "kill_switch_active"
		return pr
	}

	halted, err := l.syncPortfolio(ctx, project)
	if err != nil {
		pr.Error = err.Error()
		l.logProjectErr(project.ID, "portfolio sync failed", err)
	}
	if halted {
		pr.Skipped = true
		pr.SkipReason = "drawdown_guard_tripped"
		return pr
	}

	if l.Flags == nil || l.Flags.IsEnabled(ctx, service.FeatureAlerts, true) {
		triggered, err := l.evaluateAlerts(ctx, project)
		pr.AlertsTriggered = triggered
		if err != nil {
			pr.Error = err.Error()
			l.logProjectErr(project.ID, "alert evaluation failed", err)
		}
	}

	if l.Flags == nil || l.Flags.IsEnabled(ctx, service.FeatureStrategies, true) {
		executed, err := l.runStrategies(ctx, project)
		pr.StrategiesExecuted = executed
		if err != nil {
			pr.Error = err.Error()
			l.logProjectErr(project.ID, "strategy execution failed", err)
		}
	}
	return pr
}

// syncPortfolio pulls account state from the broker, overwrites the single
// snapshot row and rolls the aggregates up to the project. It reports whether
// the drawdown guard halted the project.
func (l *Loop) syncPortfolio(ctx context.Context, project *models.Project) (bool, error) {
	if l.Broker == nil {
		return false, nil
	}
	account, err := l.Broker.GetAccount(ctx, project.Mode)
	if err != nil {
		return false, err
	}
	positions, err := l.Broker.GetPositions(ctx, project.Mode)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	var positionsJSON []byte
	if raw, err := json.Marshal(positions); err == nil {
		positionsJSON = raw
	}
	snap := &models.PortfolioSnapshot{
		ProjectID:     project.ID,
		Equity:        account.Equity,
		Cash:          account.Cash,
		DayPnL:        account.DayPnL,
		UnrealizedPnL: account.UnrealizedPnL,
		Positions:     positionsJSON,
		SyncedAt:      now,
	}
	if err := l.Repo.UpsertPortfolioSnapshot(ctx, snap); err != nil {
		return false, err
	}
	if err := l.Repo.UpdateProjectFinancials(ctx, project.ID, account.Equity, account.UnrealizedPnL.Add(account.DayPnL), now); err != nil {
		return false, err
	}

	halted, err := l.Guard.CheckDrawdown(ctx, project, account.Equity)
	if err != nil {
		return halted, err
	}
	return halted, nil
}

func (l *Loop) logProjectErr(projectID, msg string, err error) {
	if l.Logger != nil {
		l.Logger.Warn(msg, zap.String("project_id", projectID), zap.Error(err))
	}
}
