package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"venture/internal/client/broker"
	"venture/internal/models"
	"venture/internal/service"
)

// runStrategies walks every active strategy for the project. Each strategy is
// isolated: an exception in one is logged with status failed and the rest
// still run. Returns how many strategies actually executed this tick.
func (l *Loop) runStrategies(ctx context.Context, project *models.Project) (int, error) {
	strategies, err := l.Repo.ListStrategiesByProject(ctx, project.ID, true)
	if err != nil {
		return 0, err
	}
	executed := 0
	var lastErr error
	for _, strategy := range strategies {
		ran, err := l.runStrategy(ctx, project, strategy)
		if err != nil {
			lastErr = err
			if l.Logger != nil {
				l.Logger.Warn("strategy run failed",
					zap.String("project_id", project.ID),
					zap.String("strategy_id", strategy.ID),
					zap.String("strategy_type", strategy.StrategyType),
					zap.Error(err))
			}
			if l.Activity != nil {
				l.Activity.Record(ctx, service.ActivityEntry{
					ProjectID: project.ID,
					AgentID:   "trading",
					AgentName: "Trading Loop",
					Action:    fmt.Sprintf("Strategy %s (%s) failed", strategy.Name, strategy.StrategyType),
					Status:    "failed",
					Metadata:  map[string]any{"strategy_id": strategy.ID, "error": err.Error()},
				})
			}
			continue
		}
		if ran {
			executed++
		}
	}
	return executed, lastErr
}

func (l *Loop) runStrategy(ctx context.Context, project *models.Project, strategy models.TradingStrategy) (bool, error) {
	switch strategy.StrategyType {
	case "dca":
		return l.runDCA(ctx, project, strategy)
	case "momentum":
		return l.runMomentum(ctx, project, strategy)
	case "grid":
		// Grid rides the same interval gate as DCA but alternates sides
		// around the last fill; not yet wired to a signal source.
		return false, nil
	default:
		return false, fmt.Errorf("unknown strategy type: %s", strategy.StrategyType)
	}
}

// runDCA fires at most once per interval. The last_executed_at stamp is
// claimed through a conditional update before the trade is attempted, so two
// overlapping ticks cannot double-fire and a failed trade still consumes the
// interval slot.
func (l *Loop) runDCA(ctx context.Context, project *models.Project, strategy models.TradingStrategy) (bool, error) {
	interval := time.Duration(strategy.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	now := time.Now().UTC()
	if strategy.LastExecutedAt != nil && now.Sub(*strategy.LastExecutedAt) < interval {
		return false, nil
	}
	stamped, err := l.Repo.MarkStrategyExecuted(ctx, strategy.ID, strategy.LastExecutedAt, now)
	if err != nil {
		return false, err
	}
	if !stamped {
		return false, nil
	}
	if err := l.ExecuteDCA(ctx, project, &strategy); err != nil {
		return true, err
	}
	return true, nil
}

// ExecuteDCA is the shared execution contract used by the loop and by the
// manual API: quote the symbol, buy amount/price worth. Paper mode records a
// zero-pnl fill; live mode goes through the broker with no retry on failure.
func (l *Loop) ExecuteDCA(ctx context.Context, project *models.Project, strategy *models.TradingStrategy) error {
	if l == nil || l.Repo == nil {
		return fmt.Errorf("trading loop is not configured")
	}
	if l.Broker == nil {
		return fmt.Errorf("broker is not configured")
	}
	if strategy == nil {
		return fmt.Errorf("strategy is required")
	}
	if strategy.AmountUSD.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("strategy amount must be positive")
	}
	price, err := l.Broker.GetQuote(ctx, strategy.Symbol)
	if err != nil {
		return err
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("non-positive quote for %s", strategy.Symbol)
	}
	quantity := strategy.AmountUSD.Div(price)
	now := time.Now().UTC()

	mode := strategy.Mode
	if mode == "" {
		mode = project.Mode
	}
	fillPrice := price
	if mode == "live" && l.liveOrdersEnabled(ctx) {
		order, err := l.Broker.CreateOrder(ctx, broker.CreateOrderRequest{
			Symbol:    strategy.Symbol,
			Side:      "buy",
			OrderType: "market",
			Quantity:  quantity,
			Mode:      mode,
		})
		if err != nil {
			return err
		}
		if order != nil && order.AvgPrice.GreaterThan(decimal.Zero) {
			fillPrice = order.AvgPrice
		}
	} else {
		mode = "paper"
	}

	strategyID := strategy.ID
	execution := &models.TradingExecution{
		ProjectID:   project.ID,
		StrategyID:  &strategyID,
		Symbol:      strategy.Symbol,
		Side:        "buy",
		Quantity:    quantity,
		Price:       fillPrice,
		RealizedPnL: decimal.Zero,
		Mode:        mode,
		Source:      "dca",
		ExecutedAt:  now,
	}
	if err := l.Repo.InsertExecution(ctx, execution); err != nil {
		return err
	}
	if err := l.Repo.IncrementStrategyTrades(ctx, strategy.ID); err != nil {
		return err
	}
	if l.Activity != nil {
		l.Activity.Record(ctx, service.ActivityEntry{
			ProjectID: project.ID,
			AgentID:   "trading",
			AgentName: "Trading Loop",
			Action:    fmt.Sprintf("DCA buy %s %s @ %s (%s)", quantity.StringFixed(6), strategy.Symbol, fillPrice.String(), mode),
			Status:    "completed",
			Metadata: map[string]any{
				"strategy_id": strategy.ID,
				"quantity":    quantity.String(),
				"price":       fillPrice.String(),
				"mode":        mode,
			},
		})
	}
	if l.Notifier != nil {
		l.Notifier.Notify(ctx, project.OwnerUserID, project.ID, service.NotifyCategoryTrading,
			"DCA executed: "+strategy.Symbol,
			fmt.Sprintf("Bought %s %s at %s (%s).", quantity.StringFixed(6), strategy.Symbol, fillPrice.String(), mode))
	}
	return nil
}

func (l *Loop) liveOrdersEnabled(ctx context.Context) bool {
	if l.Flags == nil {
		return false
	}
	return l.Flags.IsEnabled(ctx, service.FeatureLiveOrders, false)
}
