package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"venture/internal/client/broker"
	"venture/internal/models"
	"venture/internal/service"
)

const momentumLookback = 20

// runMomentum evaluates the signal every tick with no interval gate. The
// stamp is written after the signal check; the trade counter only moves on a
// non-hold signal.
func (l *Loop) runMomentum(ctx context.Context, project *models.Project, strategy models.TradingStrategy) (bool, error) {
	if l.Broker == nil {
		return false, fmt.Errorf("broker is not configured")
	}
	bars, err := l.Broker.GetBars(ctx, strategy.Symbol, "1h", momentumLookback)
	if err != nil {
		return false, err
	}
	signal := momentumSignal(bars)

	now := time.Now().UTC()
	if _, err := l.Repo.MarkStrategyExecuted(ctx, strategy.ID, strategy.LastExecutedAt, now); err != nil {
		return false, err
	}
	if signal == "hold" {
		return false, nil
	}

	price := bars[len(bars)-1].Close
	if price.LessThanOrEqual(decimal.Zero) {
		return false, fmt.Errorf("non-positive close for %s", strategy.Symbol)
	}
	quantity := strategy.AmountUSD.Div(price)
	if quantity.LessThanOrEqual(decimal.Zero) {
		return false, fmt.Errorf("strategy amount must be positive")
	}

	mode := strategy.Mode
	if mode == "" {
		mode = project.Mode
	}
	fillPrice := price
	if mode == "live" && l.liveOrdersEnabled(ctx) {
		order, err := l.Broker.CreateOrder(ctx, broker.CreateOrderRequest{
			Symbol:    strategy.Symbol,
			Side:      signal,
			OrderType: "market",
			Quantity:  quantity,
			Mode:      mode,
		})
		if err != nil {
			return false, err
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
		Side:        signal,
		Quantity:    quantity,
		Price:       fillPrice,
		RealizedPnL: decimal.Zero,
		Mode:        mode,
		Source:      "momentum",
		ExecutedAt:  now,
	}
	if err := l.Repo.InsertExecution(ctx, execution); err != nil {
		return false, err
	}
	if err := l.Repo.IncrementStrategyTrades(ctx, strategy.ID); err != nil {
		return false, err
	}
	if l.Activity != nil {
		l.Activity.Record(ctx, service.ActivityEntry{
			ProjectID: project.ID,
			AgentID:   "trading",
			AgentName: "Trading Loop",
			Action:    fmt.Sprintf("Momentum %s %s %s @ %s (%s)", signal, quantity.StringFixed(6), strategy.Symbol, fillPrice.String(), mode),
			Status:    "completed",
			Metadata: map[string]any{
				"strategy_id": strategy.ID,
				"signal":      signal,
				"price":       fillPrice.String(),
				"mode":        mode,
			},
		})
	}
	return true, nil
}

// momentumSignal compares the latest close against the simple moving average
// of the lookback window: buy above, sell below, hold when flat or when there
// is not enough history.
func momentumSignal(bars []broker.Bar) string {
	if len(bars) < 2 {
		return "hold"
	}
	sum := decimal.Zero
	for _, b := range bars {
		sum = sum.Add(b.Close)
	}
	sma := sum.Div(decimal.NewFromInt(int64(len(bars))))
	last := bars[len(bars)-1].Close
	switch {
	case last.GreaterThan(sma):
		return "buy"
	case last.LessThan(sma):
		return "sell"
	default:
		return "hold"
	}
}
