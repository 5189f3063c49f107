package trading

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"venture/internal/client/gateway"
	"venture/internal/models"
	"venture/internal/service"
)

// evaluateAlerts prices every active alert and fires the triggered ones.
// Firing is one-shot: the alert is deactivated through a conditional update
// before the auto-action order is attempted, so an order failure never
// re-arms it. Per-alert errors are logged and do not stop the rest.
func (l *Loop) evaluateAlerts(ctx context.Context, project *models.Project) (int, error) {
	alerts, err := l.Repo.ListActiveAlerts(ctx, project.ID)
	if err != nil {
		return 0, err
	}
	triggered := 0
	var lastErr error
	for _, alert := range alerts {
		fired, err := l.evaluateAlert(ctx, project, alert)
		if fired {
			// The fire already happened even when the auto-action order
			// afterwards failed.
			triggered++
		}
		if err != nil {
			lastErr = err
			if l.Logger != nil {
				l.Logger.Warn("alert evaluation failed",
					zap.String("project_id", project.ID),
					zap.String("alert_id", alert.ID),
					zap.Error(err))
			}
		}
	}
	return triggered, lastErr
}

func (l *Loop) evaluateAlert(ctx context.Context, project *models.Project, alert models.Alert) (bool, error) {
	if l.Broker == nil {
		return false, nil
	}
	price, err := l.Broker.GetQuote(ctx, alert.Symbol)
	if err != nil {
		return false, err
	}
	hit := conditionMet(alert, price)
	if err := l.Repo.UpdateAlertEvalPrice(ctx, alert.ID, price); err != nil && l.Logger != nil {
		l.Logger.Warn("alert eval price update failed", zap.String("alert_id", alert.ID), zap.Error(err))
	}
	if !hit {
		return false, nil
	}

	now := time.Now().UTC()
	fired, err := l.Repo.DeactivateAlert(ctx, alert.ID, now)
	if err != nil {
		return false, err
	}
	if !fired {
		// Another tick already fired this alert.
		return false, nil
	}

	if l.Activity != nil {
		l.Activity.Record(ctx, service.ActivityEntry{
			ProjectID: project.ID,
			AgentID:   "trading",
			AgentName: "Trading Loop",
			Action:    fmt.Sprintf("Alert triggered: %s %s %s at %s", alert.Symbol, alert.Condition, alert.TriggerPrice.String(), price.String()),
			Status:    "completed",
			Metadata: map[string]any{
				"alert_id": alert.ID,
				"price":    price.String(),
			},
		})
	}
	if l.Notifier != nil {
		l.Notifier.Notify(ctx, alert.UserID, project.ID, service.NotifyCategoryTrading,
			"Price alert: "+alert.Symbol,
			fmt.Sprintf("%s is at %s (trigger: %s %s).", alert.Symbol, price.String(), alert.Condition, alert.TriggerPrice.String()))
	}

	if strings.TrimSpace(alert.AutoAction) != "" {
		if err := l.submitAutoAction(ctx, project, alert); err != nil {
			// The alert stays deactivated: at-most-once fire regardless of
			// order outcome.
			if l.Activity != nil {
				l.Activity.Record(ctx, service.ActivityEntry{
					ProjectID: project.ID,
					AgentID:   "trading",
					AgentName: "Trading Loop",
					Action:    "Alert auto-action failed: " + alert.Symbol,
					Status:    "failed",
					Metadata:  map[string]any{"alert_id": alert.ID, "error": err.Error()},
				})
			}
			return true, err
		}
	}
	return true, nil
}

func (l *Loop) submitAutoAction(ctx context.Context, project *models.Project, alert models.Alert) error {
	if l.Gateway == nil {
		return fmt.Errorf("order gateway is not configured")
	}
	side, qty, err := parseAutoAction(alert.AutoAction)
	if err != nil {
		return err
	}
	_, err = l.Gateway.SubmitOrder(ctx, gateway.SubmitOrderRequest{
		ProjectID:      project.ID,
		InternalUserID: alert.UserID,
		Symbol:         alert.Symbol,
		Side:           side,
		OrderType:      "market",
		Quantity:       qty,
		Source:         "alert",
	})
	return err
}

// conditionMet evaluates above/below against the current price and
// crossover/crossunder against the previous tick's price. Crossings need a
// prior observation; the first evaluation only records the baseline.
func conditionMet(alert models.Alert, price decimal.Decimal) bool {
	switch strings.ToLower(strings.TrimSpace(alert.Condition)) {
	case "above":
		return price.GreaterThanOrEqual(alert.TriggerPrice)
	case "below":
		return price.LessThanOrEqual(alert.TriggerPrice)
	case "crossover":
		return alert.LastEvalPrice != nil &&
			alert.LastEvalPrice.LessThan(alert.TriggerPrice) &&
			price.GreaterThanOrEqual(alert.TriggerPrice)
	case "crossunder":
		return alert.LastEvalPrice != nil &&
			alert.LastEvalPrice.GreaterThan(alert.TriggerPrice) &&
			price.LessThanOrEqual(alert.TriggerPrice)
	default:
		return false
	}
}

// parseAutoAction splits "BUY:<qty>" / "SELL:<qty>".
func parseAutoAction(action string) (string, decimal.Decimal, error) {
	parts := strings.SplitN(strings.TrimSpace(action), ":", 2)
	if len(parts) != 2 {
		return "", decimal.Zero, fmt.Errorf("malformed auto action: %s", action)
	}
	side := strings.ToLower(strings.TrimSpace(parts[0]))
	if side != "buy" && side != "sell" {
		return "", decimal.Zero, fmt.Errorf("unknown auto action side: %s", parts[0])
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("malformed auto action quantity: %s", parts[1])
	}
	if qty.LessThanOrEqual(decimal.Zero) {
		return "", decimal.Zero, fmt.Errorf("auto action quantity must be positive")
	}
	return side, qty, nil
}
