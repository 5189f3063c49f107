package trading

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"venture/internal/client/broker"
	"venture/internal/client/gateway"
	"venture/internal/models"
	"venture/internal/repository"
	memoryrepo "venture/internal/repository/memory"
	"venture/internal/risk"
)

type stubBroker struct {
	equity decimal.Decimal
	cash   decimal.Decimal
	quotes map[string]decimal.Decimal
	bars   map[string][]broker.Bar

	accountCalls int
	quoteCalls   int
	orders       []broker.CreateOrderRequest
	quoteErr     error
}

func (s *stubBroker) GetAccount(ctx context.Context, mode string) (*broker.Account, error) {
	s.accountCalls++
	return &broker.Account{Equity: s.equity, Cash: s.cash}, nil
}

func (s *stubBroker) GetPositions(ctx context.Context, mode string) ([]broker.Position, error) {
	return nil, nil
}

func (s *stubBroker) GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	s.quoteCalls++
	if s.quoteErr != nil {
		return decimal.Zero, s.quoteErr
	}
	price, ok := s.quotes[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("no quote for %s", symbol)
	}
	return price, nil
}

func (s *stubBroker) CreateOrder(ctx context.Context, req broker.CreateOrderRequest) (*broker.Order, error) {
	s.orders = append(s.orders, req)
	return &broker.Order{OrderID: uuid.NewString(), Status: "filled", Symbol: req.Symbol, Side: req.Side, Quantity: req.Quantity}, nil
}

func (s *stubBroker) GetBars(ctx context.Context, symbol, timeframe string, limit int) ([]broker.Bar, error) {
	return s.bars[symbol], nil
}

type stubGateway struct {
	orders []gateway.SubmitOrderRequest
	err    error
}

func (s *stubGateway) SubmitOrder(ctx context.Context, req gateway.SubmitOrderRequest) (*gateway.SubmitOrderResponse, error) {
	s.orders = append(s.orders, req)
	if s.err != nil {
		return nil, s.err
	}
	return &gateway.SubmitOrderResponse{Success: true, OrderID: uuid.NewString(), Status: "accepted"}, nil
}

func newLoop(store *memoryrepo.Store, b *stubBroker, g *stubGateway) *Loop {
	return &Loop{
		Repo:               store,
		Broker:             b,
		Gateway:            g,
		Guard:              &risk.Guard{Repo: store, DefaultMaxDrawdownPct: 20},
		ProjectConcurrency: 1,
	}
}

func seedAutonomousProject(store *memoryrepo.Store) *models.Project {
	project := &models.Project{
		ID:             uuid.NewString(),
		OwnerUserID:    uuid.NewString(),
		Name:           "Acme Fund",
		Mode:           "paper",
		AutonomousMode: true,
		Status:         "active",
	}
	_ = store.InsertProject(context.Background(), project)
	return project
}

func TestTickOnce_KillSwitchSkipsEverything(t *testing.T) {
	store := memoryrepo.New()
	project := seedAutonomousProject(store)
	tripped := time.Now().UTC()
	_ = store.UpsertRiskControls(context.Background(), &models.RiskControls{
		ProjectID:        project.ID,
		KillSwitchActive: true,
		MaxDrawdownPct:   20,
		TrippedAt:        &tripped,
	})
	b := &stubBroker{equity: decimal.NewFromInt(1000)}
	loop := newLoop(store, b, &stubGateway{})

	result, err := loop.TickOnce(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(result.Projects) != 1 {
		t.Fatalf("projects=%d want 1", len(result.Projects))
	}
	pr := result.Projects[0]
	if !pr.Skipped || pr.SkipReason != "kill_switch_active" {
		t.Fatalf("result=%+v want kill switch skip", pr)
	}
	if b.accountCalls != 0 || b.quoteCalls != 0 {
		t.Fatalf("broker touched while kill switch active: account=%d quote=%d", b.accountCalls, b.quoteCalls)
	}
}

func TestTickOnce_DrawdownHaltsRestOfTick(t *testing.T) {
	store := memoryrepo.New()
	project := seedAutonomousProject(store)
	_ = store.UpsertRiskControls(context.Background(), &models.RiskControls{
		ProjectID:      project.ID,
		MaxDrawdownPct: 20,
		PeakEquity:     decimal.NewFromInt(1000),
	})
	_ = store.InsertAlert(context.Background(), &models.Alert{
		ID: uuid.NewString(), ProjectID: project.ID, UserID: project.OwnerUserID,
		Symbol: "BTC", Condition: "above", TriggerPrice: decimal.NewFromInt(1), IsActive: true,
	})
	b := &stubBroker{equity: decimal.NewFromInt(700), quotes: map[string]decimal.Decimal{"BTC": decimal.NewFromInt(50000)}}
	loop := newLoop(store, b, &stubGateway{})

	result, err := loop.TickOnce(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	pr := result.Projects[0]
	if !pr.Skipped || pr.SkipReason != "drawdown_guard_tripped" {
		t.Fatalf("result=%+v want drawdown halt", pr)
	}
	if b.quoteCalls != 0 {
		t.Fatalf("alerts evaluated after drawdown halt")
	}
	rc, _ := store.GetRiskControls(context.Background(), project.ID)
	if !rc.KillSwitchActive {
		t.Fatalf("kill switch not set after breach")
	}
	alerts, _ := store.ListActiveAlerts(context.Background(), project.ID)
	if len(alerts) != 1 {
		t.Fatalf("alert fired during halted tick")
	}
}

func TestAlert_OneShotEvenWhenOrderFails(t *testing.T) {
	store := memoryrepo.New()
	project := seedAutonomousProject(store)
	alert := &models.Alert{
		ID: uuid.NewString(), ProjectID: project.ID, UserID: project.OwnerUserID,
		Symbol: "BTC", Condition: "above", TriggerPrice: decimal.NewFromInt(40000),
		AutoAction: "BUY:0.5", IsActive: true,
	}
	_ = store.InsertAlert(context.Background(), alert)
	b := &stubBroker{equity: decimal.NewFromInt(1000), quotes: map[string]decimal.Decimal{"BTC": decimal.NewFromInt(45000)}}
	g := &stubGateway{err: fmt.Errorf("gateway down")}
	loop := newLoop(store, b, g)

	triggered, err := loop.evaluateAlerts(context.Background(), project)
	if err == nil {
		t.Fatalf("expected gateway error to surface")
	}
	if triggered != 1 {
		t.Fatalf("triggered=%d want 1", triggered)
	}
	stored, _ := store.GetAlertByID(context.Background(), alert.ID)
	if stored.IsActive {
		t.Fatalf("alert still active after firing with failed order")
	}
	if stored.LastTriggeredAt == nil {
		t.Fatalf("last_triggered_at not stamped")
	}
	if len(g.orders) != 1 {
		t.Fatalf("gateway orders=%d want 1", len(g.orders))
	}

	// A second pass must not re-fire the deactivated alert.
	g.err = nil
	triggered, err = loop.evaluateAlerts(context.Background(), project)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if triggered != 0 || len(g.orders) != 1 {
		t.Fatalf("alert re-fired: triggered=%d orders=%d", triggered, len(g.orders))
	}
}

func TestAlert_CrossoverNeedsPriorObservation(t *testing.T) {
	store := memoryrepo.New()
	project := seedAutonomousProject(store)
	alert := &models.Alert{
		ID: uuid.NewString(), ProjectID: project.ID, UserID: project.OwnerUserID,
		Symbol: "ETH", Condition: "crossover", TriggerPrice: decimal.NewFromInt(3000), IsActive: true,
	}
	_ = store.InsertAlert(context.Background(), alert)
	b := &stubBroker{equity: decimal.NewFromInt(1000), quotes: map[string]decimal.Decimal{"ETH": decimal.NewFromInt(3100)}}
	loop := newLoop(store, b, &stubGateway{})

	// First evaluation is already above the trigger but has no baseline, so
	// it only records the price.
	triggered, err := loop.evaluateAlerts(context.Background(), project)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if triggered != 0 {
		t.Fatalf("crossover fired without a prior observation")
	}

	// Dip below, then cross up through the trigger.
	b.quotes["ETH"] = decimal.NewFromInt(2900)
	if _, err := loop.evaluateAlerts(context.Background(), project); err != nil {
		t.Fatalf("dip pass: %v", err)
	}
	b.quotes["ETH"] = decimal.NewFromInt(3050)
	triggered, err = loop.evaluateAlerts(context.Background(), project)
	if err != nil {
		t.Fatalf("cross pass: %v", err)
	}
	if triggered != 1 {
		t.Fatalf("triggered=%d want 1 on upward cross", triggered)
	}
}

func TestDCA_IntervalGate(t *testing.T) {
	store := memoryrepo.New()
	project := seedAutonomousProject(store)
	recent := time.Now().UTC().Add(-23 * time.Hour)
	strategy := &models.TradingStrategy{
		ID: uuid.NewString(), ProjectID: project.ID, Name: "Daily BTC",
		StrategyType: "dca", Symbol: "BTC", AmountUSD: decimal.NewFromInt(100),
		IntervalHours: 24, IsActive: true, Mode: "paper", LastExecutedAt: &recent,
	}
	_ = store.InsertStrategy(context.Background(), strategy)
	b := &stubBroker{equity: decimal.NewFromInt(1000), quotes: map[string]decimal.Decimal{"BTC": decimal.NewFromInt(50000)}}
	loop := newLoop(store, b, &stubGateway{})

	// 23h elapsed with a 24h interval: nothing fires.
	executed, err := loop.runStrategies(context.Background(), project)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if executed != 0 {
		t.Fatalf("executed=%d want 0 inside the interval", executed)
	}
	execs, _ := store.ListExecutions(context.Background(), listExecutionsFor(project.ID))
	if len(execs) != 0 {
		t.Fatalf("executions=%d want 0", len(execs))
	}

	// 25h elapsed: fires once and stamps.
	stale := time.Now().UTC().Add(-25 * time.Hour)
	store.Strategies[0].LastExecutedAt = &stale
	executed, err = loop.runStrategies(context.Background(), project)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if executed != 1 {
		t.Fatalf("executed=%d want 1 past the interval", executed)
	}
	execs, _ = store.ListExecutions(context.Background(), listExecutionsFor(project.ID))
	if len(execs) != 1 {
		t.Fatalf("executions=%d want 1", len(execs))
	}
	if execs[0].Side != "buy" || execs[0].Mode != "paper" || !execs[0].RealizedPnL.IsZero() {
		t.Fatalf("execution=%+v want zero-pnl paper buy", execs[0])
	}
	wantQty := decimal.NewFromInt(100).Div(decimal.NewFromInt(50000))
	if !execs[0].Quantity.Equal(wantQty) {
		t.Fatalf("quantity=%s want %s", execs[0].Quantity, wantQty)
	}
	updated, _ := store.GetStrategyByID(context.Background(), strategy.ID)
	if updated.TotalTrades != 1 {
		t.Fatalf("total_trades=%d want 1", updated.TotalTrades)
	}
	if updated.LastExecutedAt == nil || !updated.LastExecutedAt.After(stale) {
		t.Fatalf("last_executed_at not advanced")
	}
}

func TestDCA_FailedTradeStillConsumesIntervalSlot(t *testing.T) {
	store := memoryrepo.New()
	project := seedAutonomousProject(store)
	strategy := &models.TradingStrategy{
		ID: uuid.NewString(), ProjectID: project.ID, Name: "Daily BTC",
		StrategyType: "dca", Symbol: "BTC", AmountUSD: decimal.NewFromInt(100),
		IntervalHours: 24, IsActive: true, Mode: "paper",
	}
	_ = store.InsertStrategy(context.Background(), strategy)
	b := &stubBroker{equity: decimal.NewFromInt(1000), quoteErr: fmt.Errorf("feed down")}
	loop := newLoop(store, b, &stubGateway{})

	if _, err := loop.runStrategies(context.Background(), project); err == nil {
		t.Fatalf("expected quote error to surface")
	}
	updated, _ := store.GetStrategyByID(context.Background(), strategy.ID)
	if updated.LastExecutedAt == nil {
		t.Fatalf("failed run must still stamp last_executed_at")
	}
	execs, _ := store.ListExecutions(context.Background(), listExecutionsFor(project.ID))
	if len(execs) != 0 {
		t.Fatalf("executions=%d want 0 after failed quote", len(execs))
	}
}

func TestMomentum_CounterOnlyOnSignal(t *testing.T) {
	store := memoryrepo.New()
	project := seedAutonomousProject(store)
	strategy := &models.TradingStrategy{
		ID: uuid.NewString(), ProjectID: project.ID, Name: "ETH Momentum",
		StrategyType: "momentum", Symbol: "ETH", AmountUSD: decimal.NewFromInt(200),
		IsActive: true, Mode: "paper",
	}
	_ = store.InsertStrategy(context.Background(), strategy)

	flat := make([]broker.Bar, 5)
	for i := range flat {
		flat[i] = broker.Bar{Close: decimal.NewFromInt(3000)}
	}
	b := &stubBroker{equity: decimal.NewFromInt(1000), bars: map[string][]broker.Bar{"ETH": flat}}
	loop := newLoop(store, b, &stubGateway{})

	// Flat tape: hold, stamp, no counter.
	executed, err := loop.runStrategies(context.Background(), project)
	if err != nil {
		t.Fatalf("hold run: %v", err)
	}
	if executed != 0 {
		t.Fatalf("executed=%d want 0 on hold", executed)
	}
	updated, _ := store.GetStrategyByID(context.Background(), strategy.ID)
	if updated.LastExecutedAt == nil {
		t.Fatalf("hold must still stamp last_executed_at")
	}
	if updated.TotalTrades != 0 {
		t.Fatalf("total_trades=%d want 0 on hold", updated.TotalTrades)
	}

	// Rising tape: last close above the SMA, buy fires.
	rising := make([]broker.Bar, 5)
	for i := range rising {
		rising[i] = broker.Bar{Close: decimal.NewFromInt(int64(3000 + 50*i))}
	}
	b.bars["ETH"] = rising
	executed, err = loop.runStrategies(context.Background(), project)
	if err != nil {
		t.Fatalf("buy run: %v", err)
	}
	if executed != 1 {
		t.Fatalf("executed=%d want 1 on buy signal", executed)
	}
	updated, _ = store.GetStrategyByID(context.Background(), strategy.ID)
	if updated.TotalTrades != 1 {
		t.Fatalf("total_trades=%d want 1", updated.TotalTrades)
	}
	execs, _ := store.ListExecutions(context.Background(), listExecutionsFor(project.ID))
	if len(execs) != 1 || execs[0].Side != "buy" || execs[0].Source != "momentum" {
		t.Fatalf("executions=%+v want one momentum buy", execs)
	}
}

func TestTickOnce_ProjectErrorsDoNotAbortBatch(t *testing.T) {
	store := memoryrepo.New()
	broken := seedAutonomousProject(store)
	healthy := seedAutonomousProject(store)
	_ = store.InsertStrategy(context.Background(), &models.TradingStrategy{
		ID: uuid.NewString(), ProjectID: broken.ID, Name: "Daily BTC",
		StrategyType: "unknown_kind", Symbol: "BTC", AmountUSD: decimal.NewFromInt(100),
		IsActive: true, Mode: "paper",
	})
	b := &stubBroker{equity: decimal.NewFromInt(1000), quotes: map[string]decimal.Decimal{}}
	loop := newLoop(store, b, &stubGateway{})

	result, err := loop.TickOnce(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(result.Projects) != 2 {
		t.Fatalf("projects=%d want 2", len(result.Projects))
	}
	byID := map[string]ProjectResult{}
	for _, pr := range result.Projects {
		byID[pr.ProjectID] = pr
	}
	if byID[broken.ID].Error == "" {
		t.Fatalf("broken project error missing")
	}
	if byID[healthy.ID].Error != "" || byID[healthy.ID].Skipped {
		t.Fatalf("healthy project affected: %+v", byID[healthy.ID])
	}
}

func TestMarkStrategyExecuted_SecondClaimLoses(t *testing.T) {
	store := memoryrepo.New()
	project := seedAutonomousProject(store)
	strategy := &models.TradingStrategy{
		ID: uuid.NewString(), ProjectID: project.ID, Name: "Daily BTC",
		StrategyType: "dca", Symbol: "BTC", AmountUSD: decimal.NewFromInt(100),
		IntervalHours: 24, IsActive: true, Mode: "paper",
	}
	_ = store.InsertStrategy(context.Background(), strategy)

	// Two ticks race with the same observed previous stamp; only one claims.
	now := time.Now().UTC()
	first, err := store.MarkStrategyExecuted(context.Background(), strategy.ID, nil, now)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	second, err := store.MarkStrategyExecuted(context.Background(), strategy.ID, nil, now)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if !first || second {
		t.Fatalf("claims first=%v second=%v want true/false", first, second)
	}
}

func listExecutionsFor(projectID string) repository.ListExecutionsParams {
	return repository.ListExecutionsParams{ProjectID: &projectID}
}
