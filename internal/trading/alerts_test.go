package trading

import (
	"testing"

	"github.com/shopspring/decimal"

	"venture/internal/client/broker"
	"venture/internal/models"
)

func TestParseAutoAction(t *testing.T) {
	side, qty, err := parseAutoAction("BUY:0.5")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if side != "buy" || !qty.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("got %s %s", side, qty)
	}
	side, _, err = parseAutoAction("  sell : 10 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if side != "sell" {
		t.Fatalf("side=%q want sell", side)
	}

	for _, bad := range []string{"", "BUY", "HOLD:1", "BUY:zero", "BUY:-1", "BUY:0"} {
		if _, _, err := parseAutoAction(bad); err == nil {
			t.Fatalf("action %q accepted", bad)
		}
	}
}

func TestConditionMet(t *testing.T) {
	trigger := decimal.NewFromInt(100)
	prevBelow := decimal.NewFromInt(95)
	prevAbove := decimal.NewFromInt(105)
	cases := []struct {
		name      string
		condition string
		prev      *decimal.Decimal
		price     int64
		want      bool
	}{
		{"above hit", "above", nil, 100, true},
		{"above miss", "above", nil, 99, false},
		{"below hit", "below", nil, 100, true},
		{"below miss", "below", nil, 101, false},
		{"crossover without baseline", "crossover", nil, 120, false},
		{"crossover from below", "crossover", &prevBelow, 101, true},
		{"crossover already above", "crossover", &prevAbove, 110, false},
		{"crossunder from above", "crossunder", &prevAbove, 99, true},
		{"crossunder without baseline", "crossunder", nil, 80, false},
		{"unknown condition", "sideways", nil, 100, false},
	}
	for _, tc := range cases {
		alert := models.Alert{Condition: tc.condition, TriggerPrice: trigger, LastEvalPrice: tc.prev}
		if got := conditionMet(alert, decimal.NewFromInt(tc.price)); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestMomentumSignal(t *testing.T) {
	bars := func(closes ...int64) []broker.Bar {
		out := make([]broker.Bar, len(closes))
		for i, c := range closes {
			out[i] = broker.Bar{Close: decimal.NewFromInt(c)}
		}
		return out
	}
	if got := momentumSignal(bars(100)); got != "hold" {
		t.Fatalf("single bar signal=%q want hold", got)
	}
	if got := momentumSignal(bars(100, 100, 100)); got != "hold" {
		t.Fatalf("flat signal=%q want hold", got)
	}
	if got := momentumSignal(bars(100, 110, 120, 130)); got != "buy" {
		t.Fatalf("rising signal=%q want buy", got)
	}
	if got := momentumSignal(bars(130, 120, 110, 100)); got != "sell" {
		t.Fatalf("falling signal=%q want sell", got)
	}
}
