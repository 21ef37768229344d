package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func floatPtr(v float64) *float64 { return &v }

func TestMarketSnapshotValidate(t *testing.T) {
	tests := []struct {
		name    string
		market  MarketSnapshot
		wantErr bool
	}{
		{
			name: "valid market",
			market: MarketSnapshot{
				Slug:      "btc-updown-5m-1760000000",
				Question:  "Bitcoin Up or Down - 5m",
				CloseTime: "2026-10-18T12:05:00Z",
				LastPrice: 0.53,
				Raw:       json.RawMessage(`{"slug":"btc-updown-5m-1760000000"}`),
			},
			wantErr: false,
		},
		{
			name:    "empty slug",
			market:  MarketSnapshot{Question: "Bitcoin Up or Down - 5m"},
			wantErr: true,
		},
		{
			name:    "negative last price",
			market:  MarketSnapshot{Slug: "s", Question: "q", LastPrice: -1},
			wantErr: true,
		},
		{
			name:    "invalid raw payload",
			market:  MarketSnapshot{Slug: "s", Question: "q", Raw: json.RawMessage(`{`)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.market.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("MarketSnapshot.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarketSnapshotRawJSONDefault(t *testing.T) {
	m := MarketSnapshot{Slug: "s", Question: "q"}
	if got := m.RawJSON(); got != "{}" {
		t.Errorf("Expected empty object, got %s", got)
	}
}

func TestPriceTickValidate(t *testing.T) {
	tests := []struct {
		name    string
		tick    PriceTick
		wantErr bool
	}{
		{"valid tick", PriceTick{Symbol: "BTC", Price: floatPtr(67000.5), Source: "binance"}, false},
		{"degraded tick", PriceTick{Symbol: "BTC", Source: "unavailable", Degraded: true}, false},
		{"missing price not degraded", PriceTick{Symbol: "BTC", Source: "binance"}, true},
		{"zero price", PriceTick{Symbol: "BTC", Price: floatPtr(0), Source: "binance"}, true},
		{"empty symbol", PriceTick{Price: floatPtr(1), Source: "binance"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tick.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("PriceTick.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPriceTickRawJSON(t *testing.T) {
	tick := PriceTick{Symbol: "BTC", Source: "unavailable", Degraded: true}
	raw := tick.RawJSON()
	if !strings.Contains(raw, `"degraded":true`) || !strings.Contains(raw, `"source":"unavailable"`) {
		t.Errorf("Unexpected raw payload: %s", raw)
	}

	tick = PriceTick{Symbol: "BTC", Source: "coinbase", Price: floatPtr(10)}
	if raw := tick.RawJSON(); strings.Contains(raw, "degraded") {
		t.Errorf("Normal tick should not carry degraded flag: %s", raw)
	}
}

func TestDecisionValidate(t *testing.T) {
	tests := []struct {
		name     string
		decision Decision
		wantErr  bool
	}{
		{"buy up", Decision{ActionBuyUp, 0.7, ReasonEdgeMet, 10}, false},
		{"no trade", Decision{ActionNoTrade, 0.55, ReasonEdgeBelow, 0}, false},
		{"unknown action", Decision{"HOLD", 0.5, "x", 0}, true},
		{"probability above one", Decision{ActionBuyUp, 1.2, ReasonEdgeMet, 10}, true},
		{"no trade with size", Decision{ActionNoTrade, 0.5, ReasonEdgeBelow, 5}, true},
		{"empty reason", Decision{ActionBuyDown, 0.7, "", 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decision.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Decision.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecisionNoTradeOverride(t *testing.T) {
	d := Decision{Action: ActionBuyUp, Probability: 0.8, Reason: ReasonEdgeMet, Size: 10}
	d.NoTrade(ReasonReferenceUnavail)

	if d.Action != ActionNoTrade {
		t.Errorf("Expected NO_TRADE, got %s", d.Action)
	}
	if d.Size != 0 {
		t.Errorf("Expected size 0, got %f", d.Size)
	}
	if d.Reason != ReasonReferenceUnavail {
		t.Errorf("Expected reason %s, got %s", ReasonReferenceUnavail, d.Reason)
	}
	if d.Probability != 0.8 {
		t.Errorf("Expected probability to be kept, got %f", d.Probability)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Overridden decision should validate: %v", err)
	}
}

func TestPaperTradeValidate(t *testing.T) {
	result := TradeResult{Accepted: true, OrderID: "paper-1", Side: ActionBuyUp, Price: 67000, Size: 10, Reason: ReasonPaperFill}
	trade := NewPaperTrade(time.Now(), "btc-5m", result)
	if err := trade.Validate(); err != nil {
		t.Fatalf("Expected valid trade, got %v", err)
	}
	if trade.MarketSlug != "btc-5m" || trade.OrderID != "paper-1" {
		t.Errorf("Unexpected trade fields: %+v", trade)
	}

	trade.Side = ActionNoTrade
	if err := trade.Validate(); err == nil {
		t.Error("Expected NO_TRADE side to be rejected")
	}
}

func TestFormatTimestampOrdersLexically(t *testing.T) {
	base := time.Date(2026, 10, 18, 12, 0, 5, 100_000_000, time.UTC)
	a := FormatTimestamp(base)
	b := FormatTimestamp(base.Add(20 * time.Millisecond))
	if a >= b {
		t.Errorf("Expected %s < %s", a, b)
	}
	if !strings.HasSuffix(a, "Z") {
		t.Errorf("Expected UTC suffix, got %s", a)
	}

	local := time.Date(2026, 10, 18, 14, 0, 5, 0, time.FixedZone("CEST", 2*3600))
	if got := FormatTimestamp(local); got != "2026-10-18T12:00:05.000000Z" {
		t.Errorf("Expected UTC conversion, got %s", got)
	}
}
