package signal

import (
	"math"
	"testing"

	"github.com/rewired-gh/botia5m/internal/models"
)

func market(last float64) models.MarketSnapshot {
	return models.MarketSnapshot{Slug: "btc-5m", Question: "q", LastPrice: last}
}

func TestProbabilityIsClamped(t *testing.T) {
	tests := []struct {
		name      string
		last, ref float64
	}{
		{"huge positive deviation", 0.5, 67000},
		{"huge negative deviation", 67000, 0.5},
		{"zero last price", 0, 100},
		{"both zero", 0, 0},
		{"negative reference", 100, -1e9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Probability(tt.last, tt.ref)
			if p < 0 || p > 1 || math.IsNaN(p) {
				t.Errorf("Probability(%f, %f) = %f, expected within [0,1]", tt.last, tt.ref, p)
			}
		})
	}

	if p := Probability(100, 100); p != 0.5 {
		t.Errorf("Expected 0.5 at zero deviation, got %f", p)
	}
	if p := Probability(100, 110); math.Abs(p-0.7) > 1e-9 {
		t.Errorf("Expected 0.7 at +10%% deviation, got %f", p)
	}
}

func TestComputeEdge(t *testing.T) {
	engine := NewThreshold(0.62, 10)

	tests := []struct {
		name       string
		last, ref  float64
		wantAction models.Action
		wantReason string
		wantProb   float64
		wantSize   float64
	}{
		{"buy up at 0.70", 100, 110, models.ActionBuyUp, models.ReasonEdgeMet, 0.70, 10},
		{"buy down at 0.30", 100, 90, models.ActionBuyDown, models.ReasonInverseEdgeMet, 0.70, 10},
		{"no trade inside band", 100, 102, models.ActionNoTrade, models.ReasonEdgeBelow, 0.54, 0},
		{"no trade below band reports larger tail", 100, 98, models.ActionNoTrade, models.ReasonEdgeBelow, 0.54, 0},
		{"just above threshold", 100, 107, models.ActionBuyUp, models.ReasonEdgeMet, 0.64, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := engine.ComputeEdge(market(tt.last), tt.ref, 0)
			if d.Action != tt.wantAction {
				t.Errorf("Expected action %s, got %s", tt.wantAction, d.Action)
			}
			if d.Reason != tt.wantReason {
				t.Errorf("Expected reason %s, got %s", tt.wantReason, d.Reason)
			}
			if math.Abs(d.Probability-tt.wantProb) > 1e-9 {
				t.Errorf("Expected probability %f, got %f", tt.wantProb, d.Probability)
			}
			if d.Size != tt.wantSize {
				t.Errorf("Expected size %f, got %f", tt.wantSize, d.Size)
			}
			if err := d.Validate(); err != nil {
				t.Errorf("Decision should validate: %v", err)
			}
		})
	}
}

func TestComputeEdge_DirectionsAreExclusive(t *testing.T) {
	engine := NewThreshold(0.51, 10)
	for ref := 0.0; ref <= 200; ref += 0.5 {
		d := engine.ComputeEdge(market(100), ref, 0)
		p := Probability(100, ref)
		up := p >= engine.MinProbability
		down := 1-p >= engine.MinProbability
		if up && down {
			t.Fatalf("Both directions hold at ref=%f", ref)
		}
		if !up && !down && (d.Action != models.ActionNoTrade || d.Size != 0) {
			t.Fatalf("Expected NO_TRADE with size 0 at ref=%f, got %+v", ref, d)
		}
	}
}

func TestComputeEdge_ScenarioProbabilitySeventy(t *testing.T) {
	d := NewThreshold(0.62, 10).ComputeEdge(market(1000), 1100, 0)
	want := models.Decision{Action: models.ActionBuyUp, Probability: 0.70, Reason: models.ReasonEdgeMet, Size: 10}
	if d.Action != want.Action || d.Reason != want.Reason || d.Size != want.Size || math.Abs(d.Probability-want.Probability) > 1e-9 {
		t.Errorf("Expected %+v, got %+v", want, d)
	}
}
