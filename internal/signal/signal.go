// Package signal maps market state and a reference price to a directional decision.
package signal

import (
	"math"
	"time"

	"github.com/rewired-gh/botia5m/internal/models"
)

const (
	// epsilon keeps the relative deviation finite when the last price is zero.
	epsilon = 1e-9
	// slope is the fixed gain from relative deviation to probability.
	slope = 2.0
)

// Engine computes the decision for one cycle.
type Engine interface {
	ComputeEdge(market models.MarketSnapshot, refPrice float64, timeToClose time.Duration) models.Decision
}

// Threshold is the deliberately minimal linear edge heuristic.
type Threshold struct {
	MinProbability float64 // minimum edge probability to act
	UnitSize       float64 // fixed size proposed for any trade
}

// NewThreshold creates the threshold engine.
func NewThreshold(minProbability, unitSize float64) *Threshold {
	return &Threshold{MinProbability: minProbability, UnitSize: unitSize}
}

// Probability maps the relative deviation of refPrice from lastPrice onto [0,1].
func Probability(lastPrice, refPrice float64) float64 {
	diff := (refPrice - lastPrice) / math.Max(lastPrice, epsilon)
	return math.Min(math.Max(0.5+diff*slope, 0.0), 1.0)
}

// ComputeEdge implements Engine. timeToClose is accepted for interface
// compatibility with richer engines and is not used here.
func (t *Threshold) ComputeEdge(market models.MarketSnapshot, refPrice float64, _ time.Duration) models.Decision {
	p := Probability(market.LastPrice, refPrice)

	if p >= t.MinProbability {
		return models.Decision{Action: models.ActionBuyUp, Probability: p, Reason: models.ReasonEdgeMet, Size: t.UnitSize}
	}
	if 1-p >= t.MinProbability {
		return models.Decision{Action: models.ActionBuyDown, Probability: 1 - p, Reason: models.ReasonInverseEdgeMet, Size: t.UnitSize}
	}
	return models.Decision{Action: models.ActionNoTrade, Probability: math.Max(p, 1-p), Reason: models.ReasonEdgeBelow, Size: 0}
}
