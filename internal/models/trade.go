package models

import (
	"errors"
	"time"
)

// TradeResult is what an execution engine reports back for a placed order.
type TradeResult struct {
	Accepted bool
	OrderID  string
	Side     Action
	Price    float64
	Size     float64
	Reason   string
	Meta     map[string]any
}

// PaperTrade is a simulated fill recorded in the ledger.
type PaperTrade struct {
	Timestamp  time.Time
	OrderID    string
	MarketSlug string
	Side       Action
	Price      float64
	Size       float64
	Reason     string
}

// NewPaperTrade builds the ledger record for a fill in the given market.
func NewPaperTrade(ts time.Time, marketSlug string, result TradeResult) PaperTrade {
	return PaperTrade{
		Timestamp:  ts,
		OrderID:    result.OrderID,
		MarketSlug: marketSlug,
		Side:       result.Side,
		Price:      result.Price,
		Size:       result.Size,
		Reason:     result.Reason,
	}
}

// Validate checks that all trade fields are valid
func (p *PaperTrade) Validate() error {
	if p.OrderID == "" {
		return errors.New("order ID must not be empty")
	}
	if p.MarketSlug == "" {
		return errors.New("trade market slug must not be empty")
	}
	if p.Side != ActionBuyUp && p.Side != ActionBuyDown {
		return errors.New("trade side must be BUY_UP or BUY_DOWN")
	}
	if p.Price <= 0 {
		return errors.New("trade price must be positive")
	}
	if p.Size <= 0 {
		return errors.New("trade size must be positive")
	}
	return nil
}
