package models

import (
	"encoding/json"
	"errors"
	"time"
)

// PriceTick is one reference-price observation. Price is nil when every source failed.
type PriceTick struct {
	Timestamp time.Time `json:"ts"`
	Symbol    string    `json:"symbol"`
	Price     *float64  `json:"ref_price"`
	Source    string    `json:"source"`
	Degraded  bool      `json:"degraded"`
}

// Validate checks that all tick fields are valid
func (t *PriceTick) Validate() error {
	if t.Symbol == "" {
		return errors.New("tick symbol must not be empty")
	}
	if t.Source == "" {
		return errors.New("tick source must not be empty")
	}
	if t.Price == nil && !t.Degraded {
		return errors.New("tick without a price must be marked degraded")
	}
	if t.Price != nil && *t.Price <= 0 {
		return errors.New("tick price must be positive")
	}
	return nil
}

// RawJSON serializes the source metadata stored alongside the tick.
func (t *PriceTick) RawJSON() string {
	payload := map[string]any{"source": t.Source}
	if t.Degraded {
		payload["degraded"] = true
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "{}"
	}
	return string(data)
}
