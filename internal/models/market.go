// Package models defines the core domain records for the botia5m paper-trading loop.
// Every record produced by one engine cycle lives here: the discovered market, the
// reference price tick, the decision, the round outcome, and any simulated fill.
//
// All records that reach the ledger include built-in validation so a malformed cycle
// is rejected before anything is written.
package models

import (
	"encoding/json"
	"errors"
	"time"
)

// TimestampLayout is the fixed-width ISO-8601 UTC layout used for every persisted
// timestamp. Fixed width keeps lexical order equal to chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// FormatTimestamp renders t as an ISO-8601 UTC string.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// MarketSnapshot is the market instance discovered for one cycle.
type MarketSnapshot struct {
	Slug      string          `json:"slug"`
	Question  string          `json:"question"`
	CloseTime string          `json:"close_time"` // upstream endDate, or "unknown"
	LastPrice float64         `json:"last_price"` // last traded price reported by the venue
	Raw       json.RawMessage `json:"raw"`        // upstream payload kept for forensic replay
	Degraded  bool            `json:"degraded"`   // true when discovery fell back
}

// Validate checks that the snapshot can be recorded.
func (m *MarketSnapshot) Validate() error {
	if m.Slug == "" {
		return errors.New("market slug must not be empty")
	}
	if m.Question == "" {
		return errors.New("market question must not be empty")
	}
	if m.LastPrice < 0 {
		return errors.New("last price must not be negative")
	}
	if len(m.Raw) > 0 && !json.Valid(m.Raw) {
		return errors.New("raw payload must be valid JSON")
	}
	return nil
}

// RawJSON returns the raw payload as a string, defaulting to an empty object.
func (m *MarketSnapshot) RawJSON() string {
	if len(m.Raw) == 0 {
		return "{}"
	}
	return string(m.Raw)
}
