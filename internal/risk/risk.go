// Package risk gates proposed actions against configured limits.
package risk

import (
	"time"

	"github.com/rewired-gh/botia5m/internal/models"
)

// GateContext is what the loop knows about a proposed action.
type GateContext struct {
	Size        float64 // proposed size
	RoundTrades int     // trades already executed in this market
}

// Guard approves or rejects a proposed action.
type Guard interface {
	Allow(action models.Action, ctx GateContext) bool
}

// Limits are the configured guard thresholds.
type Limits struct {
	MaxSize           float64
	Cooldown          time.Duration
	MaxTradesPerRound int
}

// State is the guard's only mutable state. The zero value has never approved.
type State struct {
	LastApproval time.Time
}

// Basic is the rule-ordered guard. It is owned by a single goroutine.
type Basic struct {
	limits Limits
	state  State
	now    func() time.Time
}

// NewBasic creates a guard using the wall clock.
func NewBasic(limits Limits) *Basic {
	return &Basic{limits: limits, now: time.Now}
}

// WithClock replaces the guard's clock. Used by tests and replays.
func (b *Basic) WithClock(now func() time.Time) *Basic {
	b.now = now
	return b
}

// State returns a copy of the guard state.
func (b *Basic) State() State {
	return b.state
}

// Allow checks the rules in order and records the approval time on success.
func (b *Basic) Allow(action models.Action, ctx GateContext) bool {
	next, ok := Evaluate(b.limits, b.state, action, ctx, b.now())
	b.state = next
	return ok
}

// Evaluate applies the rules to an explicit state and returns the state to keep.
// The first matching rejection wins:
//  1. NO_TRADE is never approved
//  2. size above the maximum
//  3. still inside the cooldown since the last approval
//  4. per-market trade count already at the maximum
func Evaluate(limits Limits, state State, action models.Action, ctx GateContext, now time.Time) (State, bool) {
	if action == models.ActionNoTrade {
		return state, false
	}
	if ctx.Size > limits.MaxSize {
		return state, false
	}
	if !state.LastApproval.IsZero() && now.Sub(state.LastApproval) < limits.Cooldown {
		return state, false
	}
	if ctx.RoundTrades >= limits.MaxTradesPerRound {
		return state, false
	}
	return State{LastApproval: now}, true
}
