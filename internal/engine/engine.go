// Package engine runs the paper-trading decision loop.
//
// Each cycle discovers the current market, fetches a reference price, computes a
// decision, gates it through the safety guard, places approved orders and records
// everything in the ledger in a fixed order:
//
//	market -> tick -> decision -> [trade] -> round
//
// A cycle is NORMAL when a reference price was obtained and DEGRADED otherwise.
// Degraded cycles always record NO_TRADE and sleep an exponential backoff instead
// of the loop interval. The backoff resets on the next successful fetch.
//
// Data-fetch failures never stop the loop. Ledger failures do: Run returns the
// error because there is no safe way to continue without an audit trail.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/rewired-gh/botia5m/internal/copysource"
	"github.com/rewired-gh/botia5m/internal/execution"
	"github.com/rewired-gh/botia5m/internal/heartbeat"
	"github.com/rewired-gh/botia5m/internal/logger"
	"github.com/rewired-gh/botia5m/internal/metrics"
	"github.com/rewired-gh/botia5m/internal/models"
	"github.com/rewired-gh/botia5m/internal/risk"
	"github.com/rewired-gh/botia5m/internal/signal"
	"github.com/rewired-gh/botia5m/internal/storage"
)

// Discoverer finds the market to trade. It must always return a snapshot.
type Discoverer interface {
	DiscoverMarket(ctx context.Context, urls []string) models.MarketSnapshot
}

// PriceFetcher returns a reference price, or nil and a source label when none was found.
type PriceFetcher interface {
	FetchReferencePrice(ctx context.Context, urls []string) (*float64, string)
}

// Alerter is notified when the loop enters and leaves degraded mode.
type Alerter interface {
	SendDegraded(market, reason string) error
	SendRecovery(degradedCycles int) error
}

// Options configure the loop.
type Options struct {
	Mode              string // label reported by the heartbeat
	Symbol            string
	DiscoveryURLs     []string
	ReferenceURLs     []string
	LoopInterval      time.Duration
	HeartbeatInterval time.Duration
	BaseBackoff       time.Duration
	MaxBackoff        time.Duration
	StatusPath        string
	MaxDuration       time.Duration // zero runs until the context ends
}

// Deps are the loop's collaborators. Alerts is optional.
type Deps struct {
	Discovery Discoverer
	Prices    PriceFetcher
	Signal    signal.Engine
	Guard     risk.Guard
	Execution execution.Engine
	Copy      copysource.Source
	Status    heartbeat.Writer
	Ledger    *storage.Ledger
	Log       *logger.Logger
	Alerts    Alerter
}

// Loop is the single-goroutine engine state machine.
type Loop struct {
	opts Options
	deps Deps

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	backoff       *backoff.ExponentialBackOff
	nextBackoff   time.Duration
	lastHeartbeat time.Time
	degraded      int // consecutive degraded cycles
}

// New creates a loop using the wall clock.
func New(opts Options, deps Deps) *Loop {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = time.Second
	}
	if opts.MaxBackoff < opts.BaseBackoff {
		opts.MaxBackoff = opts.BaseBackoff
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.BaseBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = opts.MaxBackoff

	l := &Loop{
		opts:    opts,
		deps:    deps,
		now:     time.Now,
		sleep:   sleepContext,
		backoff: b,
	}
	l.resetBackoff()
	return l
}

// NextBackoff is the sleep the next degraded cycle will use.
func (l *Loop) NextBackoff() time.Duration {
	return l.nextBackoff
}

func (l *Loop) resetBackoff() {
	l.backoff.Reset()
	l.nextBackoff = l.backoff.NextBackOff()
	metrics.BackoffSeconds.Set(l.nextBackoff.Seconds())
}

// takeBackoff returns the current backoff and advances to the next one.
func (l *Loop) takeBackoff() time.Duration {
	d := l.nextBackoff
	l.nextBackoff = l.backoff.NextBackOff()
	metrics.BackoffSeconds.Set(l.nextBackoff.Seconds())
	return d
}

// Run executes cycles until the time budget elapses or ctx is done.
// A nil error means a clean stop.
func (l *Loop) Run(ctx context.Context) error {
	started := l.now()
	l.deps.Log.Info("engine_started", logger.Fields{
		"mode":         l.opts.Mode,
		"max_duration": l.opts.MaxDuration.String(),
	})

	for {
		if l.opts.MaxDuration > 0 && l.now().Sub(started) >= l.opts.MaxDuration {
			l.deps.Log.Info("engine_budget_elapsed", nil)
			return nil
		}
		if ctx.Err() != nil {
			l.deps.Log.Info("engine_stopped", nil)
			return nil
		}

		// A started cycle runs to completion; stop requests only land between cycles.
		wait, err := l.cycle(context.WithoutCancel(ctx))
		if err != nil {
			return err
		}

		if err := l.sleep(ctx, wait); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				l.deps.Log.Info("engine_stopped", nil)
				return nil
			}
			return err
		}
	}
}

// cycle runs one full iteration and returns how long to sleep before the next.
func (l *Loop) cycle(ctx context.Context) (time.Duration, error) {
	market := l.deps.Discovery.DiscoverMarket(ctx, l.opts.DiscoveryURLs)
	refPrice, source := l.deps.Prices.FetchReferencePrice(ctx, l.opts.ReferenceURLs)

	now := l.now()
	ts := models.FormatTimestamp(now)

	if err := l.deps.Ledger.InsertMarket(ts, &market); err != nil {
		return 0, err
	}
	tick := models.PriceTick{
		Timestamp: now,
		Symbol:    l.opts.Symbol,
		Price:     refPrice,
		Source:    source,
		Degraded:  refPrice == nil,
	}
	if err := l.deps.Ledger.InsertTick(&tick); err != nil {
		return 0, err
	}

	var (
		decision models.Decision
		wait     time.Duration
		err      error
	)
	if refPrice == nil {
		decision, err = l.degradedCycle(now, ts, market, source)
		wait = l.takeBackoff()
		l.deps.Log.Info("degraded_no_trade", logger.Fields{
			"reason":          decision.Reason,
			"source":          source,
			"market":          market.Slug,
			"backoff_seconds": wait.Seconds(),
		})
	} else {
		decision, err = l.normalCycle(ctx, now, ts, market, *refPrice)
		wait = l.opts.LoopInterval
	}
	if err != nil {
		return 0, err
	}

	metrics.DecisionsTotal.WithLabelValues(string(decision.Action)).Inc()
	l.maybeHeartbeat(market, refPrice, decision)
	l.pollCopySource(ctx)

	return wait, nil
}

// degradedCycle records a NO_TRADE decision and round when no reference price exists.
// The decision is still computed against the market's own last price.
func (l *Loop) degradedCycle(now time.Time, ts string, market models.MarketSnapshot, source string) (models.Decision, error) {
	decision := l.deps.Signal.ComputeEdge(market, market.LastPrice, timeToClose(market, now))
	decision.NoTrade(models.ReasonReferenceUnavail)

	if err := l.deps.Ledger.InsertDecision(ts, market.Slug, &decision); err != nil {
		return decision, err
	}
	round := models.Round{Timestamp: now, MarketSlug: market.Slug, Status: models.ActionNoTrade, Reason: decision.Reason}
	if err := l.deps.Ledger.InsertRound(&round); err != nil {
		return decision, err
	}

	metrics.CyclesTotal.WithLabelValues("degraded").Inc()
	if l.degraded == 0 {
		l.alert(func(a Alerter) error { return a.SendDegraded(market.Slug, decision.Reason) })
	}
	l.degraded++
	return decision, nil
}

// normalCycle decides, gates, executes and records a cycle with a reference price.
func (l *Loop) normalCycle(ctx context.Context, now time.Time, ts string, market models.MarketSnapshot, refPrice float64) (models.Decision, error) {
	l.resetBackoff()
	metrics.ReferencePrice.Set(refPrice)
	metrics.CyclesTotal.WithLabelValues("normal").Inc()
	if l.degraded > 0 {
		cycles := l.degraded
		l.alert(func(a Alerter) error { return a.SendRecovery(cycles) })
		l.degraded = 0
	}

	decision := l.deps.Signal.ComputeEdge(market, refPrice, timeToClose(market, now))
	if err := l.deps.Ledger.InsertDecision(ts, market.Slug, &decision); err != nil {
		return decision, err
	}

	roundTrades, err := l.deps.Ledger.CountPaperTrades(market.Slug)
	if err != nil {
		return decision, err
	}
	gate := risk.GateContext{Size: decision.Size, RoundTrades: roundTrades}

	if l.deps.Guard.Allow(decision.Action, gate) {
		meta := map[string]any{"market": market.Slug, "paper": true}
		result, err := l.deps.Execution.PlaceOrder(ctx, decision.Action, refPrice, decision.Size, meta)
		if err != nil {
			return decision, fmt.Errorf("failed to place order: %w", err)
		}
		if result.Accepted {
			trade := models.NewPaperTrade(now, market.Slug, result)
			if err := l.deps.Ledger.InsertPaperTrade(&trade); err != nil {
				return decision, err
			}
			metrics.PaperTradesTotal.WithLabelValues(string(trade.Side)).Inc()
			l.deps.Log.Info("paper_trade", logger.Fields{
				"order_id": trade.OrderID,
				"market":   trade.MarketSlug,
				"side":     string(trade.Side),
				"price":    trade.Price,
				"size":     trade.Size,
			})
		}
	} else if decision.Action != models.ActionNoTrade {
		metrics.GuardRejectionsTotal.Inc()
		l.deps.Log.Info("guard_rejected", logger.Fields{
			"market":       market.Slug,
			"action":       string(decision.Action),
			"size":         decision.Size,
			"round_trades": roundTrades,
		})
	}

	round := models.Round{Timestamp: now, MarketSlug: market.Slug, Status: decision.Action, Reason: decision.Reason}
	if err := l.deps.Ledger.InsertRound(&round); err != nil {
		return decision, err
	}

	l.deps.Log.Debug("cycle", logger.Fields{
		"market":      market.Slug,
		"ref_price":   refPrice,
		"action":      string(decision.Action),
		"probability": decision.Probability,
		"reason":      decision.Reason,
	})
	return decision, nil
}

// maybeHeartbeat writes the status snapshot when the heartbeat interval has elapsed.
// Write failures are logged only.
func (l *Loop) maybeHeartbeat(market models.MarketSnapshot, refPrice *float64, decision models.Decision) {
	if l.deps.Status == nil {
		return
	}
	now := l.now()
	if !l.lastHeartbeat.IsZero() && now.Sub(l.lastHeartbeat) < l.opts.HeartbeatInterval {
		return
	}

	state := heartbeat.State{
		Mode:     l.opts.Mode,
		Market:   market.Slug,
		RefPrice: refPrice,
		Decision: string(decision.Action),
		Reason:   decision.Reason,
	}
	if err := l.deps.Status.Write(l.opts.StatusPath, state); err != nil {
		l.deps.Log.Warn("heartbeat_failed", logger.Fields{"error": err.Error(), "path": l.opts.StatusPath})
	}
	l.lastHeartbeat = now
}

func (l *Loop) pollCopySource(ctx context.Context) {
	if l.deps.Copy == nil {
		return
	}
	events, err := l.deps.Copy.Poll(ctx)
	if err != nil {
		l.deps.Log.Warn("copy_source_failed", logger.Fields{"error": err.Error()})
		return
	}
	l.deps.Log.Debug("copy_source_polled", logger.Fields{"events": len(events)})
}

func (l *Loop) alert(send func(Alerter) error) {
	if l.deps.Alerts == nil {
		return
	}
	if err := send(l.deps.Alerts); err != nil {
		l.deps.Log.Warn("alert_failed", logger.Fields{"error": err.Error()})
	}
}

// timeToClose is zero when the close time is unknown or already past.
func timeToClose(market models.MarketSnapshot, now time.Time) time.Duration {
	closeAt, err := time.Parse(time.RFC3339, market.CloseTime)
	if err != nil || closeAt.Before(now) {
		return 0
	}
	return closeAt.Sub(now)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
