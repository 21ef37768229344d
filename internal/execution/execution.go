// Package execution places orders for approved decisions. The paper engine
// simulates an immediate full fill; a live adapter can replace it without
// touching the loop.
package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/botia5m/internal/models"
)

// Modes selectable by configuration
const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// ErrLiveUnavailable is returned when live execution is requested.
var ErrLiveUnavailable = errors.New("live execution adapter is not available")

// Engine places a single order.
type Engine interface {
	PlaceOrder(ctx context.Context, side models.Action, price, size float64, meta map[string]any) (models.TradeResult, error)
}

// New returns the engine for mode.
func New(mode string) (Engine, error) {
	switch mode {
	case ModePaper:
		return NewPaper(), nil
	case ModeLive:
		return nil, ErrLiveUnavailable
	default:
		return nil, fmt.Errorf("unknown execution mode: %s", mode)
	}
}

// Paper fills every order in full at the requested price.
type Paper struct {
	now func() time.Time
}

// NewPaper creates a paper engine using the wall clock.
func NewPaper() *Paper {
	return &Paper{now: time.Now}
}

// PlaceOrder implements Engine. It never rejects.
func (p *Paper) PlaceOrder(_ context.Context, side models.Action, price, size float64, meta map[string]any) (models.TradeResult, error) {
	return models.TradeResult{
		Accepted: true,
		OrderID:  p.orderID(),
		Side:     side,
		Price:    price,
		Size:     size,
		Reason:   models.ReasonPaperFill,
		Meta:     meta,
	}, nil
}

// orderID is time-based with a random suffix to disambiguate same-millisecond fills.
func (p *Paper) orderID() string {
	return fmt.Sprintf("paper-%d-%s", p.now().UnixMilli(), uuid.NewString()[:8])
}
