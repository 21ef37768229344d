// Package copysource polls auxiliary signal streams that the loop may one day copy.
// Events are observed only; nothing in the decision path consumes them yet.
package copysource

import (
	"context"
	"time"

	"github.com/rewired-gh/botia5m/internal/models"
)

// Source polls for new target events.
type Source interface {
	Poll(ctx context.Context) ([]models.TargetEvent, error)
}

// StubName labels events emitted by Stub.
const StubName = "stub_collectmarkets2"

// Stub emits one inert event per poll.
type Stub struct {
	now func() time.Time
}

// NewStub creates a stub source using the wall clock.
func NewStub() *Stub {
	return &Stub{now: time.Now}
}

// Poll implements Source.
func (s *Stub) Poll(_ context.Context) ([]models.TargetEvent, error) {
	return []models.TargetEvent{{
		Source:    StubName,
		Side:      "NONE",
		Size:      0,
		Timestamp: models.FormatTimestamp(s.now()),
		Meta:      map[string]any{"note": "copy source stub in paper mode"},
	}}, nil
}
