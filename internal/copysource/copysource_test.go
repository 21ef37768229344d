package copysource

import (
	"context"
	"testing"
)

func TestStubPoll(t *testing.T) {
	events, err := NewStub().Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll returned error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Source != StubName || ev.Side != "NONE" || ev.Size != 0 {
		t.Errorf("Unexpected stub event: %+v", ev)
	}
	if ev.Timestamp == "" || ev.Meta["note"] == nil {
		t.Errorf("Stub event should carry timestamp and note: %+v", ev)
	}
}
