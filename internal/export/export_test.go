package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rewired-gh/botia5m/internal/models"
	"github.com/rewired-gh/botia5m/internal/storage"
)

func TestDecisionsRoundTripThroughLedger(t *testing.T) {
	ledger, err := storage.Open(storage.DriverSQLite, filepath.Join(t.TempDir(), "ledger.sqlite"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ledger.Close()
	if err := ledger.EnsureSchema(); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	inputs := []struct {
		ts string
		d  models.Decision
	}{
		{"2026-10-18T12:00:00.000000Z", models.Decision{Action: models.ActionBuyUp, Probability: 0.7, Reason: models.ReasonEdgeMet, Size: 10}},
		{"2026-10-18T12:00:05.000000Z", models.Decision{Action: models.ActionNoTrade, Probability: 0.5, Reason: models.ReasonReferenceUnavail}},
		{"2026-10-18T12:00:10.000000Z", models.Decision{Action: models.ActionBuyDown, Probability: 0.6400000000000001, Reason: models.ReasonInverseEdgeMet, Size: 10}},
	}
	for _, in := range inputs {
		d := in.d
		if err := ledger.InsertDecision(in.ts, "btc-5m, \"quoted\"", &d); err != nil {
			t.Fatalf("InsertDecision failed: %v", err)
		}
	}

	rows, err := ledger.Decisions()
	if err != nil {
		t.Fatalf("Decisions failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteDecisionsCSV(&buf, rows); err != nil {
		t.Fatalf("WriteDecisionsCSV failed: %v", err)
	}
	got, err := ReadDecisionsCSV(&buf)
	if err != nil {
		t.Fatalf("ReadDecisionsCSV failed: %v", err)
	}

	if len(got) != len(rows) {
		t.Fatalf("Expected %d rows, got %d", len(rows), len(got))
	}
	for i := range rows {
		if got[i] != rows[i] {
			t.Errorf("Row %d: expected %+v, got %+v", i, rows[i], got[i])
		}
	}
	if got[0].Timestamp != "2026-10-18T12:00:10.000000Z" {
		t.Errorf("Expected newest first, got %s", got[0].Timestamp)
	}
}

func TestWriteDecisionsCSV_Header(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDecisionsCSV(&buf, nil); err != nil {
		t.Fatalf("WriteDecisionsCSV failed: %v", err)
	}
	if got := buf.String(); got != "ts,market_slug,action,probability,reason,size\n" {
		t.Errorf("Unexpected header: %q", got)
	}
}

func TestReadDecisionsCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"wrong header", "a,b,c,d,e,f\n"},
		{"bad probability", "ts,market_slug,action,probability,reason,size\nx,m,BUY_UP,high,r,1\n"},
		{"short row", "ts,market_slug,action,probability,reason,size\nx,m\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadDecisionsCSV(strings.NewReader(tt.input)); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestDecisionsToFile_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "nested", "decisions.csv")
	rows := []models.DecisionRecord{{
		Timestamp:  "2026-10-18T12:00:00.000000Z",
		MarketSlug: "btc-5m",
		Decision:   models.Decision{Action: models.ActionBuyUp, Probability: 0.7, Reason: models.ReasonEdgeMet, Size: 10},
	}}

	if err := DecisionsToFile(path, rows); err != nil {
		t.Fatalf("DecisionsToFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "btc-5m,BUY_UP,0.7,edge_threshold_met,10") {
		t.Errorf("Unexpected file contents: %s", data)
	}
}
