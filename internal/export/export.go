// Package export writes ledger decisions to flat files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rewired-gh/botia5m/internal/models"
)

// Header is the column order of a decisions export.
var Header = []string{"ts", "market_slug", "action", "probability", "reason", "size"}

// WriteDecisionsCSV writes the header and one line per decision, in the given order.
func WriteDecisionsCSV(w io.Writer, rows []models.DecisionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Timestamp,
			r.MarketSlug,
			string(r.Action),
			strconv.FormatFloat(r.Probability, 'f', -1, 64),
			r.Reason,
			strconv.FormatFloat(r.Size, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadDecisionsCSV parses a file produced by WriteDecisionsCSV.
func ReadDecisionsCSV(r io.Reader) ([]models.DecisionRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, col := range Header {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected column %d: %q", i, header[i])
		}
	}

	var out []models.DecisionRecord
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		prob, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid probability on line %d: %w", line, err)
		}
		size, err := strconv.ParseFloat(record[5], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid size on line %d: %w", line, err)
		}
		out = append(out, models.DecisionRecord{
			Timestamp:  record[0],
			MarketSlug: record[1],
			Decision: models.Decision{
				Action:      models.Action(record[2]),
				Probability: prob,
				Reason:      record[4],
				Size:        size,
			},
		})
	}
	return out, nil
}

// DecisionsToFile writes rows to path, creating parent directories.
func DecisionsToFile(path string, rows []models.DecisionRecord) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := WriteDecisionsCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
