// Package heartbeat publishes a short human-readable status snapshot of the loop.
// The file sink is the primary output; other sinks mirror the same fields.
package heartbeat

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// NotAvailable is reported for any missing value.
const NotAvailable = "N/A"

// Header is the first line of the status file.
const Header = "# BOTIA_5M_V3 STATUS"

// State is the snapshot reported by one heartbeat.
type State struct {
	Mode     string
	Market   string
	RefPrice *float64
	Decision string
	Reason   string
}

// Fields returns the snapshot as ordered key/value pairs, stamped with updatedAt.
func (s State) Fields(updatedAt time.Time) [][2]string {
	return [][2]string{
		{"updated_at", updatedAt.UTC().Format(time.RFC3339Nano)},
		{"mode", orNA(s.Mode)},
		{"last_market", orNA(s.Market)},
		{"last_ref_price", s.refPriceText()},
		{"last_decision", orNA(s.Decision)},
		{"last_reason", orNA(s.Reason)},
	}
}

func (s State) refPriceText() string {
	if s.RefPrice == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*s.RefPrice, 'f', -1, 64)
}

func orNA(v string) string {
	if v == "" {
		return NotAvailable
	}
	return v
}

// Writer emits a status snapshot.
type Writer interface {
	Write(path string, state State) error
}

// FileWriter writes the snapshot as a small text file, replacing it atomically.
type FileWriter struct {
	now func() time.Time
}

// NewFileWriter creates a file writer using the wall clock.
func NewFileWriter() *FileWriter {
	return &FileWriter{now: time.Now}
}

// Render builds the status file body.
func Render(state State, updatedAt time.Time) string {
	lines := []string{Header}
	for _, kv := range state.Fields(updatedAt) {
		lines = append(lines, kv[0]+": "+kv[1])
	}
	return strings.Join(lines, "\n") + "\n"
}

// Write implements Writer.
func (w *FileWriter) Write(path string, state State) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create status directory: %w", err)
		}
	}

	// Write to temporary file first (atomic write)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, []byte(Render(state, w.now())), 0o644); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status: %w", err)
	}
	return nil
}

// Multi fans a snapshot out to several writers and joins their errors.
type Multi []Writer

// Write implements Writer.
func (m Multi) Write(path string, state State) error {
	var errs []error
	for _, w := range m {
		if err := w.Write(path, state); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ReadStatus returns the status file contents, or "STATUS.md not found" when absent.
func ReadStatus(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "STATUS.md not found", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read status: %w", err)
	}
	return string(data), nil
}
