// Package storage provides the append-only audit ledger for the trading loop.
// Five independent record kinds are kept in relational tables: market snapshots,
// price ticks, decisions, rounds and paper trades. The core only ever inserts, so
// the ledger is a complete, replayable trail of every cycle.
//
// SQLite (modernc.org/sqlite, pure Go) is the default backend; PostgreSQL is
// supported through lib/pq. Statements are written with ? placeholders and
// rebound for the active driver.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite"

	"github.com/rewired-gh/botia5m/internal/models"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS markets(ts TEXT, market_slug TEXT, question TEXT, close_time TEXT, raw_json TEXT)`,
	`CREATE TABLE IF NOT EXISTS ticks(ts TEXT, symbol TEXT, ref_price DOUBLE PRECISION, raw_json TEXT)`,
	`CREATE TABLE IF NOT EXISTS decisions(ts TEXT, market_slug TEXT, action TEXT, probability DOUBLE PRECISION, reason TEXT, size DOUBLE PRECISION)`,
	`CREATE TABLE IF NOT EXISTS rounds(ts TEXT, market_slug TEXT, status TEXT, reason TEXT)`,
	`CREATE TABLE IF NOT EXISTS trades_paper(ts TEXT, order_id TEXT, market_slug TEXT, side TEXT, price DOUBLE PRECISION, size DOUBLE PRECISION, reason TEXT)`,
}

// Ledger is the append-only store. It is used by a single goroutine at a time.
type Ledger struct {
	db     *sql.DB
	driver string
}

// Open connects to the ledger. For sqlite, source is a file path whose parent
// directory is created; for postgres it is a DSN.
func Open(driver, source string) (*Ledger, error) {
	switch driver {
	case DriverSQLite:
		if dir := filepath.Dir(source); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	if driver == DriverSQLite {
		// One writer; avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping ledger: %w", err)
	}

	return &Ledger{db: db, driver: driver}, nil
}

// EnsureSchema creates any missing table. Safe to call on every start.
func (l *Ledger) EnsureSchema() error {
	for _, stmt := range schema {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Ping checks if the ledger is reachable
func (l *Ledger) Ping() error {
	return l.db.Ping()
}

// Exec runs a mutating statement with positional parameters.
func (l *Ledger) Exec(query string, args ...any) error {
	if _, err := l.db.Exec(l.rebind(query), args...); err != nil {
		return fmt.Errorf("ledger exec failed: %w", err)
	}
	return nil
}

// FetchAll runs a read query and returns every matching row.
func (l *Ledger) FetchAll(query string, args ...any) ([][]any, error) {
	rows, err := l.db.Query(l.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("ledger query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			// Drivers may hand back text as []byte
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, values)
	}
	return out, rows.Err()
}

// rebind rewrites ? placeholders to $n for postgres.
func (l *Ledger) rebind(query string) string {
	if l.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// InsertMarket appends a market snapshot.
func (l *Ledger) InsertMarket(ts string, m *models.MarketSnapshot) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid market: %w", err)
	}
	return l.Exec(
		"INSERT INTO markets(ts, market_slug, question, close_time, raw_json) VALUES (?, ?, ?, ?, ?)",
		ts, m.Slug, m.Question, m.CloseTime, m.RawJSON(),
	)
}

// InsertTick appends a price tick; a missing price is stored as NULL.
func (l *Ledger) InsertTick(t *models.PriceTick) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid tick: %w", err)
	}
	var price sql.NullFloat64
	if t.Price != nil {
		price = sql.NullFloat64{Float64: *t.Price, Valid: true}
	}
	return l.Exec(
		"INSERT INTO ticks(ts, symbol, ref_price, raw_json) VALUES (?, ?, ?, ?)",
		models.FormatTimestamp(t.Timestamp), t.Symbol, price, t.RawJSON(),
	)
}

// InsertDecision appends a finalized decision.
func (l *Ledger) InsertDecision(ts, marketSlug string, d *models.Decision) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("invalid decision: %w", err)
	}
	return l.Exec(
		"INSERT INTO decisions(ts, market_slug, action, probability, reason, size) VALUES (?, ?, ?, ?, ?, ?)",
		ts, marketSlug, string(d.Action), d.Probability, d.Reason, d.Size,
	)
}

// InsertRound appends the outcome record of a cycle.
func (l *Ledger) InsertRound(r *models.Round) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid round: %w", err)
	}
	return l.Exec(
		"INSERT INTO rounds(ts, market_slug, status, reason) VALUES (?, ?, ?, ?)",
		models.FormatTimestamp(r.Timestamp), r.MarketSlug, string(r.Status), r.Reason,
	)
}

// InsertPaperTrade appends a simulated fill.
func (l *Ledger) InsertPaperTrade(p *models.PaperTrade) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid trade: %w", err)
	}
	return l.Exec(
		"INSERT INTO trades_paper(ts, order_id, market_slug, side, price, size, reason) VALUES (?, ?, ?, ?, ?, ?, ?)",
		models.FormatTimestamp(p.Timestamp), p.OrderID, p.MarketSlug, string(p.Side), p.Price, p.Size, p.Reason,
	)
}

// CountPaperTrades returns how many paper trades were ever recorded for a market slug.
func (l *Ledger) CountPaperTrades(marketSlug string) (int, error) {
	var n int
	err := l.db.QueryRow(l.rebind("SELECT COUNT(*) FROM trades_paper WHERE market_slug = ?"), marketSlug).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return n, nil
}

// CountRows returns the number of rows in one of the ledger tables.
func (l *Ledger) CountRows(table string) (int, error) {
	switch table {
	case "markets", "ticks", "decisions", "rounds", "trades_paper":
	default:
		return 0, fmt.Errorf("unknown table: %s", table)
	}
	var n int
	if err := l.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// Decisions returns every decision, newest first.
func (l *Ledger) Decisions() ([]models.DecisionRecord, error) {
	rows, err := l.db.Query("SELECT ts, market_slug, action, probability, reason, size FROM decisions ORDER BY ts DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var out []models.DecisionRecord
	for rows.Next() {
		var rec models.DecisionRecord
		var action string
		if err := rows.Scan(&rec.Timestamp, &rec.MarketSlug, &action, &rec.Probability, &rec.Reason, &rec.Size); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		rec.Action = models.Action(action)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Rounds returns every round in insertion order.
func (l *Ledger) Rounds() ([]models.Round, error) {
	rows, err := l.db.Query("SELECT ts, market_slug, status, reason FROM rounds ORDER BY ts ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	var out []models.Round
	for rows.Next() {
		var ts, status string
		var r models.Round
		if err := rows.Scan(&ts, &r.MarketSlug, &status, &r.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		parsed, err := parseTimestamp(ts)
		if err != nil {
			return nil, err
		}
		r.Timestamp = parsed
		r.Status = models.Action(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
