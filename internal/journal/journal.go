// Package journal persists a local record of trading activity in
// SQLite, independent of the broker's own history.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tiger-trader/internal/models"
)

// Journal is a SQLite-backed log of orders and realized P&L entries.
type Journal struct {
	db *sql.DB
}

// OrderEntry is one recorded order event.
type OrderEntry struct {
	ID        int64
	OrderID   int64
	Symbol    string
	Action    string
	Quantity  int
	OrderType string
	Status    string
	Warnings  string
	CreatedAt time.Time
}

// PnLEntry is one recorded realized P&L amount.
type PnLEntry struct {
	ID        int64
	Date      string
	Amount    float64
	Note      string
	CreatedAt time.Time
}

// Open opens (or creates) a journal database at the given path.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	j := &Journal{db: db}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		action TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		order_type TEXT NOT NULL,
		status TEXT NOT NULL,
		warnings TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol);
	CREATE INDEX IF NOT EXISTS idx_orders_order_id ON orders(order_id);

	CREATE TABLE IF NOT EXISTS pnl_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date DATE NOT NULL,
		amount REAL NOT NULL,
		note TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_pnl_date ON pnl_entries(date);
	`
	_, err := j.db.Exec(schema)
	return err
}

// RecordOrder writes one order event.
func (j *Journal) RecordOrder(ctx context.Context, result models.OrderResult, warnings []string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO orders (order_id, symbol, action, quantity, order_type, status, warnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.OrderID, result.Symbol, string(result.Action), result.Quantity,
		string(result.OrderType), result.Status, strings.Join(warnings, "; "))
	if err != nil {
		return fmt.Errorf("recording order: %w", err)
	}
	return nil
}

// RecordStatus appends a status change for an existing order, e.g. a
// cancellation or modification.
func (j *Journal) RecordStatus(ctx context.Context, orderID int64, symbol, status string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO orders (order_id, symbol, action, quantity, order_type, status)
		 VALUES (?, ?, '', 0, '', ?)`,
		orderID, symbol, status)
	if err != nil {
		return fmt.Errorf("recording order status: %w", err)
	}
	return nil
}

// RecordPnL writes one realized P&L entry for the given date
// (YYYY-MM-DD).
func (j *Journal) RecordPnL(ctx context.Context, date string, amount float64, note string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO pnl_entries (date, amount, note) VALUES (?, ?, ?)`,
		date, amount, note)
	if err != nil {
		return fmt.Errorf("recording pnl: %w", err)
	}
	return nil
}

// Orders returns the most recent order events, newest first.
func (j *Journal) Orders(ctx context.Context, limit int) ([]OrderEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, order_id, symbol, action, quantity, order_type, status, COALESCE(warnings, ''), created_at
		 FROM orders ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	var entries []OrderEntry
	for rows.Next() {
		var e OrderEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Symbol, &e.Action, &e.Quantity,
			&e.OrderType, &e.Status, &e.Warnings, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PnL returns all P&L entries for a date, oldest first.
func (j *Journal) PnL(ctx context.Context, date string) ([]PnLEntry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, date, amount, COALESCE(note, ''), created_at
		 FROM pnl_entries WHERE date = ? ORDER BY id`, date)
	if err != nil {
		return nil, fmt.Errorf("querying pnl: %w", err)
	}
	defer rows.Close()

	var entries []PnLEntry
	for rows.Next() {
		var e PnLEntry
		if err := rows.Scan(&e.ID, &e.Date, &e.Amount, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning pnl: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PnLTotal returns the summed realized P&L for a date.
func (j *Journal) PnLTotal(ctx context.Context, date string) (float64, error) {
	var total float64
	err := j.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM pnl_entries WHERE date = ?`, date).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing pnl: %w", err)
	}
	return total, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
