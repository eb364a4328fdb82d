package journal

import (
	"context"
	"path/filepath"
	"testing"

	"tiger-trader/internal/models"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndListOrders(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	result := models.OrderResult{
		OrderID:   1001,
		Symbol:    "AAPL",
		Action:    models.Buy,
		Quantity:  10,
		OrderType: models.Limit,
		Status:    "NEW",
	}
	if err := j.RecordOrder(ctx, result, []string{"concentration warning"}); err != nil {
		t.Fatalf("RecordOrder: %v", err)
	}
	if err := j.RecordStatus(ctx, 1001, "AAPL", "CANCELLED"); err != nil {
		t.Fatalf("RecordStatus: %v", err)
	}

	entries, err := j.Orders(ctx, 10)
	if err != nil {
		t.Fatalf("Orders: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	// Newest first.
	if entries[0].Status != "CANCELLED" {
		t.Errorf("first status = %q, want CANCELLED", entries[0].Status)
	}
	if entries[1].Warnings != "concentration warning" {
		t.Errorf("warnings = %q", entries[1].Warnings)
	}
}

func TestPnLAccumulation(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	if err := j.RecordPnL(ctx, "2026-08-29", -120.50, "stopped out"); err != nil {
		t.Fatalf("RecordPnL: %v", err)
	}
	if err := j.RecordPnL(ctx, "2026-08-29", 300.00, "target hit"); err != nil {
		t.Fatalf("RecordPnL: %v", err)
	}
	if err := j.RecordPnL(ctx, "2026-08-30", 50.00, ""); err != nil {
		t.Fatalf("RecordPnL: %v", err)
	}

	total, err := j.PnLTotal(ctx, "2026-08-29")
	if err != nil {
		t.Fatalf("PnLTotal: %v", err)
	}
	if total != 179.50 {
		t.Errorf("total = %.2f, want 179.50", total)
	}

	entries, err := j.PnL(ctx, "2026-08-29")
	if err != nil {
		t.Fatalf("PnL: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("entries = %d, want 2", len(entries))
	}
}

func TestPnLTotalEmptyDate(t *testing.T) {
	j := openTestJournal(t)
	total, err := j.PnLTotal(context.Background(), "1999-01-01")
	if err != nil {
		t.Fatalf("PnLTotal: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %.2f, want 0", total)
	}
}
