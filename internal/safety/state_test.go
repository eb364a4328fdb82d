package safety

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestState(t *testing.T) (*DailyState, string) {
	t.Helper()
	dir := t.TempDir()
	return NewDailyState(dir, zerolog.Nop()), dir
}

func TestFreshStateIsEmpty(t *testing.T) {
	state, _ := newTestState(t)

	if pnl := state.DailyPnL(); pnl != 0 {
		t.Errorf("fresh state P&L = %v, want 0", pnl)
	}
	if got := state.Date(); got != time.Now().Format("2006-01-02") {
		t.Errorf("fresh state date = %q, want today", got)
	}
	if orders := state.RecentOrders(); len(orders) != 0 {
		t.Errorf("fresh state has %d recent orders, want 0", len(orders))
	}
}

func TestRecordPnLAccumulates(t *testing.T) {
	state, _ := newTestState(t)

	if err := state.RecordPnL(100.0); err != nil {
		t.Fatalf("RecordPnL: %v", err)
	}
	if err := state.RecordPnL(-30.5); err != nil {
		t.Fatalf("RecordPnL: %v", err)
	}
	if got := state.DailyPnL(); got != 69.5 {
		t.Errorf("DailyPnL = %v, want 69.5", got)
	}
}

func TestDayRolloverResetsState(t *testing.T) {
	state, _ := newTestState(t)
	if err := state.RecordPnL(250.0); err != nil {
		t.Fatalf("RecordPnL: %v", err)
	}
	fp := Fingerprint("AAPL", "BUY", 100, "LMT", floatPtr(150.0))
	if err := state.RecordOrder(fp); err != nil {
		t.Fatalf("RecordOrder: %v", err)
	}

	// Move the clock one day forward.
	state.now = func() time.Time { return time.Now().Add(24 * time.Hour) }

	if got := state.DailyPnL(); got != 0 {
		t.Errorf("P&L after rollover = %v, want 0", got)
	}
	if state.HasRecentOrder(fp) {
		t.Error("recent order survived rollover")
	}
	if got, want := state.Date(), state.now().Format("2006-01-02"); got != want {
		t.Errorf("date after rollover = %q, want %q", got, want)
	}
}

func TestRolloverLeavesOldFileOnDisk(t *testing.T) {
	state, dir := newTestState(t)
	if err := state.RecordPnL(10); err != nil {
		t.Fatalf("RecordPnL: %v", err)
	}
	oldFile := filepath.Join(dir, time.Now().Format("2006-01-02")+".json")

	state.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	if err := state.RecordPnL(5); err != nil {
		t.Fatalf("RecordPnL after rollover: %v", err)
	}

	if _, err := os.Stat(oldFile); err != nil {
		t.Errorf("previous day's file missing after rollover: %v", err)
	}
}

func TestStateSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	state := NewDailyState(dir, zerolog.Nop())
	if err := state.RecordPnL(-120.25); err != nil {
		t.Fatalf("RecordPnL: %v", err)
	}
	fp := Fingerprint("TSLA", "SELL", 50, "MKT", nil)
	if err := state.RecordOrder(fp); err != nil {
		t.Fatalf("RecordOrder: %v", err)
	}

	reloaded := NewDailyState(dir, zerolog.Nop())
	if got := reloaded.DailyPnL(); got != -120.25 {
		t.Errorf("reloaded P&L = %v, want -120.25", got)
	}
	if !reloaded.HasRecentOrder(fp) {
		t.Error("reloaded state lost the recent order")
	}
}

func TestStateFileFormat(t *testing.T) {
	state, dir := newTestState(t)
	if err := state.RecordOrder("abc123"); err != nil {
		t.Fatalf("RecordOrder: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, state.Date()+".json"))
	if err != nil {
		t.Fatalf("reading state file: %v", err)
	}
	var payload struct {
		Date         string        `json:"date"`
		RealizedPnL  *float64      `json:"realized_pnl"`
		RecentOrders []RecentOrder `json:"recent_orders"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("parsing state file: %v", err)
	}
	if payload.Date != state.Date() {
		t.Errorf("file date = %q, want %q", payload.Date, state.Date())
	}
	if payload.RealizedPnL == nil {
		t.Error("realized_pnl missing from state file")
	}
	if len(payload.RecentOrders) != 1 || payload.RecentOrders[0].Fingerprint != "abc123" {
		t.Errorf("recent_orders = %+v, want one entry with fingerprint abc123", payload.RecentOrders)
	}
}

func TestCorruptStateFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, time.Now().Format("2006-01-02")+".json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	state := NewDailyState(dir, zerolog.Nop())
	if got := state.DailyPnL(); got != 0 {
		t.Errorf("P&L from corrupt file = %v, want 0", got)
	}
}

func TestHasRecentOrderWindow(t *testing.T) {
	state, _ := newTestState(t)
	fp := Fingerprint("NVDA", "BUY", 10, "LMT", floatPtr(500))
	if err := state.RecordOrder(fp); err != nil {
		t.Fatalf("RecordOrder: %v", err)
	}

	if !state.HasRecentOrder(fp) {
		t.Error("order not detected within window")
	}
	other := Fingerprint("NVDA", "BUY", 11, "LMT", floatPtr(500))
	if state.HasRecentOrder(other) {
		t.Error("different fingerprint reported as recent")
	}

	// Move past the window; the entry must be pruned, not just hidden.
	state.now = func() time.Time { return time.Now().Add(2 * DefaultDuplicateWindow) }
	if state.HasRecentOrder(fp) {
		t.Error("expired order still detected")
	}
	if n := len(state.RecentOrders()); n != 0 {
		t.Errorf("expired entries not pruned, %d remain", n)
	}
}

func floatPtr(v float64) *float64 { return &v }
