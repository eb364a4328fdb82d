// Package safety implements the pre-trade safety gate: the daily state
// tracker, the trade plan store, and the rule engine that validates every
// order before it reaches the broker.
package safety

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// DefaultDuplicateWindow is how far back HasRecentOrder searches for a
// matching fingerprint.
const DefaultDuplicateWindow = 60 * time.Second

// RecentOrder is one recorded order fingerprint with its submission time
// (unix seconds, fractional).
type RecentOrder struct {
	Fingerprint string  `json:"fingerprint"`
	Timestamp   float64 `json:"timestamp"`
}

type dailyStateFile struct {
	Date         string        `json:"date"`
	RealizedPnL  float64       `json:"realized_pnl"`
	RecentOrders []RecentOrder `json:"recent_orders"`
}

// DailyState tracks realized P&L and recently submitted order fingerprints
// for the current calendar day, persisted to state_dir/YYYY-MM-DD.json
// after every mutation. When the wall-clock date changes, the in-memory
// state resets to a fresh day on the next access; the previous day's file
// stays on disk as a historical record.
//
// DailyState assumes a single writer per process. Callers issuing
// concurrent mutations must serialize them externally.
type DailyState struct {
	dir    string
	logger zerolog.Logger
	now    func() time.Time

	date         string
	realizedPnL  float64
	recentOrders []RecentOrder
}

// NewDailyState creates a tracker rooted at dir, adopting today's on-disk
// state if a file for the current date exists. A file that cannot be
// parsed is logged and ignored; the day starts fresh.
func NewDailyState(dir string, logger zerolog.Logger) *DailyState {
	s := &DailyState{
		dir:    dir,
		logger: logger,
		now:    time.Now,
	}
	s.date = s.today()
	s.load()
	return s
}

// RecordPnL adds amount (negative for a loss) to today's realized P&L and
// persists the new state.
func (s *DailyState) RecordPnL(amount float64) error {
	s.ensureToday()
	s.realizedPnL += amount
	return s.save()
}

// RecordOrder appends fingerprint with the current timestamp to today's
// recent-order list and persists.
func (s *DailyState) RecordOrder(fingerprint string) error {
	s.ensureToday()
	s.recentOrders = append(s.recentOrders, RecentOrder{
		Fingerprint: fingerprint,
		Timestamp:   float64(s.now().UnixNano()) / 1e9,
	})
	return s.save()
}

// HasRecentOrder reports whether fingerprint was recorded within the
// default duplicate window.
func (s *DailyState) HasRecentOrder(fingerprint string) bool {
	return s.HasRecentOrderWithin(fingerprint, DefaultDuplicateWindow)
}

// HasRecentOrderWithin reports whether fingerprint was recorded within
// window of now. Entries older than the window are pruned from memory as
// a side effect; the shrunken list reaches disk on the next mutation.
func (s *DailyState) HasRecentOrderWithin(fingerprint string, window time.Duration) bool {
	s.ensureToday()
	cutoff := float64(s.now().UnixNano())/1e9 - window.Seconds()

	kept := s.recentOrders[:0]
	for _, entry := range s.recentOrders {
		if entry.Timestamp >= cutoff {
			kept = append(kept, entry)
		}
	}
	s.recentOrders = kept

	for _, entry := range s.recentOrders {
		if entry.Fingerprint == fingerprint {
			return true
		}
	}
	return false
}

// DailyPnL returns the realized P&L accumulated so far today.
func (s *DailyState) DailyPnL() float64 {
	s.ensureToday()
	return s.realizedPnL
}

// Date returns the calendar date the state currently tracks (YYYY-MM-DD).
func (s *DailyState) Date() string {
	s.ensureToday()
	return s.date
}

// RecentOrders returns a snapshot of today's recorded fingerprints.
func (s *DailyState) RecentOrders() []RecentOrder {
	s.ensureToday()
	out := make([]RecentOrder, len(s.recentOrders))
	copy(out, s.recentOrders)
	return out
}

// Fingerprint returns a deterministic SHA-256 hash over the order fields
// used for duplicate detection. A nil limit price hashes differently from
// a zero limit price.
func Fingerprint(symbol, action string, quantity int, orderType string, limitPrice *float64) string {
	price := "none"
	if limitPrice != nil {
		price = strconv.FormatFloat(*limitPrice, 'f', -1, 64)
	}
	raw := fmt.Sprintf("%s|%s|%d|%s|%s", symbol, action, quantity, orderType, price)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (s *DailyState) today() string {
	return s.now().Format("2006-01-02")
}

// ensureToday resets the in-memory state when the calendar date has
// changed since the last access.
func (s *DailyState) ensureToday() {
	today := s.today()
	if s.date != today {
		s.date = today
		s.realizedPnL = 0
		s.recentOrders = nil
	}
}

func (s *DailyState) filePath() string {
	return filepath.Join(s.dir, s.date+".json")
}

func (s *DailyState) save() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	payload := dailyStateFile{
		Date:         s.date,
		RealizedPnL:  s.realizedPnL,
		RecentOrders: s.recentOrders,
	}
	if payload.RecentOrders == nil {
		payload.RecentOrders = []RecentOrder{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding daily state: %w", err)
	}
	if err := os.WriteFile(s.filePath(), data, 0o644); err != nil {
		return fmt.Errorf("writing daily state: %w", err)
	}
	return nil
}

func (s *DailyState) load() {
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", s.filePath()).Msg("Failed to read daily state, starting fresh")
		}
		return
	}
	var payload dailyStateFile
	if err := json.Unmarshal(data, &payload); err != nil {
		s.logger.Warn().Err(err).Str("path", s.filePath()).Msg("Failed to parse daily state, starting fresh")
		return
	}
	s.date = payload.Date
	s.realizedPnL = payload.RealizedPnL
	s.recentOrders = payload.RecentOrders
}
