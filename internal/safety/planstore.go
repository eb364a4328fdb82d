package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// PlanStatus is the lifecycle state of a trade plan.
type PlanStatus string

const (
	PlanActive   PlanStatus = "active"
	PlanArchived PlanStatus = "archived"
)

// Modification is one recorded change to an active trade plan. Entries are
// append-only and never edited after creation.
type Modification struct {
	Timestamp time.Time      `json:"timestamp"`
	Changes   map[string]any `json:"changes"`
	Reason    string         `json:"reason"`
}

// TradePlan is the durable rationale record attached to one placed order,
// independent of the broker's own order record.
type TradePlan struct {
	OrderID       int64          `json:"order_id"`
	Symbol        string         `json:"symbol"`
	Action        string         `json:"action"`
	Quantity      int            `json:"quantity"`
	OrderType     string         `json:"order_type"`
	LimitPrice    *float64       `json:"limit_price"`
	StopPrice     *float64       `json:"stop_price"`
	Reason        string         `json:"reason"`
	Status        PlanStatus     `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	ModifiedAt    *time.Time     `json:"modified_at"`
	ArchivedAt    *time.Time     `json:"archived_at"`
	ArchiveReason string         `json:"archive_reason"`
	Modifications []Modification `json:"modifications"`
}

// PlanRequest carries the order terms and rationale for a new trade plan.
type PlanRequest struct {
	OrderID    int64
	Symbol     string
	Action     string
	Quantity   int
	OrderType  string
	Reason     string
	LimitPrice *float64
	StopPrice  *float64
}

// TradePlanStore persists trade plans across restarts. Active plans live
// in trade_plans.json, archived plans in trade_plans_archive.json, both
// under the state dir. Every write is atomic (temp file + rename) so a
// crash mid-save never leaves a half-written file. An order id maps to at
// most one plan across both sets; once archived a plan never re-activates.
//
// Like DailyState, the store assumes a single writer per process.
type TradePlanStore struct {
	dir         string
	activeFile  string
	archiveFile string
	logger      zerolog.Logger
	now         func() time.Time

	active   map[int64]*TradePlan
	archived map[int64]*TradePlan
}

// NewTradePlanStore creates the store rooted at dir and loads both plan
// files if present. A file with corrupt contents is logged and treated as
// empty; plan history is best-effort audit data, so load never fails.
func NewTradePlanStore(dir string, logger zerolog.Logger) (*TradePlanStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}
	s := &TradePlanStore{
		dir:         dir,
		activeFile:  filepath.Join(dir, "trade_plans.json"),
		archiveFile: filepath.Join(dir, "trade_plans_archive.json"),
		logger:      logger,
		now:         time.Now,
		active:      make(map[int64]*TradePlan),
		archived:    make(map[int64]*TradePlan),
	}
	s.active = s.loadFile(s.activeFile)
	s.archived = s.loadFile(s.archiveFile)
	return s, nil
}

// Create builds a new active plan for req, persists the active set, and
// returns the plan.
func (s *TradePlanStore) Create(req PlanRequest) (*TradePlan, error) {
	plan := &TradePlan{
		OrderID:       req.OrderID,
		Symbol:        req.Symbol,
		Action:        req.Action,
		Quantity:      req.Quantity,
		OrderType:     req.OrderType,
		LimitPrice:    req.LimitPrice,
		StopPrice:     req.StopPrice,
		Reason:        req.Reason,
		Status:        PlanActive,
		CreatedAt:     s.now(),
		Modifications: []Modification{},
	}
	s.active[req.OrderID] = plan
	if err := s.saveActive(); err != nil {
		return nil, err
	}
	return plan, nil
}

// RecordModification appends a modification entry to the active plan for
// orderID and persists. Unknown or already-archived order ids are a no-op.
func (s *TradePlanStore) RecordModification(orderID int64, changes map[string]any, reason string) error {
	plan, ok := s.active[orderID]
	if !ok {
		return nil
	}
	now := s.now()
	plan.Modifications = append(plan.Modifications, Modification{
		Timestamp: now,
		Changes:   changes,
		Reason:    reason,
	})
	plan.ModifiedAt = &now
	return s.saveActive()
}

// Archive moves the plan for orderID from the active set to the archive.
// Unknown order ids are a no-op.
func (s *TradePlanStore) Archive(orderID int64, archiveReason string) error {
	plan, ok := s.active[orderID]
	if !ok {
		return nil
	}
	delete(s.active, orderID)
	s.archivePlan(plan, archiveReason)
	if err := s.saveActive(); err != nil {
		return err
	}
	return s.saveArchive()
}

// ArchiveAll archives every active plan with the same reason, persisting
// both sets once at the end.
func (s *TradePlanStore) ArchiveAll(reason string) error {
	for id, plan := range s.active {
		delete(s.active, id)
		s.archivePlan(plan, reason)
	}
	if err := s.saveActive(); err != nil {
		return err
	}
	return s.saveArchive()
}

// ActivePlans returns a snapshot copy of the active set.
func (s *TradePlanStore) ActivePlans() map[int64]*TradePlan {
	out := make(map[int64]*TradePlan, len(s.active))
	for id, plan := range s.active {
		out[id] = plan
	}
	return out
}

// Plan looks up a plan by order id, checking the active set first and
// falling back to the archive. Returns nil when no plan exists.
func (s *TradePlanStore) Plan(orderID int64) *TradePlan {
	if plan, ok := s.active[orderID]; ok {
		return plan
	}
	return s.archived[orderID]
}

func (s *TradePlanStore) archivePlan(plan *TradePlan, reason string) {
	now := s.now()
	plan.Status = PlanArchived
	plan.ArchivedAt = &now
	plan.ArchiveReason = reason
	s.archived[plan.OrderID] = plan
}

func (s *TradePlanStore) saveActive() error {
	return s.saveFile(s.activeFile, s.active)
}

func (s *TradePlanStore) saveArchive() error {
	return s.saveFile(s.archiveFile, s.archived)
}

// saveFile writes plans atomically: serialize to a temp file in the same
// directory, then rename over the target. The temp file is removed on any
// failure so the target never observes partial content.
func (s *TradePlanStore) saveFile(path string, plans map[int64]*TradePlan) error {
	payload := make(map[string]*TradePlan, len(plans))
	for id, plan := range plans {
		payload[strconv.FormatInt(id, 10)] = plan
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding trade plans: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing trade plans: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func (s *TradePlanStore) loadFile(path string) map[int64]*TradePlan {
	plans := make(map[int64]*TradePlan)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", path).Msg("Failed to read trade plans, starting empty")
		}
		return plans
	}
	var payload map[string]*TradePlan
	if err := json.Unmarshal(data, &payload); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Failed to parse trade plans, starting empty")
		return plans
	}
	for key, plan := range payload {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || plan == nil {
			s.logger.Warn().Str("path", path).Str("key", key).Msg("Skipping malformed trade plan entry")
			continue
		}
		plans[id] = plan
	}
	return plans
}
