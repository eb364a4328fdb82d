// Package security provides credential encryption and audit logging.
package security

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditEventType represents the type of audit event.
type AuditEventType string

const (
	// Trading events
	AuditOrderPlaced    AuditEventType = "ORDER_PLACED"
	AuditOrderBlocked   AuditEventType = "ORDER_BLOCKED"
	AuditOrderModified  AuditEventType = "ORDER_MODIFIED"
	AuditOrderCancelled AuditEventType = "ORDER_CANCELLED"

	// Trade plan events
	AuditPlanCreated  AuditEventType = "PLAN_CREATED"
	AuditPlanArchived AuditEventType = "PLAN_ARCHIVED"

	// Accounting events
	AuditPnLRecorded AuditEventType = "PNL_RECORDED"

	// Security events
	AuditCredentialAccess AuditEventType = "CREDENTIAL_ACCESS"
)

// AuditEvent represents a single audit log entry.
type AuditEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType AuditEventType         `json:"event_type"`
	Account   string                 `json:"account,omitempty"`
	Symbol    string                 `json:"symbol,omitempty"`
	OrderID   int64                  `json:"order_id,omitempty"`
	Action    string                 `json:"action,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Success   bool                   `json:"success"`
	ErrorMsg  string                 `json:"error,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
}

// AuditLogger writes one JSON line per trading action to a rotating
// audit log.
type AuditLogger struct {
	writer    *lumberjack.Logger
	mu        sync.Mutex
	sessionID string
	account   string
}

// AuditConfig holds audit logger configuration.
type AuditConfig struct {
	LogDir     string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultAuditConfig returns the default audit configuration.
func DefaultAuditConfig() AuditConfig {
	home, _ := os.UserHomeDir()
	return AuditConfig{
		LogDir:     filepath.Join(home, ".config", "tiger-trader", "audit"),
		MaxSize:    50,
		MaxBackups: 30,
		MaxAge:     365,
		Compress:   true,
	}
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(cfg AuditConfig) (*AuditLogger, error) {
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "audit.log"),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	return &AuditLogger{
		writer:    writer,
		sessionID: generateSessionID(),
	}, nil
}

// SetAccount sets the account for subsequent audit events.
func (al *AuditLogger) SetAccount(account string) {
	al.mu.Lock()
	defer al.mu.Unlock()
	al.account = account
}

// Log logs an audit event.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) error {
	al.mu.Lock()
	defer al.mu.Unlock()

	event.Timestamp = time.Now().UTC()
	event.SessionID = al.sessionID
	if event.Account == "" {
		event.Account = al.account
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializing audit event: %w", err)
	}
	if _, err := al.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}
	return nil
}

// LogOrderPlaced logs an order placement event, including any safety
// warnings that accompanied it.
func (al *AuditLogger) LogOrderPlaced(ctx context.Context, orderID int64, symbol, action string, qty int, orderType string, warnings []string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditOrderPlaced,
		OrderID:   orderID,
		Symbol:    symbol,
		Action:    action,
		Success:   true,
		Details: map[string]interface{}{
			"quantity":   qty,
			"order_type": orderType,
			"warnings":   warnings,
		},
	})
}

// LogOrderBlocked logs an order rejected by the pre-trade checks.
func (al *AuditLogger) LogOrderBlocked(ctx context.Context, symbol, action string, qty int, violations []string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditOrderBlocked,
		Symbol:    symbol,
		Action:    action,
		Success:   false,
		Details: map[string]interface{}{
			"quantity":   qty,
			"violations": violations,
		},
	})
}

// LogOrderModified logs an order modification event.
func (al *AuditLogger) LogOrderModified(ctx context.Context, orderID int64, changes map[string]interface{}) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditOrderModified,
		OrderID:   orderID,
		Success:   true,
		Details:   changes,
	})
}

// LogOrderCancelled logs an order cancellation event.
func (al *AuditLogger) LogOrderCancelled(ctx context.Context, orderID int64, success bool, errorMsg string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditOrderCancelled,
		OrderID:   orderID,
		Success:   success,
		ErrorMsg:  errorMsg,
	})
}

// LogPlanCreated logs a trade plan creation event.
func (al *AuditLogger) LogPlanCreated(ctx context.Context, orderID int64, symbol, reason string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditPlanCreated,
		OrderID:   orderID,
		Symbol:    symbol,
		Success:   true,
		Details:   map[string]interface{}{"reason": reason},
	})
}

// LogPlanArchived logs a trade plan archival event.
func (al *AuditLogger) LogPlanArchived(ctx context.Context, orderID int64, archiveReason string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditPlanArchived,
		OrderID:   orderID,
		Success:   true,
		Details:   map[string]interface{}{"archive_reason": archiveReason},
	})
}

// LogPnLRecorded logs a realized P&L entry.
func (al *AuditLogger) LogPnLRecorded(ctx context.Context, amount, dailyTotal float64) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditPnLRecorded,
		Success:   true,
		Details: map[string]interface{}{
			"amount":      amount,
			"daily_total": dailyTotal,
		},
	})
}

// Close closes the audit logger.
func (al *AuditLogger) Close() error {
	return al.writer.Close()
}

// MaskSensitive redacts all but the last four characters of a value.
func MaskSensitive(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}

// generateSessionID generates a unique session ID.
func generateSessionID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
