package store

import (
	"context"
	"encoding/json"
	"time"

	"perpdesk/internal/market"
	"perpdesk/internal/router"
)

// JournalRecord is one persisted router call as read back for display.
type JournalRecord struct {
	ID        int64              `json:"id"`
	Action    router.Action      `json:"action"`
	Exchange  market.Exchange    `json:"exchange"`
	Asset     string             `json:"asset"`
	ClientID  string             `json:"clientId,omitempty"`
	Request   json.RawMessage    `json:"request"`
	Result    router.OrderResult `json:"result"`
	LatencyMS int64              `json:"latencyMs"`
	At        time.Time          `json:"at"`
}

// Journal persists order router activity.
type Journal interface {
	// Record stores one router call.
	Record(ctx context.Context, e router.Entry) error
	// ListRecent returns the newest records first; an empty exchange
	// matches every venue and limit <= 0 means DefaultListLimit.
	ListRecent(ctx context.Context, ex market.Exchange, limit int) ([]JournalRecord, error)
	// Close releases the backing storage.
	Close() error
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// ToRecord converts a router entry to its stored form.
func ToRecord(e router.Entry) JournalRecord {
	req, err := json.Marshal(e.Request)
	if err != nil || e.Request == nil {
		req = json.RawMessage("null")
	}
	return JournalRecord{
		Action:    e.Action,
		Exchange:  e.Exchange,
		Asset:     e.Asset,
		ClientID:  e.ClientID,
		Request:   req,
		Result:    e.Result,
		LatencyMS: e.Latency.Milliseconds(),
		At:        e.At,
	}
}
