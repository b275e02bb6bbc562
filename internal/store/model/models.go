package model

import (
	"time"

	"gorm.io/datatypes"
)

// JournalEntryModel is one row of the order journal.
type JournalEntryModel struct {
	ID        int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Action    string         `gorm:"column:action;size:16"`
	Exchange  string         `gorm:"column:exchange;size:32;index:idx_journal_exchange_created"`
	Asset     string         `gorm:"column:asset;size:32"`
	ClientID  string         `gorm:"column:client_id;size:64;index"`
	Success   bool           `gorm:"column:success"`
	Message   string         `gorm:"column:message"`
	OrderID   string         `gorm:"column:order_id;size:64"`
	LatencyMS int64          `gorm:"column:latency_ms"`
	Request   datatypes.JSON `gorm:"column:request"`
	Raw       datatypes.JSON `gorm:"column:raw"`
	CreatedAt time.Time      `gorm:"column:created_at;index:idx_journal_exchange_created"`
}

func (JournalEntryModel) TableName() string {
	return "order_journal"
}
