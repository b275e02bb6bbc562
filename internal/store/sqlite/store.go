// Package sqlite 基于 gorm 实现订单日志持久化。
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"perpdesk/internal/market"
	"perpdesk/internal/router"
	"perpdesk/internal/store"
	"perpdesk/internal/store/model"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// driverName 为纯 Go 的 modernc 驱动，支持下方 DSN 中的 _pragma 参数。
const driverName = "sqlite"

type JournalStore struct {
	db *gorm.DB
}

func NewJournalStore(path string) (*JournalStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(&sqlite.Dialector{DriverName: driverName, DSN: dsn}, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return NewJournalStoreFromDB(db)
}

func NewJournalStoreFromDB(db *gorm.DB) (*JournalStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db 不能为空")
	}
	if err := db.AutoMigrate(&model.JournalEntryModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &JournalStore{db: db}, nil
}

func (s *JournalStore) Record(ctx context.Context, e router.Entry) error {
	rec := store.ToRecord(e)
	row := model.JournalEntryModel{
		Action:    string(rec.Action),
		Exchange:  string(rec.Exchange),
		Asset:     rec.Asset,
		ClientID:  rec.ClientID,
		Success:   rec.Result.Success,
		Message:   rec.Result.Message,
		OrderID:   rec.Result.OrderID,
		LatencyMS: rec.LatencyMS,
		Request:   datatypes.JSON(rec.Request),
		CreatedAt: rec.At,
	}
	if len(rec.Result.Raw) > 0 && json.Valid(rec.Result.Raw) {
		row.Raw = datatypes.JSON(rec.Result.Raw)
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}
	return nil
}

func (s *JournalStore) ListRecent(ctx context.Context, ex market.Exchange, limit int) ([]store.JournalRecord, error) {
	q := s.db.WithContext(ctx).Model(&model.JournalEntryModel{})
	if ex != "" {
		q = q.Where("exchange = ?", string(ex))
	}
	var rows []model.JournalEntryModel
	if err := q.Order("created_at DESC").Order("id DESC").Limit(store.ClampLimit(limit)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("journal list: %w", err)
	}
	out := make([]store.JournalRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, toRecord(r))
	}
	return out, nil
}

func toRecord(r model.JournalEntryModel) store.JournalRecord {
	rec := store.JournalRecord{
		ID:       r.ID,
		Action:   router.Action(r.Action),
		Exchange: market.Exchange(r.Exchange),
		Asset:    r.Asset,
		ClientID: r.ClientID,
		Request:  json.RawMessage(r.Request),
		Result: router.OrderResult{
			Success:  r.Success,
			Message:  r.Message,
			OrderID:  r.OrderID,
			Exchange: market.Exchange(r.Exchange),
		},
		LatencyMS: r.LatencyMS,
		At:        r.CreatedAt,
	}
	if len(r.Raw) > 0 {
		rec.Result.Raw = json.RawMessage(r.Raw)
	}
	return rec
}

func (s *JournalStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
