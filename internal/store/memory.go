package store

import (
	"context"
	"sync"

	"perpdesk/internal/market"
	"perpdesk/internal/router"
)

// MemoryJournal keeps the last records in a ring; used when journal.path
// is empty and in tests.
type MemoryJournal struct {
	mu      sync.RWMutex
	records []JournalRecord
	nextID  int64
	max     int
}

func NewMemoryJournal(max int) *MemoryJournal {
	if max <= 0 {
		max = MaxListLimit
	}
	return &MemoryJournal{max: max}
}

func (m *MemoryJournal) Record(_ context.Context, e router.Entry) error {
	rec := ToRecord(e)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec.ID = m.nextID
	m.records = append(m.records, rec)
	if over := len(m.records) - m.max; over > 0 {
		m.records = append([]JournalRecord(nil), m.records[over:]...)
	}
	return nil
}

func (m *MemoryJournal) ListRecent(_ context.Context, ex market.Exchange, limit int) ([]JournalRecord, error) {
	limit = ClampLimit(limit)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]JournalRecord, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if ex != "" && m.records[i].Exchange != ex {
			continue
		}
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *MemoryJournal) Close() error {
	return nil
}
