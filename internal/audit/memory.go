package audit

import (
	"context"
	"sort"
	"sync"

	"example.com/activeaging/internal/persistence"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// MemorySink keeps records in process. It backs local development and tests.
type MemorySink struct {
	mu      sync.RWMutex
	keys    map[string]struct{}
	records []Record
}

var (
	_ Sink   = (*MemorySink)(nil)
	_ Reader = (*MemorySink)(nil)
)

// NewMemorySink constructs an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{keys: make(map[string]struct{})}
}

// Append stores rec unless a record with the same key already exists.
func (m *MemorySink) Append(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[rec.Key()]; ok {
		return nil
	}
	m.keys[rec.Key()] = struct{}{}
	m.records = append(m.records, rec)
	return nil
}

// Records returns a snapshot of everything appended, oldest first.
func (m *MemorySink) Records() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// ListByUser pages through a user's records newest first.
func (m *MemorySink) ListByUser(_ context.Context, q Query) (Page, error) {
	cursor, err := persistence.DecodeCursor(q.Cursor)
	if err != nil {
		return Page{}, err
	}
	limit := pageSize(q.Limit)

	m.mu.RLock()
	var matched []Record
	for _, rec := range m.records {
		if rec.UserID != q.UserID || (q.Type != "" && rec.Type != q.Type) {
			continue
		}
		if cursor != nil && !cursor.Before(rec.Timestamp, rec.ID) {
			continue
		}
		matched = append(matched, rec)
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	page := Page{Records: matched}
	if len(matched) > limit {
		page.Records = matched[:limit]
		last := page.Records[limit-1]
		page.NextCursor = persistence.EncodeCursor(&persistence.Cursor{Timestamp: last.Timestamp, ID: last.ID})
	}
	if page.Records == nil {
		page.Records = []Record{}
	}
	return page, nil
}

func pageSize(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageSize
	case limit > maxPageSize:
		return maxPageSize
	default:
		return limit
	}
}
