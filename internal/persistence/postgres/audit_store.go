// Package postgres provides pgx-backed storage for audit records and plans.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/activeaging/internal/audit"
	"example.com/activeaging/internal/persistence"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// AuditStore appends and lists audit records.
type AuditStore struct {
	pool *pgxpool.Pool
}

var (
	_ audit.Sink   = (*AuditStore)(nil)
	_ audit.Reader = (*AuditStore)(nil)
)

// NewAuditStore constructs an AuditStore.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Append inserts rec. A record already stored under the same {type, id} is left as is.
func (s *AuditStore) Append(ctx context.Context, rec audit.Record) error {
	const stmt = `INSERT INTO audit_records (record_type, record_id, user_id, recorded_at, payload)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (record_type, record_id) DO NOTHING`

	payload := []byte(rec.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	_, err := s.pool.Exec(ctx, stmt, string(rec.Type), rec.ID, nullIfEmpty(rec.UserID), rec.Timestamp.UTC(), payload)
	if err != nil {
		return fmt.Errorf("insert audit record %s: %w", rec.Key(), err)
	}
	return nil
}

// ListByUser pages through a user's records newest first.
func (s *AuditStore) ListByUser(ctx context.Context, q audit.Query) (audit.Page, error) {
	cursor, err := persistence.DecodeCursor(q.Cursor)
	if err != nil {
		return audit.Page{}, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}

	args := []any{q.UserID, limit}
	query := `SELECT record_type, record_id, user_id, recorded_at, payload
        FROM audit_records WHERE user_id=$1`
	if q.Type != "" {
		args = append(args, string(q.Type))
		query += fmt.Sprintf(` AND record_type=$%d`, len(args))
	}
	if cursor != nil {
		args = append(args, cursor.Timestamp, cursor.ID)
		query += fmt.Sprintf(` AND (recorded_at, record_id) < ($%d, $%d)`, len(args)-1, len(args))
	}
	query += ` ORDER BY recorded_at DESC, record_id DESC LIMIT $2`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return audit.Page{}, err
	}
	defer rows.Close()

	records := make([]audit.Record, 0, limit)
	for rows.Next() {
		var (
			rec     audit.Record
			typ     string
			userID  *string
			payload []byte
		)
		if err := rows.Scan(&typ, &rec.ID, &userID, &rec.Timestamp, &payload); err != nil {
			return audit.Page{}, err
		}
		rec.Type = audit.Type(typ)
		rec.Timestamp = rec.Timestamp.UTC()
		rec.Payload = payload
		if userID != nil {
			rec.UserID = *userID
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return audit.Page{}, err
	}

	page := audit.Page{Records: records}
	if len(records) == limit {
		last := records[len(records)-1]
		page.NextCursor = persistence.EncodeCursor(&persistence.Cursor{Timestamp: last.Timestamp, ID: last.ID})
	}
	return page, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
