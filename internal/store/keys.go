package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/bekirdag/keydash/internal/keyservice"
)

var _ keyservice.Service = (*Store)(nil)

func (s *Store) ListKeys(ctx context.Context) ([]keyservice.Key, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, start, created_at, expires, owner_id, name,
			ratelimit_type, ratelimit_limit, ratelimit_refill_rate, ratelimit_refill_interval, remaining_requests
		FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var out []keyservice.Key
	for rows.Next() {
		var (
			k         keyservice.Key
			created   int64
			expires   sql.NullInt64
			owner     sql.NullString
			name      sql.NullString
			rlType    sql.NullString
			rlLimit   sql.NullInt64
			rlRate    sql.NullInt64
			rlRefill  sql.NullInt64
			remaining sql.NullInt64
		)
		if err := rows.Scan(&k.ID, &k.Start, &created, &expires, &owner, &name, &rlType, &rlLimit, &rlRate, &rlRefill, &remaining); err != nil {
			return nil, fmt.Errorf("list keys: %w", err)
		}
		k.CreatedAt = fromMillis(created)
		if expires.Valid {
			t := fromMillis(expires.Int64)
			k.Expires = &t
		}
		k.OwnerID = nullString(owner)
		k.Name = nullString(name)
		k.RatelimitType = nullString(rlType)
		k.RatelimitLimit = nullInt(rlLimit)
		k.RatelimitRefillRate = nullInt(rlRate)
		k.RatelimitRefillInterval = nullInt(rlRefill)
		k.RemainingRequests = nullInt(remaining)
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return out, nil
}

// DeleteKeys marks keys as revoked. Unknown and already revoked ids are
// skipped without error.
func (s *Store) DeleteKeys(ctx context.Context, keyIDs []string) error {
	if len(keyIDs) == 0 {
		return nil
	}
	now := toMillis(s.now())
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `UPDATE api_keys SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, id := range keyIDs {
			if _, err := stmt.ExecContext(ctx, now, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}

func (s *Store) AddKey(ctx context.Context, k keyservice.Key) error {
	if k.ID == "" {
		k.ID = "key_" + uuid.NewString()
	}
	if k.CreatedAt.IsZero() {
		k.CreatedAt = s.now()
	}
	var expires sql.NullInt64
	if k.Expires != nil {
		expires = sql.NullInt64{Int64: toMillis(*k.Expires), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO api_keys (id, start, created_at, expires, owner_id, name,
			ratelimit_type, ratelimit_limit, ratelimit_refill_rate, ratelimit_refill_interval, remaining_requests, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		k.ID, k.Start, toMillis(k.CreatedAt), expires, toNullString(k.OwnerID), toNullString(k.Name),
		toNullString(k.RatelimitType), toNullInt(k.RatelimitLimit), toNullInt(k.RatelimitRefillRate),
		toNullInt(k.RatelimitRefillInterval), toNullInt(k.RemainingRequests))
	if err != nil {
		return fmt.Errorf("add key: %w", err)
	}
	return nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func toNullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func toNullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
