package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/injunweb/injunctl/internal/domain"
)

const defaultPurgeLimit = 500

// GetCacheEntry returns the entry stored under key.
func (s *Store) GetCacheEntry(ctx context.Context, key string) (domain.CacheEntry, bool, error) {
	var (
		e           domain.CacheEntry
		refreshedAt int64
		expiresAt   int64
	)
	err := s.getEntryStmt.QueryRowContext(ctx, key).Scan(&e.Key, &e.Payload, &refreshedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, err
	}
	e.RefreshedAt = fromMillis(refreshedAt)
	e.ExpiresAt = fromMillis(expiresAt)
	return e, true, nil
}

// PutCacheEntry inserts or replaces the entry under e.Key.
func (s *Store) PutCacheEntry(ctx context.Context, e domain.CacheEntry) error {
	if strings.TrimSpace(e.Key) == "" {
		return errors.New("cache key is required")
	}
	_, err := s.putEntryStmt.ExecContext(ctx, e.Key, e.Payload, toMillis(e.RefreshedAt), toMillis(e.ExpiresAt))
	return err
}

// DeleteCacheEntries removes the entries stored under keys.
func (s *Store) DeleteCacheEntries(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(keys))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_key IN (`+placeholders+`)`, args...)
	return err
}

// DeleteCacheEntriesByPrefix removes every entry whose key starts with prefix.
func (s *Store) DeleteCacheEntriesByPrefix(ctx context.Context, prefix string) error {
	if prefix == "" {
		return s.ClearCacheEntries(ctx)
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE cache_key LIKE ? ESCAPE '\'`, likePrefix(prefix))
	return err
}

// ClearCacheEntries removes every entry.
func (s *Store) ClearCacheEntries(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	return err
}

// PurgeExpiredCacheEntries deletes up to limit entries that expired before
// now and returns their keys, oldest first.
func (s *Store) PurgeExpiredCacheEntries(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultPurgeLimit
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
SELECT cache_key
FROM cache_entries
WHERE expires_at <= ?
ORDER BY expires_at ASC
LIMIT ?`, toMillis(now), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err = rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	_ = rows.Close()

	if len(keys) > 0 {
		placeholders := strings.Repeat("?,", len(keys))
		placeholders = placeholders[:len(placeholders)-1]
		args := make([]any, len(keys))
		for i, k := range keys {
			args[i] = k
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_key IN (`+placeholders+`)`, args...); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return keys, nil
}
