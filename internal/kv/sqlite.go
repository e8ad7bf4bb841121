package kv

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteGateway keeps values in a single-table SQLite database. Writes made
// by other processes sharing the file are only noticed through Watch.
type SQLiteGateway struct {
	db *sql.DB
	ls listeners

	mu     sync.Mutex
	seen   map[string]time.Time // updated_at last written or observed per key
	primed bool
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteGateway, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// WAL so a reader (e.g. the CLI) does not block the service.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	g := &SQLiteGateway{db: db, seen: map[string]time.Time{}}
	if err := g.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	if _, err := g.changedKeys(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("read stamps: %w", err)
	}
	return g, nil
}

func (g *SQLiteGateway) initSchema() error {
	_, err := g.db.Exec(`
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`)
	return err
}

func (g *SQLiteGateway) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	query, args, err := sq.Select("key", "value").From("kv").Where(sq.Eq{"key": keys}).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query kv: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan kv: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func (g *SQLiteGateway) Set(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for k, v := range values {
		query, args, err := sq.Insert("kv").
			Columns("key", "value", "updated_at").
			Values(k, v, now).
			Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
			ToSql()
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	g.mu.Lock()
	for k := range values {
		g.seen[k] = now
	}
	g.mu.Unlock()
	g.ls.notify(Change{Keys: keysOf(values)})
	return nil
}

func (g *SQLiteGateway) OnChange(fn func(Change)) func() {
	return g.ls.add(fn)
}

// changedKeys returns the keys whose updated_at differs from the last one
// this gateway wrote or saw, and records the new stamps.
func (g *SQLiteGateway) changedKeys(ctx context.Context) ([]string, error) {
	query, args, err := sq.Select("key", "updated_at").From("kv").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stamps: %w", err)
	}
	defer rows.Close()

	g.mu.Lock()
	defer g.mu.Unlock()
	var changed []string
	for rows.Next() {
		var k string
		var at time.Time
		if err := rows.Scan(&k, &at); err != nil {
			return nil, fmt.Errorf("scan stamp: %w", err)
		}
		if prev, ok := g.seen[k]; (!ok && g.primed) || (ok && !prev.Equal(at)) {
			changed = append(changed, k)
		}
		g.seen[k] = at
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	g.primed = true
	return changed, nil
}

// Watch polls for writes made by other processes and notifies listeners
// until ctx is cancelled.
func (g *SQLiteGateway) Watch(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = 2 * time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			keys, err := g.changedKeys(ctx)
			if err != nil {
				slog.Warn("kv: sqlite poll failed", "error", err)
				continue
			}
			if len(keys) > 0 {
				slog.Debug("kv: sqlite keys changed elsewhere", "keys", keys)
				g.ls.notify(Change{Keys: keys})
			}
		}
	}
}

// Ping checks the database connection.
func (g *SQLiteGateway) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}

func (g *SQLiteGateway) Close() error {
	return g.db.Close()
}
