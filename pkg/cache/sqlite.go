package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/petrijr/echo/pkg/api"
)

var ErrInvalidTable = errors.New("invalid cache table name")

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteCache is an api.Cache backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteCache struct {
	db    *sql.DB
	table string
}

var _ api.Cache = (*SQLiteCache)(nil)

// NewSQLiteCache initializes the cache table (default "action_results")
// and returns a new SQLiteCache.
func NewSQLiteCache(db *sql.DB, table string) (*SQLiteCache, error) {
	if table == "" {
		table = "action_results"
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	c := &SQLiteCache{db: db, table: table}
	if err := c.initSchema(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *SQLiteCache) initSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS ` + c.table + ` (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT (unixepoch())
		);`,
	)
	if err != nil {
		return fmt.Errorf("create table %s: %w", c.table, err)
	}
	return nil
}

func (c *SQLiteCache) Get(ctx context.Context, key string) (any, bool, error) {
	return sqlGet(ctx, c.db, `SELECT value FROM `+c.table+` WHERE key = ?`, key)
}

func (c *SQLiteCache) Set(ctx context.Context, key string, value any) error {
	return sqlSet(ctx, c.db, `
		INSERT INTO `+c.table+` (key, value, updated_at) VALUES (?, ?, unixepoch())
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
}

func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	return sqlDelete(ctx, c.db, `DELETE FROM `+c.table+` WHERE key = ?`, key)
}

func sqlGet(ctx context.Context, db *sql.DB, query, key string) (any, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	var data []byte
	err := db.QueryRowContext(ctx, query, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %q: %w", key, err)
	}
	v, err := DecodeValue(data)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func sqlSet(ctx context.Context, db *sql.DB, query, key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := EncodeValue(value)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, query, key, data); err != nil {
		return fmt.Errorf("upsert %q: %w", key, err)
	}
	return nil
}

func sqlDelete(ctx context.Context, db *sql.DB, query, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
