package cache

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"github.com/petrijr/echo/pkg/api"
)

// PostgresCache is an api.Cache backed by PostgreSQL.
//
// It works with any *sql.DB using a PostgreSQL driver; OpenPostgres opens
// one with the pgx stdlib driver.
type PostgresCache struct {
	db    *sql.DB
	table string
}

var _ api.Cache = (*PostgresCache)(nil)

// OpenPostgres opens a pgx-backed *sql.DB for dsn and verifies the
// connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresCache initializes the cache table (default "action_results")
// and returns a new PostgresCache.
func NewPostgresCache(db *sql.DB, table string) (*PostgresCache, error) {
	if table == "" {
		table = "action_results"
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	c := &PostgresCache{db: db, table: table}
	if err := c.initSchema(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *PostgresCache) initSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS ` + c.table + ` (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("create table %s: %w", c.table, err)
	}
	return nil
}

func (c *PostgresCache) Get(ctx context.Context, key string) (any, bool, error) {
	return sqlGet(ctx, c.db, `SELECT value FROM `+c.table+` WHERE key = $1`, key)
}

func (c *PostgresCache) Set(ctx context.Context, key string, value any) error {
	return sqlSet(ctx, c.db, `
		INSERT INTO `+c.table+` (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value)
}

func (c *PostgresCache) Delete(ctx context.Context, key string) error {
	return sqlDelete(ctx, c.db, `DELETE FROM `+c.table+` WHERE key = $1`, key)
}
