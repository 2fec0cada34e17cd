package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

// sqlDialect holds the statements a SQLCache runs. Expiry is stored as
// unix nanoseconds, zero meaning never.
type sqlDialect struct {
	name   string
	driver string
	create string
	get    string
	set    string
	del    string
}

var (
	sqliteDialect = sqlDialect{
		name:   "sqlite",
		driver: "sqlite",
		create: `CREATE TABLE IF NOT EXISTS vase_documents (
			doc_key TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			stored_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0
		)`,
		get: `SELECT data, expires_at FROM vase_documents WHERE doc_key = ?`,
		set: `INSERT INTO vase_documents (doc_key, data, stored_at, expires_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (doc_key) DO UPDATE SET data = excluded.data, stored_at = excluded.stored_at, expires_at = excluded.expires_at`,
		del: `DELETE FROM vase_documents WHERE doc_key = ?`,
	}

	postgresDialect = sqlDialect{
		name:   "postgres",
		driver: "pgx",
		create: `CREATE TABLE IF NOT EXISTS vase_documents (
			doc_key TEXT PRIMARY KEY,
			data BYTEA NOT NULL,
			stored_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL DEFAULT 0
		)`,
		get: `SELECT data, expires_at FROM vase_documents WHERE doc_key = $1`,
		set: `INSERT INTO vase_documents (doc_key, data, stored_at, expires_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (doc_key) DO UPDATE SET data = EXCLUDED.data, stored_at = EXCLUDED.stored_at, expires_at = EXCLUDED.expires_at`,
		del: `DELETE FROM vase_documents WHERE doc_key = $1`,
	}
)

// SQLCache stores documents in a single table of a SQL database, either a
// local SQLite file or a shared Postgres server.
type SQLCache struct {
	db      *sql.DB
	dialect sqlDialect
}

// NewSQLiteCache opens (or creates) the SQLite database at path.
func NewSQLiteCache(ctx context.Context, path string) (*SQLCache, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	return newSQLCache(ctx, db, sqliteDialect)
}

// NewPostgresCache connects to the Postgres server named by dsn.
func NewPostgresCache(ctx context.Context, dsn string) (*SQLCache, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newSQLCache(ctx, db, postgresDialect)
}

func newSQLCache(ctx context.Context, db *sql.DB, d sqlDialect) (*SQLCache, error) {
	if _, err := db.ExecContext(ctx, d.create); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create %s table: %w", d.name, err)
	}
	return &SQLCache{db: db, dialect: d}, nil
}

// Get retrieves a value from the cache. Expired rows read as misses and
// are left for the next Set to overwrite.
func (c *SQLCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		data      []byte
		expiresAt int64
	)
	err := c.db.QueryRowContext(ctx, c.dialect.get, key).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, c.opError("select", err)
	}
	if expiresAt != 0 && time.Now().UnixNano() > expiresAt {
		return nil, false, nil
	}
	return data, true, nil
}

// Set stores a value in the cache, replacing any previous row.
func (c *SQLCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	now := time.Now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}
	if _, err := c.db.ExecContext(ctx, c.dialect.set, key, data, now.UnixNano(), expiresAt); err != nil {
		return c.opError("upsert", err)
	}
	return nil
}

// Delete removes a value from the cache.
func (c *SQLCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, c.dialect.del, key); err != nil {
		return c.opError("delete", err)
	}
	return nil
}

// Close closes the database handle.
func (c *SQLCache) Close() error {
	return c.db.Close()
}

// opError marks Postgres failures retryable.
func (c *SQLCache) opError(op string, err error) error {
	if c.dialect.name == postgresDialect.name {
		return networkError("postgres "+op, err)
	}
	return fmt.Errorf("sqlite %s: %w", op, err)
}

var _ Cache = (*SQLCache)(nil)
