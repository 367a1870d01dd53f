package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB provides database operations using PostgreSQL
type DB struct {
	pool *pgxpool.Pool
	// lockSlots caps how many operations hold advisory locks at once, so
	// lock holders always leave connections free for their own queries
	lockSlots chan struct{}
}

var (
	_ db.Database    = (*DB)(nil)
	_ db.MultiLocker = (*DB)(nil)
)

// NewDB creates a new PostgreSQL database connection
func NewDB(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slots := int(pool.Config().MaxConns) / 2
	if slots < 1 {
		slots = 1
	}

	return &DB{pool: pool, lockSlots: make(chan struct{}, slots)}, nil
}

// Close closes the database connection pool
func (d *DB) Close() {
	d.pool.Close()
}

// RunMigrations executes all pending SQL migration files in order.
// It tracks which migrations have been applied in a schema_migrations table.
// It returns the names of the files applied by this call.
func (d *DB) RunMigrations(ctx context.Context) ([]string, error) {
	_, err := d.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	rows, err := d.pool.Query(ctx, `SELECT filename FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	applied, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var pending []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") || slices.Contains(applied, name) {
			continue
		}
		pending = append(pending, name)
	}
	sort.Strings(pending)

	for _, filename := range pending {
		content, err := fs.ReadFile(migrationsFS, "migrations/"+filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		err = pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", filename, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
				return fmt.Errorf("failed to record migration %s: %w", filename, err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return pending, nil
}

// Lock takes a transaction-scoped advisory lock on key
func (d *DB) Lock(ctx context.Context, key string) (func(), error) {
	return d.LockAll(ctx, key)
}

// LockAll takes advisory locks on keys, in order, inside one transaction.
// The transaction and its single pooled connection are held until the
// returned func rolls it back, which releases every key together.
func (d *DB) LockAll(ctx context.Context, keys ...string) (func(), error) {
	select {
	case d.lockSlots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to wait for a lock slot: %w", ctx.Err())
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		<-d.lockSlots
		return nil, fmt.Errorf("failed to begin lock transaction: %w", err)
	}

	release := func() {
		// the caller's ctx may be done by now; a failed rollback closes the connection
		rollbackCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tx.Rollback(rollbackCtx)
		<-d.lockSlots
	}

	for _, key := range keys {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			release()
			return nil, fmt.Errorf("failed to take advisory lock %s: %w", key, err)
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

// notFound maps pgx's empty result to db.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return db.ErrNotFound
	}
	return err
}

// expectRow turns an update that touched nothing into db.ErrNotFound
func expectRow(tag interface{ RowsAffected() int64 }) error {
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func orNewID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
