// Package migrations embeds the SQL schema and applies it in order.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Files embeds the versioned schema scripts.
//
//go:embed *.sql
var Files embed.FS

// Migration is one versioned schema step.
type Migration struct {
	Version string
	Up      string
	Down    string
}

// Load reads all migrations from fsys sorted by version. Every up script
// must have a matching down script.
func Load(fsys fs.FS) ([]Migration, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}
	byVersion := map[string]*Migration{}
	for _, name := range names {
		version, dir, ok := splitName(name)
		if !ok {
			return nil, fmt.Errorf("migrations: unexpected file %s", name)
		}
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version}
			byVersion[version] = m
		}
		if dir == "up" {
			m.Up = string(raw)
		} else {
			m.Down = string(raw)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("migrations: %s needs both up and down scripts", m.Version)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// splitName parses "0001_init.up.sql" into ("0001_init", "up").
func splitName(name string) (string, string, bool) {
	base := strings.TrimSuffix(name, ".sql")
	dot := strings.LastIndex(base, ".")
	if dot <= 0 {
		return "", "", false
	}
	dir := base[dot+1:]
	if dir != "up" && dir != "down" {
		return "", "", false
	}
	return base[:dot], dir, true
}

// Conn is satisfied by *pgxpool.Pool and *pgx.Conn.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Up applies every pending migration, each in its own transaction, and
// returns the versions it applied.
func Up(ctx context.Context, conn Conn) ([]string, error) {
	all, err := Load(Files)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return nil, fmt.Errorf("migrations: bootstrap: %w", err)
	}

	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("migrations: list applied: %w", err)
	}
	applied, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("migrations: list applied: %w", err)
	}

	var done []string
	for _, m := range Pending(all, applied) {
		if err := apply(ctx, conn, m); err != nil {
			return done, err
		}
		done = append(done, m.Version)
	}
	return done, nil
}

// Pending filters out the applied versions.
func Pending(all []Migration, applied []string) []Migration {
	seen := make(map[string]struct{}, len(applied))
	for _, v := range applied {
		seen[v] = struct{}{}
	}
	var out []Migration
	for _, m := range all {
		if _, ok := seen[m.Version]; !ok {
			out = append(out, m)
		}
	}
	return out
}

func apply(ctx context.Context, conn Conn, m Migration) error {
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("migrations: begin %s: %w", m.Version, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, m.Up); err != nil {
		return fmt.Errorf("migrations: apply %s: %w", m.Version, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
		return fmt.Errorf("migrations: record %s: %w", m.Version, err)
	}
	return tx.Commit(ctx)
}
