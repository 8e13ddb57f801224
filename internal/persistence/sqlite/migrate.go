package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one schema migration parsed from the embedded directory.
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// Migrator applies embedded schema migrations in version order, tracking
// applied versions in a schema_migrations table.
type Migrator struct {
	pool *ConnectionPool
}

// NewMigrator creates a migrator for the pool.
func NewMigrator(pool *ConnectionPool) *Migrator {
	return &Migrator{pool: pool}
}

// RunMigrations applies every pending migration. Each migration runs inside
// its own transaction together with its version record, so a failing
// migration leaves the schema at the previous version.
func (m *Migrator) RunMigrations(ctx context.Context) error {
	if err := m.initVersionTable(ctx); err != nil {
		return fmt.Errorf("failed to initialize version table: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load applied versions: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if _, done := applied[migration.Version]; done {
			continue
		}
		if err := m.apply(ctx, migration); err != nil {
			return fmt.Errorf("migration %s (%s) failed: %w", migration.Version, migration.Description, err)
		}
	}

	return nil
}

func (m *Migrator) initVersionTable(ctx context.Context) error {
	_, err := m.pool.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	return err
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[string]struct{}, error) {
	rows, err := m.pool.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]struct{})
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = struct{}{}
	}
	return applied, rows.Err()
}

func (m *Migrator) apply(ctx context.Context, migration Migration) error {
	return m.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(migration.SQL); err != nil {
			return err
		}
		_, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			migration.Version,
			time.Now().UTC().Format(time.RFC3339),
		)
		return err
	})
}

// loadMigrations reads the embedded migration files. File names follow
// NNNN_description.sql and are applied in lexical version order.
func loadMigrations() ([]Migration, error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		version, description, ok := strings.Cut(strings.TrimSuffix(name, ".sql"), "_")
		if !ok || version == "" {
			return nil, fmt.Errorf("migration file %q does not follow NNNN_description.sql", name)
		}

		content, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %q: %w", name, err)
		}

		migrations = append(migrations, Migration{
			Version:     version,
			Description: strings.ReplaceAll(description, "_", " "),
			SQL:         string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}
