package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator aplica en orden los scripts embebidos que aún no figuren en schema_migrations.
type Migrator struct {
	db  DB
	log zerolog.Logger
}

// NewMigrator construye el migrador.
func NewMigrator(db DB, log zerolog.Logger) *Migrator {
	return &Migrator{db: db, log: log}
}

// Up aplica las migraciones pendientes, cada una en su propia transacción.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if _, err := m.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    text PRIMARY KEY,
			applied_at timestamptz NOT NULL DEFAULT now()
		)`); err != nil {
		return 0, fmt.Errorf("crear schema_migrations: %w", err)
	}

	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return 0, err
	}
	sort.Strings(files)

	applied := 0
	runner := NewTxRunner(m.db)
	for _, file := range files {
		var exists bool
		if err := m.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, file).Scan(&exists); err != nil {
			return applied, fmt.Errorf("consultar %s: %w", file, err)
		}
		if exists {
			continue
		}
		body, err := migrationsFS.ReadFile(file)
		if err != nil {
			return applied, err
		}
		err = runner.Run(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(body)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, file)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("aplicar %s: %w", file, err)
		}
		m.log.Info().Str("migration", file).Msg("migración aplicada")
		applied++
	}
	return applied, nil
}
