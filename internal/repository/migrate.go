package repository

import (
	"context"
	"embed"
	"fmt"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate применяет еще не примененные миграции из migrations/ в порядке имен файлов
func (r *Repository) Migrate(ctx context.Context) ([]string, error) {
	_, err := r.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS schema_migrations (
            version    VARCHAR(255) PRIMARY KEY,
            applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var applied []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		ok, err := r.applyMigration(ctx, name)
		if err != nil {
			return applied, err
		}
		if ok {
			applied = append(applied, name)
		}
	}

	return applied, nil
}

func (r *Repository) applyMigration(ctx context.Context, name string) (bool, error) {
	body, err := migrationsFS.ReadFile("migrations/" + name)
	if err != nil {
		return false, fmt.Errorf("failed to read migration %s: %w", name, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Блокировка защищает от одновременного запуска миграций несколькими экземплярами
	if _, err := tx.Exec(ctx, `LOCK TABLE schema_migrations IN EXCLUSIVE MODE`); err != nil {
		return false, fmt.Errorf("failed to lock schema_migrations: %w", err)
	}

	var exists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", name, err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, string(body)); err != nil {
		return false, fmt.Errorf("failed to apply migration %s: %w", name, err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, name); err != nil {
		return false, fmt.Errorf("failed to record migration %s: %w", name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}
