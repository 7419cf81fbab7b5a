package migrations

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Migration is one versioned step of the engine schema. Up runs inside the
// transaction that also records the version, so a failed step leaves no trace.
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

var registry []Migration

// Register adds a migration to the registry
func Register(m Migration) {
	registry = append(registry, m)
}

// RunMigrations applies pending migrations in version order and returns the
// resulting schema version.
func RunMigrations(db *sql.DB, logger *logrus.Logger) (int, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return 0, err
	}

	sort.Slice(registry, func(i, j int) bool {
		return registry[i].Version < registry[j].Version
	})

	applied := 0
	for _, m := range registry {
		if m.Version <= current {
			continue
		}

		log := logger.WithFields(logrus.Fields{
			"schema_version": m.Version,
			"migration":      m.Name,
		})
		log.Debug("Applying migration")

		if err := apply(db, m); err != nil {
			log.WithError(err).Error("Migration failed")
			return current, fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		current = m.Version
		applied++
	}

	if applied > 0 {
		logger.WithFields(logrus.Fields{
			"schema_version": current,
			"applied":        applied,
		}).Info("Engine schema migrated")
	}
	return current, nil
}

func apply(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := m.Up(tx); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration, 0 on a fresh database
func SchemaVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
