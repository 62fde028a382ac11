// Package migrations has the schema of the run history database. The schema files are
// embedded and applied when the history is opened, every process sharing a history
// database brings it to the same version before using it.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/slok/tasklib/internal/log"
)

// VersionTable keeps the applied schema version of the runs table.
const VersionTable = "runs_schema_version"

//go:embed sql/*.sql
var schemaFiles embed.FS

// Migrator brings the run history schema to the version of the running binary.
type Migrator struct {
	db     *sql.DB
	logger log.Logger
}

// NewMigrator creates a new run history migrator.
func NewMigrator(db *sql.DB, logger log.Logger) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if logger == nil {
		logger = log.Noop
	}

	return &Migrator{
		db:     db,
		logger: logger.WithValues(log.Kv{"svc": "storage.SQLiteMigrator"}),
	}, nil
}

// Up applies the pending schema versions and returns the current one.
func (m *Migrator) Up(ctx context.Context) (uint, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	inst, closeSrc, err := m.instance()
	defer closeSrc()
	if err != nil {
		return 0, err
	}

	from, err := m.version(inst)
	if err != nil {
		return 0, err
	}

	if err := inst.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("could not migrate run history from version %d: %w", from, err)
	}

	to, err := m.version(inst)
	if err != nil {
		return 0, err
	}

	if from != to {
		m.logger.Infof("Run history schema migrated from version %d to %d", from, to)
	} else {
		m.logger.Debugf("Run history schema is up to date at version %d", to)
	}

	return to, nil
}

// version returns the applied schema version, 0 on a new database. Half applied
// versions are errors, they need a manual fix of the database.
func (m *Migrator) version(inst *migrate.Migrate) (uint, error) {
	v, dirty, err := inst.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("could not get run history schema version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("run history schema version %d is partially applied", v)
	}
	return v, nil
}

func (m *Migrator) instance() (instance *migrate.Migrate, closeSrc func(), err error) {
	closeSrc = func() {}

	driver, err := sqlite3.WithInstance(m.db, &sqlite3.Config{MigrationsTable: VersionTable})
	if err != nil {
		return nil, closeSrc, fmt.Errorf("could not create driver: %w", err)
	}

	src, err := iofs.New(schemaFiles, "sql")
	if err != nil {
		return nil, closeSrc, fmt.Errorf("could not load schema files: %w", err)
	}
	closeSrc = func() {
		if err := src.Close(); err != nil {
			m.logger.Warningf("Could not close schema files: %s", err)
		}
	}

	instance, err = migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return nil, closeSrc, fmt.Errorf("could not create migration instance: %w", err)
	}

	return instance, closeSrc, nil
}
