package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/tasklib/internal/log"
	"github.com/slok/tasklib/internal/model"
	"github.com/slok/tasklib/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite run history repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.HistoryRepository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	// A detached run and the foreground queries share the database, wait on locks instead of failing.
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	version, err := migrator.Up(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s with schema version %d", cfg.DBPath, version)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// CreateRun stores a new run.
func (r *Repository) CreateRun(ctx context.Context, run model.Run) error {
	if run.ID == "" || run.TaskID == "" {
		return fmt.Errorf("run id and task id are required: %w", model.ErrNotValid)
	}

	var finishedAt *int64
	if run.FinishedAt != nil {
		u := run.FinishedAt.UnixMilli()
		finishedAt = &u
	}

	query := `
		INSERT INTO runs (id, task_id, status, detached, pid, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.TaskID,
		run.Status,
		run.Detached,
		run.PID,
		run.StartedAt.UnixMilli(),
		finishedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: runs.") {
			return fmt.Errorf("run already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert run: %w", err)
	}

	r.logger.Debugf("Created run in repository: %s", run.ID)
	return nil
}

// FinishRun sets the final status of a run.
func (r *Repository) FinishRun(ctx context.Context, runID string, status model.Status) error {
	query := `UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC().UnixMilli(), runID)
	if err != nil {
		return fmt.Errorf("could not update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("run %s: %w", runID, model.ErrNotFound)
	}

	r.logger.Debugf("Finished run %s with status %s", runID, status)
	return nil
}

// ListRuns returns the runs of a task, newest first. A limit of 0 returns all of them.
func (r *Repository) ListRuns(ctx context.Context, taskID string, limit int) ([]model.Run, error) {
	query := `
		SELECT id, task_id, status, detached, pid, started_at, finished_at
		FROM runs
		WHERE task_id = ?
		ORDER BY started_at DESC, id DESC
	`
	args := []any{taskID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query runs: %w", err)
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		var (
			run        model.Run
			startedAt  int64
			finishedAt sql.NullInt64
		)
		err := rows.Scan(&run.ID, &run.TaskID, &run.Status, &run.Detached, &run.PID, &startedAt, &finishedAt)
		if err != nil {
			return nil, fmt.Errorf("could not scan run: %w", err)
		}

		run.StartedAt = time.UnixMilli(startedAt).UTC()
		if finishedAt.Valid {
			t := time.UnixMilli(finishedAt.Int64).UTC()
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate runs: %w", err)
	}

	return runs, nil
}
