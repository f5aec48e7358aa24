package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/runinator/runinator/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	name                 TEXT NOT NULL,
	cron                 TEXT NOT NULL,
	action_name          TEXT NOT NULL,
	action_function      TEXT NOT NULL,
	action_configuration TEXT NOT NULL,
	timeout_seconds      INTEGER NOT NULL,
	next_execution       INTEGER,
	enabled              INTEGER NOT NULL DEFAULT 1,
	immediate            INTEGER NOT NULL DEFAULT 0,
	blackout_start       INTEGER,
	blackout_end         INTEGER
);

CREATE TABLE IF NOT EXISTS task_runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id     INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	start_time  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	message     TEXT
);

CREATE INDEX IF NOT EXISTS idx_task_runs_task_id ON task_runs(task_id);
`

// SQLStore implements Store using database/sql over SQLite. The interface
// is narrow enough that a Postgres-backed implementation could be added
// later without touching callers.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore opens (creating if necessary) a SQLite database file under
// dataDir and runs the idempotent schema migration.
func NewSQLStore(dataDir string) (*SQLStore, error) {
	dbPath := filepath.Join(dataDir, "runinator.db")

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 driver serializes writes; avoid lock storms

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// ExecuteScripts runs each path's SQL statements in order, after the
// idempotent schema migration, for deployments that need to seed or
// patch the schema at startup. A statement is delimited by a trailing
// semicolon; a failing statement aborts the remaining script and returns
// the error, naming the offending path so a deployment sees which file
// broke startup.
func (s *SQLStore) ExecuteScripts(paths []string) error {
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read init script %s: %w", path, err)
		}
		for _, stmt := range strings.Split(string(raw), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("execute init script %s: %w", path, err)
			}
		}
	}
	return nil
}

func (s *SQLStore) CreateTask(task *types.ScheduledTask) (*types.ScheduledTask, error) {
	res, err := s.db.Exec(
		`INSERT INTO tasks
			(name, cron, action_name, action_function, action_configuration,
			 timeout_seconds, next_execution, enabled, immediate, blackout_start, blackout_end)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.Name, task.Cron, task.ActionName, task.ActionFunction, task.ActionConfiguration,
		task.TimeoutSeconds, task.NextExecution, task.Enabled, task.Immediate,
		task.BlackoutStart, task.BlackoutEnd,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read inserted id: %w", err)
	}
	return s.GetTask(id)
}

func (s *SQLStore) GetTask(id int64) (*types.ScheduledTask, error) {
	row := s.db.QueryRow(
		`SELECT id, name, cron, action_name, action_function, action_configuration,
		        timeout_seconds, next_execution, enabled, immediate, blackout_start, blackout_end
		 FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

func (s *SQLStore) ListTasks() ([]*types.ScheduledTask, error) {
	rows, err := s.db.Query(
		`SELECT id, name, cron, action_name, action_function, action_configuration,
		        timeout_seconds, next_execution, enabled, immediate, blackout_start, blackout_end
		 FROM tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*types.ScheduledTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (s *SQLStore) UpdateTask(task *types.ScheduledTask) error {
	if task.ID == nil {
		return errors.New("storage: UpdateTask requires a non-nil ID")
	}
	_, err := s.db.Exec(
		`UPDATE tasks SET name=?, cron=?, action_name=?, action_function=?,
		        action_configuration=?, timeout_seconds=?, next_execution=?,
		        enabled=?, immediate=?, blackout_start=?, blackout_end=?
		 WHERE id=?`,
		task.Name, task.Cron, task.ActionName, task.ActionFunction, task.ActionConfiguration,
		task.TimeoutSeconds, task.NextExecution, task.Enabled, task.Immediate,
		task.BlackoutStart, task.BlackoutEnd, *task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task %d: %w", *task.ID, err)
	}
	return nil
}

func (s *SQLStore) DeleteTask(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return nil
}

func (s *SQLStore) ClearImmediate(id int64) error {
	_, err := s.db.Exec(`UPDATE tasks SET immediate = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("clear immediate on task %d: %w", id, err)
	}
	return nil
}

func (s *SQLStore) AdvanceNextExecution(id int64, next int64) error {
	_, err := s.db.Exec(`UPDATE tasks SET next_execution = ? WHERE id = ?`, next, id)
	if err != nil {
		return fmt.Errorf("advance next_execution on task %d: %w", id, err)
	}
	return nil
}

func (s *SQLStore) CreateRun(run *types.TaskRun) (*types.TaskRun, error) {
	res, err := s.db.Exec(
		`INSERT INTO task_runs (task_id, start_time, duration_ms, message) VALUES (?, ?, ?, ?)`,
		run.TaskID, run.StartTime, run.DurationMS, run.Message,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read inserted id: %w", err)
	}
	out := *run
	out.ID = id
	return &out, nil
}

func (s *SQLStore) ListRunsByTask(taskID int64) ([]*types.TaskRun, error) {
	rows, err := s.db.Query(
		`SELECT id, task_id, start_time, duration_ms, message
		 FROM task_runs WHERE task_id = ? ORDER BY start_time DESC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list runs for task %d: %w", taskID, err)
	}
	defer rows.Close()

	var runs []*types.TaskRun
	for rows.Next() {
		var r types.TaskRun
		var message sql.NullString
		if err := rows.Scan(&r.ID, &r.TaskID, &r.StartTime, &r.DurationMS, &message); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Message = message.String
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// rowScanner abstracts over *sql.Row and *sql.Rows, both of which expose Scan.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*types.ScheduledTask, error) {
	var t types.ScheduledTask
	var id int64
	var actionConfiguration sql.NullString
	if err := row.Scan(
		&id, &t.Name, &t.Cron, &t.ActionName, &t.ActionFunction, &actionConfiguration,
		&t.TimeoutSeconds, &t.NextExecution, &t.Enabled, &t.Immediate,
		&t.BlackoutStart, &t.BlackoutEnd,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	t.ID = &id
	t.ActionConfiguration = actionConfiguration.String
	return &t, nil
}
