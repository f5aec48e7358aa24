/*
Package storage provides persistence for Runinator's scheduled tasks and
task run history, behind the Store interface.

SQLStore implements Store over database/sql and the mattn/go-sqlite3
driver. Two tables back it: tasks (the durable ScheduledTask catalog) and
task_runs (an append-only execution log). RemoteStore implements the same
interface over the metadata HTTP API, for a caller that doesn't hold the
SQLite file directly. The interface is narrow enough that a
Postgres-backed implementation could also be added later without
touching callers.

# Usage

	store, err := storage.NewSQLStore("/var/lib/runinator/metadata")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	task, err := store.CreateTask(&types.ScheduledTask{
		Name:           "nightly-export",
		Cron:           "0 0 2 * * *",
		ActionName:     "exec",
		ActionFunction: "/usr/local/bin/export.sh",
		TimeoutSeconds: 300,
		Enabled:        true,
	})

# Design Patterns

Upsert is split into Create/Update (unlike a key-value store's single Put)
because SQL needs INSERT vs UPDATE to assign AUTOINCREMENT ids correctly.

SQLStore's ClearImmediate and AdvanceNextExecution are narrow,
single-column updates rather than a full UpdateTask round trip: the
scheduler calls them on every dispatch and a full read-modify-write would
race against a concurrent operator edit to the same task. RemoteStore's
versions are read-modify-write (GetTask, then a PATCH of the whole row),
since the metadata API has no single-field patch route.

Error Wrapping: every error is wrapped with operation context via
fmt.Errorf("...: %w", err), preserving the original for errors.Is/As.
*/
package storage
