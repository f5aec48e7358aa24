package storage

import (
	"github.com/runinator/runinator/pkg/types"
)

// Store defines the interface for scheduled-task metadata persistence.
// It is implemented by SQLStore (pkg/storage/sqlstore.go) for processes
// that hold the database file directly, and by RemoteStore
// (pkg/storage/remotestore.go) for processes that only have network
// access to the metadata service; the interface exists so pkg/metadata
// and pkg/scheduler depend on a contract rather than a concrete backend.
type Store interface {
	// Tasks
	CreateTask(task *types.ScheduledTask) (*types.ScheduledTask, error)
	GetTask(id int64) (*types.ScheduledTask, error)
	ListTasks() ([]*types.ScheduledTask, error)
	UpdateTask(task *types.ScheduledTask) error
	DeleteTask(id int64) error

	// ClearImmediate clears the immediate flag on a task. Called by the
	// scheduler after it has dispatched an out-of-schedule firing, so a
	// crash between dispatch and clear can at most cause one duplicate run.
	ClearImmediate(id int64) error

	// AdvanceNextExecution updates a task's next_execution after dispatch.
	AdvanceNextExecution(id int64, next int64) error

	// Runs
	CreateRun(run *types.TaskRun) (*types.TaskRun, error)
	ListRunsByTask(taskID int64) ([]*types.TaskRun, error)

	// Utility
	Close() error
}
