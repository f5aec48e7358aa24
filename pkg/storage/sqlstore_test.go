package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/runinator/runinator/pkg/types"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateGetUpdateDeleteTask(t *testing.T) {
	store := newTestStore(t)

	created, err := store.CreateTask(&types.ScheduledTask{
		Name: "t", Cron: "* * * * *", ActionName: "console", TimeoutSeconds: 5, Enabled: true,
	})
	require.NoError(t, err)
	require.NotNil(t, created.ID)

	got, err := store.GetTask(*created.ID)
	require.NoError(t, err)
	require.Equal(t, "t", got.Name)

	got.Name = "renamed"
	require.NoError(t, store.UpdateTask(got))

	got2, err := store.GetTask(*created.ID)
	require.NoError(t, err)
	require.Equal(t, "renamed", got2.Name)

	require.NoError(t, store.DeleteTask(*created.ID))
	_, err = store.GetTask(*created.ID)
	require.Error(t, err)
}

func TestListTasks_ReturnsAll(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 3; i++ {
		_, err := store.CreateTask(&types.ScheduledTask{Name: "t", Cron: "* * * * *", ActionName: "console", TimeoutSeconds: 5})
		require.NoError(t, err)
	}
	tasks, err := store.ListTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 3)
}

func TestClearImmediateAndAdvanceNextExecution(t *testing.T) {
	store := newTestStore(t)
	created, err := store.CreateTask(&types.ScheduledTask{
		Name: "t", Cron: "* * * * *", ActionName: "console", TimeoutSeconds: 5, Immediate: true,
	})
	require.NoError(t, err)

	require.NoError(t, store.ClearImmediate(*created.ID))
	got, err := store.GetTask(*created.ID)
	require.NoError(t, err)
	require.False(t, got.Immediate)

	require.NoError(t, store.AdvanceNextExecution(*created.ID, 12345))
	got, err = store.GetTask(*created.ID)
	require.NoError(t, err)
	require.Equal(t, int64(12345), *got.NextExecution)
}

func TestCreateAndListRunsByTask(t *testing.T) {
	store := newTestStore(t)
	created, err := store.CreateTask(&types.ScheduledTask{Name: "t", Cron: "* * * * *", ActionName: "console", TimeoutSeconds: 5})
	require.NoError(t, err)

	_, err = store.CreateRun(&types.TaskRun{TaskID: *created.ID, StartTime: 100, DurationMS: 50, Message: "ok"})
	require.NoError(t, err)
	_, err = store.CreateRun(&types.TaskRun{TaskID: *created.ID, StartTime: 200, DurationMS: 75})
	require.NoError(t, err)

	runs, err := store.ListRunsByTask(*created.ID)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, int64(200), runs[0].StartTime, "runs are ordered most-recent-first")
}

func TestDeleteTask_CascadesRuns(t *testing.T) {
	store := newTestStore(t)
	created, err := store.CreateTask(&types.ScheduledTask{Name: "t", Cron: "* * * * *", ActionName: "console", TimeoutSeconds: 5})
	require.NoError(t, err)
	_, err = store.CreateRun(&types.TaskRun{TaskID: *created.ID, StartTime: 100, DurationMS: 10})
	require.NoError(t, err)

	require.NoError(t, store.DeleteTask(*created.ID))

	runs, err := store.ListRunsByTask(*created.ID)
	require.NoError(t, err)
	require.Empty(t, runs)
}

func TestExecuteScripts_RunsStatementsInOrder(t *testing.T) {
	store := newTestStore(t)

	scriptPath := filepath.Join(t.TempDir(), "seed.sql")
	script := `
		INSERT INTO tasks (name, cron, action_name, action_function, action_configuration, timeout_seconds, enabled, immediate)
		VALUES ('seeded', '* * * * *', 'console', '', '', 5, 1, 0);
		UPDATE tasks SET name = 'seeded-renamed' WHERE name = 'seeded';
	`
	require.NoError(t, os.WriteFile(scriptPath, []byte(script), 0o644))

	require.NoError(t, store.ExecuteScripts([]string{scriptPath}))

	tasks, err := store.ListTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "seeded-renamed", tasks[0].Name)
}

func TestExecuteScripts_MissingFileErrors(t *testing.T) {
	store := newTestStore(t)
	err := store.ExecuteScripts([]string{filepath.Join(t.TempDir(), "missing.sql")})
	require.Error(t, err)
}
