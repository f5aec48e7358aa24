package storage_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runinator/runinator/pkg/events"
	"github.com/runinator/runinator/pkg/locator"
	"github.com/runinator/runinator/pkg/metadata"
	"github.com/runinator/runinator/pkg/storage"
	"github.com/runinator/runinator/pkg/types"
)

func newTestRemoteStore(t *testing.T) *storage.RemoteStore {
	t.Helper()
	sqlStore, err := storage.NewSQLStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { sqlStore.Close() })

	srv := metadata.NewServer(sqlStore, events.NewBroker())
	httpSrv := httptest.NewServer(srv)
	t.Cleanup(httpSrv.Close)

	client := locator.NewHTTPClient(locator.NewStatic(httpSrv.URL), time.Second)
	return storage.NewRemoteStore(client)
}

func TestRemoteStoreCreateGetUpdateDelete(t *testing.T) {
	store := newTestRemoteStore(t)

	created, err := store.CreateTask(&types.ScheduledTask{
		Name:           "nightly-report",
		Cron:           "0 0 * * *",
		ActionName:     "exec",
		ActionFunction: "run",
		TimeoutSeconds: 30,
		Enabled:        true,
	})
	require.NoError(t, err)
	require.NotNil(t, created.ID)

	fetched, err := store.GetTask(*created.ID)
	require.NoError(t, err)
	require.Equal(t, "nightly-report", fetched.Name)

	fetched.Cron = "0 1 * * *"
	require.NoError(t, store.UpdateTask(fetched))

	updated, err := store.GetTask(*created.ID)
	require.NoError(t, err)
	require.Equal(t, "0 1 * * *", updated.Cron)

	require.NoError(t, store.DeleteTask(*created.ID))
	_, err = store.GetTask(*created.ID)
	require.Error(t, err)
}

func TestRemoteStoreClearImmediateAndAdvanceNextExecution(t *testing.T) {
	store := newTestRemoteStore(t)

	created, err := store.CreateTask(&types.ScheduledTask{
		Name:           "flagged",
		Cron:           "* * * * *",
		ActionName:     "console",
		ActionFunction: "log",
		TimeoutSeconds: 5,
		Enabled:        true,
		Immediate:      true,
	})
	require.NoError(t, err)

	// Insert always stores immediate=false, so set it through an update.
	created.Immediate = true
	require.NoError(t, store.UpdateTask(created))
	task, err := store.GetTask(*created.ID)
	require.NoError(t, err)
	require.True(t, task.Immediate)

	require.NoError(t, store.ClearImmediate(*created.ID))
	task, err = store.GetTask(*created.ID)
	require.NoError(t, err)
	require.False(t, task.Immediate)

	require.NoError(t, store.AdvanceNextExecution(*created.ID, 1234567890))
	task, err = store.GetTask(*created.ID)
	require.NoError(t, err)
	require.NotNil(t, task.NextExecution)
	require.Equal(t, int64(1234567890), *task.NextExecution)
}

func TestRemoteStoreListRunsByTask(t *testing.T) {
	store := newTestRemoteStore(t)

	taskA, err := store.CreateTask(&types.ScheduledTask{
		Name: "a", Cron: "* * * * *", ActionName: "console", ActionFunction: "log", TimeoutSeconds: 5, Enabled: true,
	})
	require.NoError(t, err)
	taskB, err := store.CreateTask(&types.ScheduledTask{
		Name: "b", Cron: "* * * * *", ActionName: "console", ActionFunction: "log", TimeoutSeconds: 5, Enabled: true,
	})
	require.NoError(t, err)

	_, err = store.CreateRun(&types.TaskRun{TaskID: *taskA.ID, StartTime: 100, DurationMS: 10, Message: "ok"})
	require.NoError(t, err)
	_, err = store.CreateRun(&types.TaskRun{TaskID: *taskB.ID, StartTime: 200, DurationMS: 20, Message: "also ok"})
	require.NoError(t, err)

	runs, err := store.ListRunsByTask(*taskA.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, int64(100), runs[0].StartTime)
}

func TestRemoteStoreListTasks(t *testing.T) {
	store := newTestRemoteStore(t)

	_, err := store.CreateTask(&types.ScheduledTask{
		Name: "one", Cron: "* * * * *", ActionName: "console", ActionFunction: "log", TimeoutSeconds: 5, Enabled: true,
	})
	require.NoError(t, err)
	_, err = store.CreateTask(&types.ScheduledTask{
		Name: "two", Cron: "* * * * *", ActionName: "console", ActionFunction: "log", TimeoutSeconds: 5, Enabled: true,
	})
	require.NoError(t, err)

	tasks, err := store.ListTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 2)
}
