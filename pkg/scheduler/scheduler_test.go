package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runinator/runinator/pkg/storage"
	"github.com/runinator/runinator/pkg/types"
)

// fakeBroker is an in-memory broker.Operations double that records
// every publish and can simulate a duplicate response for a given key.
type fakeBroker struct {
	mu        sync.Mutex
	published []types.BrokerMessage
	duplicate map[string]bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{duplicate: make(map[string]bool)}
}

func (f *fakeBroker) Publish(ctx context.Context, msg types.BrokerMessage) (*types.BrokerDelivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.duplicate[msg.DedupeKey] {
		return nil, types.NewDuplicateError(msg.DedupeKey)
	}
	f.duplicate[msg.DedupeKey] = true
	f.published = append(f.published, msg)
	return &types.BrokerDelivery{DeliveryID: "d1", DedupeKey: msg.DedupeKey, Command: msg.Command}, nil
}

func (f *fakeBroker) Poll(ctx context.Context, consumer string, timeout time.Duration) (types.BrokerDelivery, bool, error) {
	return types.BrokerDelivery{}, false, nil
}

func (f *fakeBroker) Ack(ctx context.Context, consumer, deliveryID string) error  { return nil }
func (f *fakeBroker) Nack(ctx context.Context, consumer, deliveryID string) error { return nil }

func newTestStore(t *testing.T) *storage.SQLStore {
	t.Helper()
	store, err := storage.NewSQLStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunOnce_PopulatesAbsentNextExecution(t *testing.T) {
	store := newTestStore(t)
	fb := newFakeBroker()
	sched := New(store, fb, time.Second)

	created, err := store.CreateTask(&types.ScheduledTask{
		Name: "t", Cron: "* * * * *", ActionName: "console", TimeoutSeconds: 5, Enabled: true,
	})
	require.NoError(t, err)
	require.NoError(t, store.UpdateTask(&types.ScheduledTask{
		ID: created.ID, Name: "t", Cron: "* * * * *", ActionName: "console",
		TimeoutSeconds: 5, Enabled: true, NextExecution: nil,
	}))

	sched.RunOnce(context.Background())

	got, err := store.GetTask(*created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NextExecution, "next_execution should be populated to now")
	require.Empty(t, fb.published, "no dispatch should happen on the populating iteration")
}

func TestRunOnce_SkipsDisabledTask(t *testing.T) {
	store := newTestStore(t)
	fb := newFakeBroker()
	sched := New(store, fb, time.Second)

	past := time.Now().Add(-time.Hour).Unix()
	created, err := store.CreateTask(&types.ScheduledTask{
		Name: "t", Cron: "* * * * *", ActionName: "console", TimeoutSeconds: 5,
		Enabled: false, NextExecution: &past,
	})
	require.NoError(t, err)

	sched.RunOnce(context.Background())
	require.Empty(t, fb.published)
	_ = created
}

func TestRunOnce_DispatchesDueTaskAndAdvances(t *testing.T) {
	store := newTestStore(t)
	fb := newFakeBroker()
	sched := New(store, fb, time.Second)

	past := time.Now().Add(-time.Hour).Unix()
	created, err := store.CreateTask(&types.ScheduledTask{
		Name: "t", Cron: "* * * * *", ActionName: "console", TimeoutSeconds: 5,
		Enabled: true, NextExecution: &past,
	})
	require.NoError(t, err)

	sched.RunOnce(context.Background())

	require.Len(t, fb.published, 1)
	require.Equal(t, dedupeKey(*created.ID, past), fb.published[0].DedupeKey)

	got, err := store.GetTask(*created.ID)
	require.NoError(t, err)
	require.Greater(t, *got.NextExecution, past, "next_execution should advance past the firing that just dispatched")
}

func TestRunOnce_ImmediateClearsAfterDispatch(t *testing.T) {
	store := newTestStore(t)
	fb := newFakeBroker()
	sched := New(store, fb, time.Second)

	future := time.Now().Add(time.Hour).Unix()
	created, err := store.CreateTask(&types.ScheduledTask{
		Name: "t", Cron: "* * * * *", ActionName: "console", TimeoutSeconds: 5,
		Enabled: true, NextExecution: &future, Immediate: true,
	})
	require.NoError(t, err)

	sched.RunOnce(context.Background())

	require.Len(t, fb.published, 1, "immediate=true should force dispatch despite next_execution being in the future")

	got, err := store.GetTask(*created.ID)
	require.NoError(t, err)
	require.False(t, got.Immediate, "immediate should be cleared after a forced dispatch")
}

func TestRunOnce_BlackoutDefersDispatch(t *testing.T) {
	store := newTestStore(t)
	fb := newFakeBroker()
	sched := New(store, fb, time.Second)

	now := time.Now().Unix()
	start := now - 60
	end := now + 3600
	created, err := store.CreateTask(&types.ScheduledTask{
		Name: "t", Cron: "* * * * *", ActionName: "console", TimeoutSeconds: 5,
		Enabled: true, NextExecution: &now, BlackoutStart: &start, BlackoutEnd: &end,
	})
	require.NoError(t, err)

	sched.RunOnce(context.Background())

	require.Empty(t, fb.published, "a task inside its blackout window must not dispatch")

	got, err := store.GetTask(*created.ID)
	require.NoError(t, err)
	require.Equal(t, end, *got.NextExecution, "next_execution should be deferred to blackout_end")
}

func TestRunOnce_DuplicatePublishStillAdvances(t *testing.T) {
	store := newTestStore(t)
	fb := newFakeBroker()
	sched := New(store, fb, time.Second)

	past := time.Now().Add(-time.Hour).Unix()
	created, err := store.CreateTask(&types.ScheduledTask{
		Name: "t", Cron: "* * * * *", ActionName: "console", TimeoutSeconds: 5,
		Enabled: true, NextExecution: &past,
	})
	require.NoError(t, err)
	fb.duplicate[dedupeKey(*created.ID, past)] = true

	sched.RunOnce(context.Background())

	got, err := store.GetTask(*created.ID)
	require.NoError(t, err)
	require.Greater(t, *got.NextExecution, past, "a duplicate publish must be treated as success and still advance next_execution")
}

func TestRunOnce_NotYetDueTaskSkipped(t *testing.T) {
	store := newTestStore(t)
	fb := newFakeBroker()
	sched := New(store, fb, time.Second)

	future := time.Now().Add(time.Hour).Unix()
	_, err := store.CreateTask(&types.ScheduledTask{
		Name: "t", Cron: "* * * * *", ActionName: "console", TimeoutSeconds: 5,
		Enabled: true, NextExecution: &future,
	})
	require.NoError(t, err)

	sched.RunOnce(context.Background())
	require.Empty(t, fb.published)
}

func TestDedupeKey_Format(t *testing.T) {
	require.Equal(t, "7:1000", dedupeKey(7, 1000))
}

func TestStartStop(t *testing.T) {
	store := newTestStore(t)
	fb := newFakeBroker()
	sched := New(store, fb, 10*time.Millisecond)
	sched.Start()
	time.Sleep(25 * time.Millisecond)
	sched.Stop()
}
