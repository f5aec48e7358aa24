package worker

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runinator/runinator/pkg/events"
	"github.com/runinator/runinator/pkg/locator"
	"github.com/runinator/runinator/pkg/metadata"
	"github.com/runinator/runinator/pkg/provider"
	"github.com/runinator/runinator/pkg/storage"
	"github.com/runinator/runinator/pkg/types"
)

// fakeOperations is a broker.Operations double that hands out a fixed
// queue of deliveries, one per Poll call, and records ack/nack calls.
type fakeOperations struct {
	mu       sync.Mutex
	queue    []types.BrokerDelivery
	acked    []string
	nacked   []string
	nackOnce bool
}

func (f *fakeOperations) Publish(ctx context.Context, msg types.BrokerMessage) (*types.BrokerDelivery, error) {
	return nil, nil
}

func (f *fakeOperations) Poll(ctx context.Context, consumer string, timeout time.Duration) (types.BrokerDelivery, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return types.BrokerDelivery{}, false, nil
	}
	d := f.queue[0]
	f.queue = f.queue[1:]
	return d, true, nil
}

func (f *fakeOperations) Ack(ctx context.Context, consumer, deliveryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, deliveryID)
	return nil
}

func (f *fakeOperations) Nack(ctx context.Context, consumer, deliveryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked = append(f.nacked, deliveryID)
	return nil
}

func taskDelivery(id int64, actionName, actionFunction, actionConfiguration string, timeoutSeconds int64) types.BrokerDelivery {
	return types.BrokerDelivery{
		DeliveryID: "d-" + actionName,
		DedupeKey:  "k",
		Command: types.TaskCommand{
			CommandID: "c1",
			Task: types.ScheduledTask{
				ID: &id, Name: "t", Cron: "* * * * *",
				ActionName: actionName, ActionFunction: actionFunction,
				ActionConfiguration: actionConfiguration, TimeoutSeconds: timeoutSeconds,
				Enabled: true,
			},
		},
	}
}

func TestWorker_ConsoleSuccess_AcksAndRecordsRun(t *testing.T) {
	store, err := storage.NewSQLStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	srv := metadata.NewServer(store, events.NewBroker())
	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()

	created, err := store.CreateTask(&types.ScheduledTask{Name: "t", Cron: "* * * * *", ActionName: "console", TimeoutSeconds: 5, Enabled: true})
	require.NoError(t, err)

	ops := &fakeOperations{queue: []types.BrokerDelivery{taskDelivery(*created.ID, "console", "noop", "hi", 5)}}
	metaClient := locator.NewHTTPClient(locator.NewStatic(httpSrv.URL), time.Second)

	w := New(Config{PollTimeout: 10 * time.Millisecond, IdleBackoff: 5 * time.Millisecond}, ops, metaClient)
	w.Start()
	require.Eventually(t, func() bool {
		ops.mu.Lock()
		defer ops.mu.Unlock()
		return len(ops.acked) == 1
	}, time.Second, 5*time.Millisecond)
	w.Stop()

	runs, err := store.ListRunsByTask(*created.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func TestWorker_MissingProvider_AcksWithMessage(t *testing.T) {
	ops := &fakeOperations{queue: []types.BrokerDelivery{taskDelivery(1, "no-such-provider", "f", "", 5)}}

	w := New(Config{PollTimeout: 10 * time.Millisecond, IdleBackoff: 5 * time.Millisecond}, ops, nil)
	w.Start()
	require.Eventually(t, func() bool {
		ops.mu.Lock()
		defer ops.mu.Unlock()
		return len(ops.acked) == 1
	}, time.Second, 5*time.Millisecond)
	w.Stop()

	require.Empty(t, ops.nacked)
}

func TestWorker_ExecProviderFailure_Acks(t *testing.T) {
	ops := &fakeOperations{queue: []types.BrokerDelivery{taskDelivery(1, "exec", "false", "", 5)}}

	w := New(Config{PollTimeout: 10 * time.Millisecond, IdleBackoff: 5 * time.Millisecond}, ops, nil)
	w.Start()
	require.Eventually(t, func() bool {
		ops.mu.Lock()
		defer ops.mu.Unlock()
		return len(ops.acked) == 1
	}, time.Second, 5*time.Millisecond)
	w.Stop()
}

func TestWorker_Timeout_AcksAfterTimeout(t *testing.T) {
	provider.Register("slow-test", slowProvider{})
	ops := &fakeOperations{queue: []types.BrokerDelivery{taskDelivery(1, "slow-test", "f", "", 1)}}

	w := New(Config{PollTimeout: 10 * time.Millisecond, IdleBackoff: 5 * time.Millisecond}, ops, nil)
	w.Start()
	require.Eventually(t, func() bool {
		ops.mu.Lock()
		defer ops.mu.Unlock()
		return len(ops.acked) == 1
	}, 3*time.Second, 10*time.Millisecond)
	w.Stop()
}

type slowProvider struct{}

func (slowProvider) Call(ctx context.Context, function, configuration string, timeout time.Duration) (int, error) {
	select {
	case <-time.After(5 * time.Second):
		return 0, nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}
