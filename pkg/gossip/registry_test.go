package gossip

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runinator/runinator/pkg/types"
)

func TestRegistry_ObserveAndList(t *testing.T) {
	reg := NewRegistry(time.Minute)

	reg.Observe(types.NewWorkerGossip(types.WorkerAnnouncement{
		WorkerID:      "worker-1",
		Address:       "10.0.0.5",
		CommandPort:   9000,
		LastHeartbeat: time.Now(),
	}))
	reg.Observe(types.NewWebServiceGossip(types.WebServiceAnnouncement{
		ServiceID:     "svc-1",
		Address:       "10.0.0.6",
		Port:          8080,
		LastHeartbeat: time.Now(),
	}))

	workers := reg.Workers()
	require.Len(t, workers, 1)
	assert.Equal(t, "worker-1", workers[0].WorkerID)

	services := reg.WebServices()
	require.Len(t, services, 1)
	assert.Equal(t, "svc-1", services[0].ServiceID)
}

func TestRegistry_ObserveOverwritesByID(t *testing.T) {
	reg := NewRegistry(time.Minute)

	reg.Observe(types.NewWorkerGossip(types.WorkerAnnouncement{WorkerID: "w1", Address: "10.0.0.1"}))
	reg.Observe(types.NewWorkerGossip(types.WorkerAnnouncement{WorkerID: "w1", Address: "10.0.0.2"}))

	workers := reg.Workers()
	require.Len(t, workers, 1)
	assert.Equal(t, "10.0.0.2", workers[0].Address)
}

func TestRegistry_Prune(t *testing.T) {
	reg := NewRegistry(10 * time.Millisecond)

	reg.Observe(types.NewWorkerGossip(types.WorkerAnnouncement{WorkerID: "stale"}))
	time.Sleep(20 * time.Millisecond)
	reg.Observe(types.NewWorkerGossip(types.WorkerAnnouncement{WorkerID: "fresh"}))

	reg.Prune()

	workers := reg.Workers()
	require.Len(t, workers, 1)
	assert.Equal(t, "fresh", workers[0].WorkerID)
}

func TestRegistry_WaitForWebServiceReturnsImmediatelyWhenKnown(t *testing.T) {
	reg := NewRegistry(time.Minute)
	reg.Observe(types.NewWebServiceGossip(types.WebServiceAnnouncement{ServiceID: "svc-1"}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ann, err := reg.WaitForWebService(ctx)
	require.NoError(t, err)
	assert.Equal(t, "svc-1", ann.ServiceID)
}

func TestRegistry_WaitForWebServiceUnblocksOnObserve(t *testing.T) {
	reg := NewRegistry(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resultCh := make(chan types.WebServiceAnnouncement, 1)
	errCh := make(chan error, 1)
	go func() {
		ann, err := reg.WaitForWebService(ctx)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- ann
	}()

	time.Sleep(20 * time.Millisecond)
	reg.Observe(types.NewWebServiceGossip(types.WebServiceAnnouncement{ServiceID: "svc-late"}))

	select {
	case ann := <-resultCh:
		assert.Equal(t, "svc-late", ann.ServiceID)
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("WaitForWebService did not unblock")
	}
}

func TestRegistry_WaitForWebServiceRespectsCancellation(t *testing.T) {
	reg := NewRegistry(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := reg.WaitForWebService(ctx)
	assert.Error(t, err)
}
