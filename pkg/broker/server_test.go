package broker

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runinator/runinator/pkg/locator"
	"github.com/runinator/runinator/pkg/types"
)

func TestHTTPTransport_PublishPollAckRoundTrip(t *testing.T) {
	b := New()
	srv := NewServer(b)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := NewClient(locator.NewStatic(ts.URL), 5*time.Second)
	ctx := t.Context()

	delivery, err := client.Publish(ctx, types.BrokerMessage{
		Command:   types.TaskCommand{CommandID: "cmd-1"},
		DedupeKey: "1:100",
	})
	require.NoError(t, err)
	require.NotNil(t, delivery)

	_, err = client.Publish(ctx, types.BrokerMessage{
		Command:   types.TaskCommand{CommandID: "cmd-1"},
		DedupeKey: "1:100",
	})
	require.Error(t, err)
	rerr, ok := err.(*types.Error)
	require.True(t, ok)
	require.Equal(t, types.ErrDuplicate, rerr.Kind)

	polled, ok, err := client.Poll(ctx, "worker-1", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1:100", polled.DedupeKey)

	require.NoError(t, client.Ack(ctx, "worker-1", polled.DeliveryID))

	// Re-publishing the same key now succeeds since the ack freed it.
	_, err = client.Publish(ctx, types.BrokerMessage{
		Command:   types.TaskCommand{CommandID: "cmd-1"},
		DedupeKey: "1:100",
	})
	require.NoError(t, err)
}

func TestHTTPTransport_PollEmptyReturnsNoContent(t *testing.T) {
	b := New()
	srv := NewServer(b)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := NewClient(locator.NewStatic(ts.URL), 5*time.Second)
	_, ok, err := client.Poll(t.Context(), "worker-1", 0)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHTTPTransport_AckUnknownDeliveryIsNotFound(t *testing.T) {
	b := New()
	srv := NewServer(b)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := NewClient(locator.NewStatic(ts.URL), 5*time.Second)
	err := client.Ack(t.Context(), "worker-1", "missing")
	require.Error(t, err)
	rerr, ok := err.(*types.Error)
	require.True(t, ok)
	require.Equal(t, types.ErrUnknownDelivery, rerr.Kind)
}
