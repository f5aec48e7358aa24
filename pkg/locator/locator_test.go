package locator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runinator/runinator/pkg/gossip"
	"github.com/runinator/runinator/pkg/types"
)

func TestStatic_AlwaysReturnsSameURL(t *testing.T) {
	s := NewStatic("http://localhost:7070")
	url, err := s.BaseURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:7070", url)
}

func TestGossip_ReturnsImmediatelyWhenKnown(t *testing.T) {
	reg := gossip.NewRegistry(time.Minute)
	reg.Observe(types.NewWebServiceGossip(types.WebServiceAnnouncement{
		ServiceID: "svc-1",
		Address:   "10.0.0.1",
		Port:      8080,
	}))

	g := NewGossip(reg)
	url, err := g.BaseURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:8080", url)
}

func TestGossip_ReturnsDiscoveryErrorWhenCtxCancelled(t *testing.T) {
	reg := gossip.NewRegistry(time.Minute)
	g := NewGossip(reg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.BaseURL(ctx)
	require.Error(t, err)
	rerr, ok := err.(*types.Error)
	require.True(t, ok)
	assert.Equal(t, types.ErrDiscovery, rerr.Kind)
}
