package locator

import (
	"context"

	"github.com/runinator/runinator/pkg/gossip"
	"github.com/runinator/runinator/pkg/types"
)

// Locator resolves the base URL of a remote component. Implementations
// must be safe for concurrent use; callers are expected to call BaseURL
// once per outgoing request rather than cache the result.
type Locator interface {
	BaseURL(ctx context.Context) (string, error)
}

// Static always resolves to the same, operator-configured URL.
type Static struct {
	url string
}

// NewStatic wraps a constant base URL, e.g. "http://localhost:7070".
func NewStatic(url string) Static {
	return Static{url: url}
}

// BaseURL always returns the constant url; it never fails.
func (s Static) BaseURL(ctx context.Context) (string, error) {
	return s.url, nil
}

// Gossip resolves to whatever web-service announcement the gossip
// registry currently knows about, blocking (subject to ctx) until one
// appears if none is known yet.
type Gossip struct {
	registry *gossip.Registry
}

// NewGossip wraps a gossip registry as a dynamic Locator.
func NewGossip(registry *gossip.Registry) *Gossip {
	return &Gossip{registry: registry}
}

// BaseURL waits for a web-service announcement if none is currently
// known, then returns its HTTP base URL. Returns a types.Error of kind
// ErrDiscovery if ctx is cancelled first.
func (g *Gossip) BaseURL(ctx context.Context) (string, error) {
	if ann, ok := g.registry.CurrentWebService(); ok {
		return ann.BaseURL(), nil
	}
	ann, err := g.registry.WaitForWebService(ctx)
	if err != nil {
		return "", types.NewDiscoveryError("no web service announced yet: " + err.Error())
	}
	return ann.BaseURL(), nil
}
