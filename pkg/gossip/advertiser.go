package gossip

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/runinator/runinator/pkg/log"
	"github.com/runinator/runinator/pkg/types"
)

// Advertiser drives the two background loops every gossip participant
// needs: broadcasting its own heartbeat on an interval, and listening for
// and folding in peers' heartbeats while pruning stale ones.
type Advertiser struct {
	sock   *Socket
	reg    *Registry
	logger zerolog.Logger

	interval time.Duration

	mu   sync.RWMutex
	self *types.GossipMessage

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewAdvertiser builds an Advertiser. interval controls both how often
// this process re-broadcasts self and how often it prunes stale peers.
func NewAdvertiser(sock *Socket, reg *Registry, interval time.Duration) *Advertiser {
	return &Advertiser{
		sock:     sock,
		reg:      reg,
		logger:   log.WithComponent("gossip"),
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// SetSelf updates the message broadcast on the next heartbeat tick. Safe
// to call repeatedly, e.g. as a worker's known_peers list grows.
func (a *Advertiser) SetSelf(msg types.GossipMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.self = &msg
}

// Start launches the listen loop and the heartbeat/prune loop.
func (a *Advertiser) Start(ctx context.Context) {
	go func() {
		if err := a.sock.Listen(func(msg types.GossipMessage, _ net.Addr) {
			a.reg.Observe(msg)
		}); err != nil {
			a.logger.Error().Err(err).Msg("gossip listener exited")
		}
	}()
	go a.run(ctx)
}

// Stop halts the heartbeat/prune loop and closes the socket, which in
// turn unblocks the listen goroutine.
func (a *Advertiser) Stop() {
	close(a.stopCh)
	<-a.doneCh
	a.sock.Close()
}

func (a *Advertiser) run(ctx context.Context) {
	defer close(a.doneCh)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.beat()

	for {
		select {
		case <-ticker.C:
			a.beat()
			a.reg.Prune()
		case <-ctx.Done():
			return
		case <-a.stopCh:
			return
		}
	}
}

func (a *Advertiser) beat() {
	a.mu.RLock()
	msg := a.self
	a.mu.RUnlock()

	if msg == nil {
		return
	}
	if err := a.sock.Send(*msg); err != nil {
		a.logger.Warn().Err(err).Msg("failed to broadcast gossip heartbeat")
	}
}
