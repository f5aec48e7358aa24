package gossip

import (
	"context"
	"sync"
	"time"

	"github.com/runinator/runinator/pkg/metrics"
	"github.com/runinator/runinator/pkg/types"
)

type peer struct {
	worker  *types.WorkerAnnouncement
	service *types.WebServiceAnnouncement
	seen    time.Time
}

// Registry is the in-memory view of currently-live workers and web
// services, built entirely from gossip traffic. Entries age out after
// maxAge without a fresh heartbeat.
type Registry struct {
	maxAge time.Duration

	mu       sync.RWMutex
	cond     *sync.Cond
	workers  map[string]*peer // worker_id -> peer
	services map[string]*peer // service_id -> peer
}

// NewRegistry creates an empty registry. maxAge bounds how long an entry
// survives without a fresh announcement before Prune drops it.
func NewRegistry(maxAge time.Duration) *Registry {
	r := &Registry{
		maxAge:   maxAge,
		workers:  make(map[string]*peer),
		services: make(map[string]*peer),
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Observe folds one received gossip message into the registry.
func (r *Registry) Observe(msg types.GossipMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	switch msg.Type {
	case types.GossipKindWorker:
		r.workers[msg.Worker.WorkerID] = &peer{worker: msg.Worker, seen: now}
	case types.GossipKindWebService:
		r.services[msg.Service.ServiceID] = &peer{service: msg.Service, seen: now}
	}

	metrics.KnownWorkersTotal.Set(float64(len(r.workers)))
	metrics.KnownWebServicesTotal.Set(float64(len(r.services)))

	r.cond.Broadcast()
}

// Workers returns a snapshot of currently-known workers.
func (r *Registry) Workers() []types.WorkerAnnouncement {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.WorkerAnnouncement, 0, len(r.workers))
	for _, p := range r.workers {
		out = append(out, *p.worker)
	}
	return out
}

// WebServices returns a snapshot of currently-known web services.
func (r *Registry) WebServices() []types.WebServiceAnnouncement {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.WebServiceAnnouncement, 0, len(r.services))
	for _, p := range r.services {
		out = append(out, *p.service)
	}
	return out
}

// CurrentWebService returns an arbitrary known web service, or false if
// none is currently known.
func (r *Registry) CurrentWebService() (types.WebServiceAnnouncement, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.services {
		return *p.service, true
	}
	return types.WebServiceAnnouncement{}, false
}

// WaitForWebService blocks until a web service is known or ctx is
// cancelled. This backs the dynamic service locator: a worker or
// scheduler started before any web service has announced itself waits
// here instead of failing its first request.
func (r *Registry) WaitForWebService(ctx context.Context) (types.WebServiceAnnouncement, error) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			r.cond.Broadcast()
			r.mu.Unlock()
		case <-done:
		}
	}()
	defer close(done)

	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		for _, p := range r.services {
			return *p.service, nil
		}
		if err := ctx.Err(); err != nil {
			return types.WebServiceAnnouncement{}, err
		}
		r.cond.Wait()
	}
}

// Prune drops workers and web services whose last heartbeat is older
// than maxAge. Callers run this on a ticker alongside the advertiser's
// own heartbeat loop.
func (r *Registry) Prune() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.maxAge)

	for id, p := range r.workers {
		if p.seen.Before(cutoff) {
			delete(r.workers, id)
			metrics.StalePeersPrunedTotal.WithLabelValues("worker").Inc()
		}
	}
	for id, p := range r.services {
		if p.seen.Before(cutoff) {
			delete(r.services, id)
			metrics.StalePeersPrunedTotal.WithLabelValues("web_service").Inc()
		}
	}

	metrics.KnownWorkersTotal.Set(float64(len(r.workers)))
	metrics.KnownWebServicesTotal.Set(float64(len(r.services)))
}
