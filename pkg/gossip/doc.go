/*
Package gossip implements Runinator's UDP broadcast discovery fabric.

Every web service and worker process periodically broadcasts a
WebServiceAnnouncement or WorkerAnnouncement (pkg/types) as a JSON
datagram on a well-known UDP broadcast address. Every process also
listens on that address and folds received announcements into a
Registry, pruning entries whose heartbeat has gone stale.

There is no membership protocol, no anti-entropy exchange, and no
consensus: a process's view of the cluster is exactly "whatever
announcements I've personally received and not yet aged out." This is
deliberately the simplest thing that could work for an operator-sized
fleet on one broadcast domain.

# Usage

	sock, err := gossip.Bind(":7946", "255.255.255.255:7946")
	reg := gossip.NewRegistry(30 * time.Second)
	adv := gossip.NewAdvertiser(sock, reg, 5*time.Second)
	adv.Start(ctx)
	defer adv.Stop()

	adv.SetSelf(types.NewWorkerGossip(announcement))

	ann, err := reg.WaitForWebService(ctx)

# Design Patterns

The Advertiser's run loop is the same ticker+select+stopCh shape the rest
of the module uses for background loops (scheduler, reconciliation): a
single goroutine wakes on an interval, does one unit of work, and exits
on a close signal.

Registry uses a sync.Cond rather than a busy-poll loop so WaitForWebService
can block efficiently until gossip actually produces a candidate.
*/
package gossip
