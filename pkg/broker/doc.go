/*
Package broker implements Runinator's durable-enough work queue: at-least-once
delivery of TaskCommands with caller-assisted deduplication.

Broker holds three pieces of state behind a single mutex — an ordered queue
of pending BrokerDeliveries, a map of deliveries handed out but not yet
acknowledged, and a set of dedupe keys currently "owned" by something in
either of those two places. A sync.Cond wakes blocked pollers when publish
adds work.

# Usage

	b := broker.New()
	if _, err := b.Publish(msg); err != nil { ... } // may be types.ErrDuplicate
	delivery, ok, err := b.Poll(ctx, "worker-1", 5*time.Second)
	if ok {
	    b.Ack("worker-1", delivery.DeliveryID)
	}

Server wraps a *Broker with a chi-routed HTTP transport exposing the
same four operations; Client implements that transport's protocol so the
scheduler and worker pool can run against either an in-process Broker or
one fronted by HTTP, without caring which.

# Design Patterns

A single mutex plus one condition variable guards queue, inflight, and
dedupe together rather than splitting them across per-field locks, since
the invariants span all three and must move atomically.
*/
package broker
