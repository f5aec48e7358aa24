/*
Package events provides an in-memory event broker for task lifecycle
notifications inside a single metadata service process.

The metadata service publishes one Event each time it creates, updates, or
deletes a ScheduledTask, records a TaskRun, or flips a task's immediate
flag. This is purely an internal enrichment — no external API exposes
these events. Subscribers receive them over a non-blocking, buffered
pub/sub channel; the metadata service publishes but registers no
subscriber of its own.

# Usage

	b := events.NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	go func() {
		for ev := range sub {
			log.Debug(ev.Type)
		}
	}()

	b.Publish(&events.Event{Type: events.EventTaskCreated, Message: "task 7 created"})

# Design Patterns

Publish never blocks the caller on a slow subscriber: broadcast drops an
event for any subscriber whose buffer is full rather than stalling the
metadata service's request path.
*/
package events
