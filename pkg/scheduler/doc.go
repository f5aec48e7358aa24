/*
Package scheduler is the single-writer control loop that turns persisted
ScheduledTasks into broker messages.

On a fixed interval it lists every task from the metadata store and, for
each enabled one, decides whether it is due (by cron schedule or an
immediate run request), defers it if it falls inside a blackout window,
and otherwise publishes a TaskCommand to the broker with a dedupe key of
"task_id:firing_epoch" so a retried publish or a momentary race between
scheduler instances can never queue the same firing twice.

# Usage

	sched := scheduler.New(store, brokerClient, 5*time.Second)
	sched.Start()
	defer sched.Stop()

# Design Patterns

The loop follows the ticker-plus-stopCh shape used throughout this
codebase: a single goroutine alternates between a ticker channel and a
stop channel, so Stop is safe to call from another goroutine. Stop
returns at once without waiting; an iteration already running finishes
before the loop exits.

The scheduler treats a duplicate-publish error from the broker as
success — the dedupe key already being held means some instance of this
firing is already queued — and otherwise leaves the task's
next_execution untouched on publish failure, so the same firing is
retried on the following iteration instead of silently skipped.
*/
package scheduler
