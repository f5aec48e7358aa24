/*
Package worker implements the poll-execute-acknowledge loop that turns a
broker delivery into a finished TaskRun.

Each Worker repeatedly polls the broker for the next delivery, resolves a
pkg/provider by the task's action_name, runs it on a dedicated goroutine
bounded by the task's timeout, and acks or nacks according to the
acknowledgement matrix:

	provider success + run POST ok    -> ack, run recorded
	provider success + run POST fails -> nack (infrastructure failure, retry)
	provider error / timeout / panic  -> ack (the failure belongs to the task)
	no provider registered            -> ack, message names the action

# Usage

	w := worker.New(worker.Config{PollTimeout: 5 * time.Second}, brokerClient, metadataClient)
	w.Start()
	defer w.Stop()

# Design Patterns

Execution runs on its own goroutine so a hung or panicking provider call
cannot take the poll loop down with it; the loop only ever learns of the
outcome through a buffered result channel, racing it against the task's
own timeout context.
*/
package worker
