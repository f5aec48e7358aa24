/*
Package log provides structured logging for Runinator using zerolog.

The log package wraps zerolog to give every binary (web service, scheduler,
broker, worker) structured logging — JSON when Config.JSONOutput is set
(--log-json), human-readable console output otherwise — with
component-specific child loggers, a configurable level, and helper
functions for the common cases.

# Usage

Initializing the logger:

	import "github.com/runinator/runinator/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Component loggers:

	schedLog := log.WithComponent("scheduler")
	schedLog.Info().Str("task_id", taskID).Msg("dispatched command")

	workerLog := log.WithWorkerID(workerID)
	workerLog.Error().Err(err).Str("delivery_id", deliveryID).Msg("provider call failed")

# Design Patterns

Global Logger Pattern: a single package-level Logger, initialized once in
main() and read from everywhere else without threading a logger through
every constructor.

Context Logger Pattern: WithComponent/WithWorkerID/WithTaskID/WithDeliveryID
return child loggers carrying a fixed field, so call sites don't repeat
.Str("worker_id", ...) on every line.

# Do / Don't

Do use structured fields (.Str, .Int, .Err) instead of fmt.Sprintf into the
message. Don't log action_configuration verbatim — it may carry operator
secrets; log its length or a redacted placeholder instead. The console
built-in provider is the exception: writing its configuration to the log
is all it does.
*/
package log
