/*
Package provider defines the boundary between the worker pool and
whatever actually executes a task.

A Provider resolves one action_name to a Call(function, configuration,
timeout) that returns an exit code: zero for success, non-zero (or a
non-nil error) for failure. Built-ins register themselves by name at
init() time, mirroring database/sql.Register:

	provider.Register("exec", execProvider{})

The worker looks a task's action_name up with Lookup in a single
registry shared by built-ins and external providers; an external
provider registered at worker startup under a built-in's name replaces
that built-in.

# Built-ins

exec runs action_function as a local command, with action_configuration
parsed as a JSON array of arguments. console writes the configuration to
the worker's log and always succeeds — useful for exercising dispatch
and acknowledgement end to end without a real side effect.

# External providers

ExternalProvider replaces dynamic plugin loading with an out-of-process
protocol: a configured executable is launched once per worker startup
and each Call is framed as one newline-delimited JSON request/response
pair over its stdin/stdout.
*/
package provider
