/*
Package metadata implements Runinator's HTTP metadata service: the system
of record for ScheduledTasks and TaskRuns, and the canonical resolver for
"what should run".

The service is a thin chi router over a pkg/storage.Store: it validates
and normalizes requests, applies an upsert policy (insert when id is
absent, update in place otherwise; an absent next_execution is populated
to "now" on insert), and publishes a pkg/events notification for every
mutation.

# Usage

	store, _ := storage.NewSQLStore(dataDir)
	srv := metadata.NewServer(store, events.NewBroker())
	http.ListenAndServe(":8080", srv)

# Routes

	GET    /tasks
	POST   /tasks
	PATCH  /tasks/{id}
	DELETE /tasks/{id}
	POST   /tasks/{id}/request_run
	GET    /task_runs?start_time=&end_time=
	POST   /task_runs
	GET    /health, /ready   (pkg/metrics)
	GET    /metrics          (pkg/metrics, Prometheus)

# Design Patterns

Every route is wrapped by a chi middleware recording
runinator_api_requests_total and runinator_api_request_duration_seconds
for every call.
*/
package metadata
