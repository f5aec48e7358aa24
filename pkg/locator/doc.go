/*
Package locator provides the service-locator capability Runinator's HTTP
clients use to find the base URL of another component before making a
request. There are two shapes:

  - Static: a constant, operator-configured URL (used for the broker,
    whose address is passed explicitly via --broker-addr rather than
    discovered).
  - Gossip: waits on a pkg/gossip Registry for a web-service announcement
    (used by the scheduler and worker pool to find the metadata service,
    which advertises itself over UDP rather than a fixed address).

Callers resolve a fresh base URL on every request rather than caching one
derived from a Locator; the metadata service may restart on a new address
and workers must not pin themselves to a stale one.

# Usage

	loc := locator.NewGossip(registry)
	client := locator.NewHTTPClient(loc, 5*time.Second)
	var tasks []types.ScheduledTask
	err := client.DoJSON(ctx, http.MethodGet, "/tasks", nil, &tasks)

# Design Patterns

A base-URL capability keeps HTTP path construction and error mapping in
one place instead of duplicating it across the metadata and broker
clients, and lets a caller swap a fixed address for gossip-backed
discovery without touching call sites.
*/
package locator
