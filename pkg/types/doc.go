/*
Package types defines the core data structures shared across Runinator.

This package contains the domain model every other package agrees on: the
persisted ScheduledTask and TaskRun, the in-flight TaskCommand/BrokerMessage/
BrokerDelivery trio the broker moves around, the gossip announcements the
discovery fabric exchanges, and the error taxonomy every component boundary
maps into.

# Core Types

Scheduling:
  - ScheduledTask: a cron-driven unit of work, owned by the metadata store
  - TaskRun: an immutable record of one completed firing

Dispatch:
  - TaskCommand: a snapshot of a ScheduledTask plus a fresh command_id
  - BrokerMessage: a TaskCommand plus an optional caller-supplied dedupe key
  - BrokerDelivery: a handed-out, uniquely-identified instance of a message

Discovery:
  - WebServiceAnnouncement, WorkerAnnouncement: gossip payloads
  - GossipMessage: the tagged union carried over UDP

Errors:
  - Error: a single sum type over every boundary-crossing failure kind

# Design Patterns

Enumeration constants are typed strings, matching the rest of the module's
convention (see ErrorKind below). Optional fields that genuinely have no
useful zero value (BlackoutStart, NextExecution) are pointers; everything
else uses its zero value directly, since a cron task is never legitimately
compared against "the zero task".

# Thread Safety

Values in this package carry no synchronization of their own — they are
plain data. Callers holding a *ScheduledTask, *BrokerDelivery, etc. across
goroutines are responsible for not mutating a shared instance concurrently;
pkg/storage and pkg/broker copy before handing a value across a boundary.
*/
package types
