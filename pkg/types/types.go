package types

import (
	"strconv"
	"time"
)

// ScheduledTask is a cron-driven unit of work. An absent ID means the task
// is being created; Enabled=false means it is never dispatched;
// Immediate=true requests one out-of-schedule firing and must be cleared
// by the scheduler once that firing is dispatched.
type ScheduledTask struct {
	ID                 *int64     `json:"id,omitempty"`
	Name               string     `json:"name"`
	Cron               string     `json:"cron"`
	ActionName         string     `json:"action_name"`
	ActionFunction     string     `json:"action_function"`
	ActionConfiguration string    `json:"action_configuration"`
	TimeoutSeconds     int64      `json:"timeout_seconds"`
	NextExecution      *int64     `json:"next_execution,omitempty"`
	Enabled            bool       `json:"enabled"`
	Immediate          bool       `json:"immediate"`
	BlackoutStart      *int64     `json:"blackout_start,omitempty"`
	BlackoutEnd        *int64     `json:"blackout_end,omitempty"`
}

// HasBlackout reports whether both ends of the blackout window are set.
func (t *ScheduledTask) HasBlackout() bool {
	return t.BlackoutStart != nil && t.BlackoutEnd != nil
}

// InBlackout reports whether now (epoch seconds) falls within the task's
// blackout window. It is false when either end of the window is unset.
func (t *ScheduledTask) InBlackout(nowEpoch int64) bool {
	if !t.HasBlackout() {
		return false
	}
	return nowEpoch >= *t.BlackoutStart && nowEpoch <= *t.BlackoutEnd
}

// TaskRun is an immutable record of one completed firing.
type TaskRun struct {
	ID         int64  `json:"id,omitempty"`
	TaskID     int64  `json:"task_id"`
	StartTime  int64  `json:"start_time"`
	DurationMS int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
}

// TaskCommand is a snapshot of a ScheduledTask tagged with a fresh,
// per-firing command identifier.
type TaskCommand struct {
	CommandID string        `json:"command_id"`
	Task      ScheduledTask `json:"task"`
}

// BrokerMessage is what the scheduler hands the broker on publish. If
// DedupeKey is empty the broker derives one from the content hash of
// Command.
type BrokerMessage struct {
	Command     TaskCommand `json:"command"`
	DedupeKey   string      `json:"dedupe_key,omitempty"`
	EnqueuedAt  int64       `json:"enqueued_at,omitempty"`
}

// BrokerDelivery is a handed-out instance of a queued BrokerMessage. The
// DedupeKey here is always resolved (never empty), unlike on BrokerMessage.
type BrokerDelivery struct {
	DeliveryID string      `json:"delivery_id"`
	DedupeKey  string      `json:"dedupe_key"`
	Command    TaskCommand `json:"command"`
	EnqueuedAt int64       `json:"enqueued_at"`
}

// WebServiceAnnouncement is the gossip payload a metadata service emits.
type WebServiceAnnouncement struct {
	ServiceID     string    `json:"service_id"`
	Address       string    `json:"address"`
	Port          int       `json:"port"`
	BasePath      string    `json:"base_path,omitempty"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// BaseURL builds the web service's HTTP base URL from its announcement.
func (a WebServiceAnnouncement) BaseURL() string {
	base := "http://" + a.Address + ":" + strconv.Itoa(a.Port)
	if a.BasePath != "" {
		base += a.BasePath
	}
	return base
}

// WorkerAnnouncement is the gossip payload a worker emits. KnownPeers
// carries transitively-discovered worker_ids, letting gossip propagate
// beyond direct broadcast range.
type WorkerAnnouncement struct {
	WorkerID      string    `json:"worker_id"`
	Address       string    `json:"address"`
	CommandPort   int       `json:"command_port"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	KnownPeers    []string  `json:"known_peers,omitempty"`
}
