package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Gossip metrics
	KnownWorkersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runinator_known_workers_total",
			Help: "Number of workers currently believed live by this process",
		},
	)

	KnownWebServicesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runinator_known_web_services_total",
			Help: "Number of web services currently believed live by this process",
		},
	)

	GossipMessagesReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runinator_gossip_messages_received_total",
			Help: "Total gossip datagrams received by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	GossipMessagesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runinator_gossip_messages_sent_total",
			Help: "Total gossip datagrams broadcast by type",
		},
		[]string{"type"},
	)

	StalePeersPrunedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runinator_stale_peers_pruned_total",
			Help: "Total peers dropped for missed heartbeats, by kind",
		},
		[]string{"kind"},
	)

	// Metadata service (HTTP API) metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runinator_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runinator_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Scheduler metrics
	SchedulingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "runinator_scheduling_cycle_duration_seconds",
			Help:    "Time taken for one scheduler evaluation pass over all tasks",
			Buckets: prometheus.DefBuckets,
		},
	)

	TasksDispatchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "runinator_tasks_dispatched_total",
			Help: "Total number of task commands published to the broker",
		},
	)

	TasksDispatchFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "runinator_tasks_dispatch_failed_total",
			Help: "Total number of publish attempts that failed",
		},
	)

	TasksInBlackoutTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runinator_tasks_in_blackout",
			Help: "Number of tasks currently inside a blackout window",
		},
	)

	ScheduledTasksTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "runinator_scheduled_tasks_total",
			Help: "Total number of scheduled tasks by enabled state",
		},
		[]string{"enabled"},
	)

	// Broker metrics
	BrokerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runinator_broker_queue_depth",
			Help: "Number of messages waiting to be polled",
		},
	)

	BrokerInFlightDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runinator_broker_inflight_depth",
			Help: "Number of deliveries handed out but not yet acked or nacked",
		},
	)

	BrokerDedupeKeysTracked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runinator_broker_dedupe_keys_tracked",
			Help: "Number of dedupe keys currently remembered by the broker",
		},
	)

	BrokerPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "runinator_broker_published_total",
			Help: "Total number of messages accepted on publish",
		},
	)

	BrokerDuplicatesRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "runinator_broker_duplicates_rejected_total",
			Help: "Total number of publishes rejected as duplicates",
		},
	)

	BrokerAckTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runinator_broker_ack_total",
			Help: "Total number of acknowledgements by outcome",
		},
		[]string{"outcome"},
	)

	BrokerRedeliveredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "runinator_broker_redelivered_total",
			Help: "Total number of deliveries nacked back onto the queue for redelivery",
		},
	)

	BrokerEmptyPollsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "runinator_broker_empty_polls_total",
			Help: "Total number of poll calls whose timeout expired with no delivery",
		},
	)

	// Worker metrics
	ProviderCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runinator_provider_call_duration_seconds",
			Help:    "Time taken for a provider call to return",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action_name"},
	)

	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runinator_provider_calls_total",
			Help: "Total number of provider calls by action_name and outcome",
		},
		[]string{"action_name", "outcome"},
	)

	ProviderTimeoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runinator_provider_timeouts_total",
			Help: "Total number of provider calls killed for exceeding their timeout",
		},
		[]string{"action_name"},
	)

	WorkerActiveTasks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runinator_worker_active_tasks",
			Help: "Number of task executions currently in flight on this worker",
		},
	)

	WorkerPollEmptyTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "runinator_worker_poll_empty_total",
			Help: "Total number of poll calls that returned with no delivery",
		},
	)

	WorkerAckFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runinator_worker_ack_failures_total",
			Help: "Total number of ack/nack calls to the broker that themselves failed",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(KnownWorkersTotal)
	prometheus.MustRegister(KnownWebServicesTotal)
	prometheus.MustRegister(GossipMessagesReceivedTotal)
	prometheus.MustRegister(GossipMessagesSentTotal)
	prometheus.MustRegister(StalePeersPrunedTotal)

	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)

	prometheus.MustRegister(SchedulingLatency)
	prometheus.MustRegister(TasksDispatchedTotal)
	prometheus.MustRegister(TasksDispatchFailedTotal)
	prometheus.MustRegister(TasksInBlackoutTotal)
	prometheus.MustRegister(ScheduledTasksTotal)

	prometheus.MustRegister(BrokerQueueDepth)
	prometheus.MustRegister(BrokerInFlightDepth)
	prometheus.MustRegister(BrokerDedupeKeysTracked)
	prometheus.MustRegister(BrokerPublishedTotal)
	prometheus.MustRegister(BrokerDuplicatesRejectedTotal)
	prometheus.MustRegister(BrokerAckTotal)
	prometheus.MustRegister(BrokerRedeliveredTotal)
	prometheus.MustRegister(BrokerEmptyPollsTotal)

	prometheus.MustRegister(ProviderCallDuration)
	prometheus.MustRegister(ProviderCallsTotal)
	prometheus.MustRegister(ProviderTimeoutsTotal)
	prometheus.MustRegister(WorkerActiveTasks)
	prometheus.MustRegister(WorkerPollEmptyTotal)
	prometheus.MustRegister(WorkerAckFailuresTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
