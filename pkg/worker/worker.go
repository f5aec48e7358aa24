package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/runinator/runinator/pkg/broker"
	"github.com/runinator/runinator/pkg/locator"
	"github.com/runinator/runinator/pkg/log"
	"github.com/runinator/runinator/pkg/metrics"
	"github.com/runinator/runinator/pkg/provider"
	"github.com/runinator/runinator/pkg/types"
)

// Config holds the parameters a Worker needs to run.
type Config struct {
	// ID identifies this worker as a broker consumer. Generated if empty.
	ID string

	// PollTimeout bounds each broker.Poll call.
	PollTimeout time.Duration

	// IdleBackoff is how long the loop sleeps after an empty poll before
	// trying again.
	IdleBackoff time.Duration
}

// Worker consumes broker deliveries and executes the referenced task in
// a poll-execute-acknowledge loop.
type Worker struct {
	id          string
	broker      broker.Operations
	metadata    *locator.HTTPClient
	pollTimeout time.Duration
	idleBackoff time.Duration
	logger      zerolog.Logger

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// New builds a Worker. metadata may be nil, in which case successful
// runs are not logged to the metadata service (useful for tests and for
// deployments that only care about side effects, not run history).
func New(cfg Config, ops broker.Operations, metadata *locator.HTTPClient) *Worker {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	idleBackoff := cfg.IdleBackoff
	if idleBackoff <= 0 {
		idleBackoff = 500 * time.Millisecond
	}

	return &Worker{
		id:          id,
		broker:      ops,
		metadata:    metadata,
		pollTimeout: pollTimeout,
		idleBackoff: idleBackoff,
		logger:      log.WithWorkerID(id),
		stopCh:      make(chan struct{}),
	}
}

// Start launches the poll loop in a new goroutine.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop signals the loop to exit and waits for the current iteration to
// finish: an outstanding execution is allowed to complete or time out
// rather than being forcibly cancelled.
func (w *Worker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		delivery, ok, err := w.poll()
		if err != nil {
			w.logger.Error().Err(err).Msg("poll failed")
			w.sleep(w.idleBackoff)
			continue
		}
		if !ok {
			metrics.WorkerPollEmptyTotal.Inc()
			w.sleep(w.idleBackoff)
			continue
		}

		w.handle(delivery)
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-time.After(d):
	case <-w.stopCh:
	}
}

func (w *Worker) poll() (types.BrokerDelivery, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), w.pollTimeout+5*time.Second)
	defer cancel()
	return w.broker.Poll(ctx, w.id, w.pollTimeout)
}

// outcome classifies how a firing ended, driving the ack/nack decision
// for a completed firing.
type outcome struct {
	success bool
	message string
}

// handle runs one delivery through resolve → execute → ack/nack.
func (w *Worker) handle(delivery types.BrokerDelivery) {
	logger := w.logger.With().
		Str("delivery_id", delivery.DeliveryID).
		Int64("task_id", ptrOrZero(delivery.Command.Task.ID)).
		Logger()

	metrics.WorkerActiveTasks.Inc()
	defer metrics.WorkerActiveTasks.Dec()

	task := delivery.Command.Task
	startedAt := time.Now().Unix()

	out := w.execute(task)

	outcomeLabel := "task_error"
	if out.success {
		outcomeLabel = "success"
	}
	metrics.ProviderCallsTotal.WithLabelValues(task.ActionName, outcomeLabel).Inc()

	if !out.success {
		logger.Warn().Str("message", out.message).Msg("task execution failed")
		if err := w.ack(delivery); err != nil {
			logger.Error().Err(err).Msg("ack after task failure itself failed")
		}
		return
	}

	finishedAt := time.Now()
	durationMS := (finishedAt.Unix() - startedAt) * 1000

	if task.ID != nil {
		if err := w.postRun(task, startedAt, durationMS, out.message); err != nil {
			logger.Error().Err(err).Msg("failed to record task run, nacking for redelivery")
			if nackErr := w.nack(delivery); nackErr != nil {
				logger.Error().Err(nackErr).Msg("nack itself failed")
			}
			return
		}
	}

	if err := w.ack(delivery); err != nil {
		logger.Error().Err(err).Msg("ack failed")
	}
}

// execute resolves a provider by action_name and runs it on a dedicated
// goroutine bounded by the task's timeout, translating panics and
// timeouts into a task-level outcome message.
func (w *Worker) execute(task types.ScheduledTask) outcome {
	p, ok := provider.Lookup(task.ActionName)
	if !ok {
		return outcome{success: false, message: fmt.Sprintf("no provider registered for action %q", task.ActionName)}
	}

	timeout := time.Duration(task.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ProviderCallDuration, task.ActionName)

	type result struct {
		code int
		err  error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{code: -1, err: panicError{r}}
			}
		}()
		code, err := p.Call(ctx, task.ActionFunction, task.ActionConfiguration, timeout)
		done <- result{code: code, err: err}
	}()

	select {
	case <-ctx.Done():
		metrics.ProviderTimeoutsTotal.WithLabelValues(task.ActionName).Inc()
		return outcome{success: false, message: fmt.Sprintf("timed out after %d seconds", int64(timeout/time.Second))}
	case r := <-done:
		if r.err != nil {
			if _, ok := r.err.(panicError); ok {
				return outcome{success: false, message: "panicked"}
			}
			return outcome{success: false, message: r.err.Error()}
		}
		if r.code != 0 {
			return outcome{success: false, message: fmt.Sprintf("exited with code %d", r.code)}
		}
		return outcome{success: true}
	}
}

// panicError carries a recovered panic value across the execution
// goroutine boundary without collapsing it to a string prematurely.
type panicError struct{ value any }

func (e panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }

type createRunRequest struct {
	TaskID     int64  `json:"task_id"`
	StartedAt  int64  `json:"started_at"`
	DurationMS int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
}

func (w *Worker) postRun(task types.ScheduledTask, startedAt, durationMS int64, message string) error {
	if w.metadata == nil {
		return nil
	}
	req := createRunRequest{TaskID: *task.ID, StartedAt: startedAt, DurationMS: durationMS, Message: message}
	return w.metadata.DoJSON(context.Background(), http.MethodPost, "/task_runs", req, nil)
}

func (w *Worker) ack(delivery types.BrokerDelivery) error {
	if err := w.broker.Ack(context.Background(), w.id, delivery.DeliveryID); err != nil {
		metrics.WorkerAckFailuresTotal.WithLabelValues("ack").Inc()
		return err
	}
	return nil
}

func (w *Worker) nack(delivery types.BrokerDelivery) error {
	if err := w.broker.Nack(context.Background(), w.id, delivery.DeliveryID); err != nil {
		metrics.WorkerAckFailuresTotal.WithLabelValues("nack").Inc()
		return err
	}
	return nil
}

func ptrOrZero(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
