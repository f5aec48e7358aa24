package scheduler

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/runinator/runinator/pkg/broker"
	"github.com/runinator/runinator/pkg/cronutil"
	"github.com/runinator/runinator/pkg/log"
	"github.com/runinator/runinator/pkg/metrics"
	"github.com/runinator/runinator/pkg/storage"
	"github.com/runinator/runinator/pkg/types"
)

// Scheduler is the single-writer control loop that converts persisted
// ScheduledTasks into broker messages.
type Scheduler struct {
	store    storage.Store
	broker   broker.Operations
	logger   zerolog.Logger
	interval time.Duration
	mu       sync.Mutex
	stopCh   chan struct{}
}

// New creates a new Scheduler. interval is the periodic iteration
// frequency.
func New(store storage.Store, ops broker.Operations, interval time.Duration) *Scheduler {
	return &Scheduler{
		store:    store,
		broker:   ops,
		logger:   log.WithComponent("scheduler"),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the scheduler loop in a new goroutine.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop cancels the sleep and causes the loop to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs one periodic iteration: fetch all tasks and dispatch
// every one that is due. Exported so tests can drive a single pass
// without waiting on the ticker.
func (s *Scheduler) RunOnce(ctx context.Context) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SchedulingLatency)

	tasks, err := s.store.ListTasks()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list tasks")
		return
	}

	now := time.Now().UTC()
	for _, task := range tasks {
		s.evaluate(ctx, task, now)
	}
}

// evaluate runs the per-task dispatch steps of one scheduler iteration.
func (s *Scheduler) evaluate(ctx context.Context, task *types.ScheduledTask, now time.Time) {
	if !task.Enabled {
		return
	}
	if task.ID == nil {
		return
	}
	id := *task.ID
	logger := s.logger.With().Int64("task_id", id).Str("name", task.Name).Logger()

	nowEpoch := now.Unix()

	if task.NextExecution == nil {
		if err := s.store.AdvanceNextExecution(id, nowEpoch); err != nil {
			logger.Error().Err(err).Msg("failed to populate next_execution")
		}
		return
	}

	force := task.Immediate
	if !force && *task.NextExecution > nowEpoch {
		return
	}

	if task.HasBlackout() && task.InBlackout(nowEpoch) {
		if err := s.store.AdvanceNextExecution(id, *task.BlackoutEnd); err != nil {
			logger.Error().Err(err).Msg("failed to defer task past blackout")
		}
		metrics.TasksInBlackoutTotal.Inc()
		return
	}

	firingEpoch := *task.NextExecution

	msg := types.BrokerMessage{
		Command: types.TaskCommand{
			CommandID: uuid.NewString(),
			Task:      *task,
		},
		DedupeKey:  dedupeKey(id, firingEpoch),
		EnqueuedAt: nowEpoch,
	}

	_, err := s.broker.Publish(ctx, msg)
	switch {
	case err == nil:
		metrics.TasksDispatchedTotal.Inc()
	case errors.Is(err, &types.Error{Kind: types.ErrDuplicate}):
		logger.Debug().Msg("publish was a duplicate, treating as success")
	default:
		metrics.TasksDispatchFailedTotal.Inc()
		logger.Error().Err(err).Msg("failed to publish task command")
		return
	}

	if force {
		if err := s.store.ClearImmediate(id); err != nil {
			logger.Error().Err(err).Msg("failed to clear immediate flag")
		}
	}

	next, err := cronutil.FindNext(task.Cron, now)
	if err != nil {
		logger.Error().Err(err).Msg("failed to compute next cron occurrence")
		return
	}
	if err := s.store.AdvanceNextExecution(id, next.Unix()); err != nil {
		logger.Error().Err(err).Msg("failed to advance next_execution")
	}
}

// dedupeKey builds the "task_id:firing_epoch" dedupe key, guaranteeing
// at most one queued message per firing.
func dedupeKey(taskID, firingEpoch int64) string {
	return strconv.FormatInt(taskID, 10) + ":" + strconv.FormatInt(firingEpoch, 10)
}
