package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/runinator/runinator/pkg/locator"
	"github.com/runinator/runinator/pkg/types"
)

// RemoteStore implements Store by calling the metadata service's HTTP
// API through an locator.HTTPClient, for deployments where the scheduler
// runs on a different host than the metadata service and cannot open
// its SQLite file directly. The metadata API has no GET /tasks/{id} or
// per-task run-listing route, so GetTask and ListRunsByTask fetch the
// full collection and filter client-side.
type RemoteStore struct {
	client *locator.HTTPClient
}

// NewRemoteStore wraps client as a Store. client's Locator may be
// static or gossip-backed.
func NewRemoteStore(client *locator.HTTPClient) *RemoteStore {
	return &RemoteStore{client: client}
}

// Close is a no-op: RemoteStore owns no local resource, only an HTTP
// client whose connections the standard library pool manages.
func (s *RemoteStore) Close() error { return nil }

type simpleResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (s *RemoteStore) ListTasks() ([]*types.ScheduledTask, error) {
	var tasks []types.ScheduledTask
	if err := s.client.DoJSON(context.Background(), http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, fmt.Errorf("remote list tasks: %w", err)
	}
	out := make([]*types.ScheduledTask, len(tasks))
	for i := range tasks {
		out[i] = &tasks[i]
	}
	return out, nil
}

func (s *RemoteStore) GetTask(id int64) (*types.ScheduledTask, error) {
	tasks, err := s.ListTasks()
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.ID != nil && *t.ID == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("remote get task %d: not found", id)
}

func (s *RemoteStore) CreateTask(task *types.ScheduledTask) (*types.ScheduledTask, error) {
	var resp simpleResponse
	if err := s.client.DoJSON(context.Background(), http.MethodPost, "/tasks", task, &resp); err != nil {
		return nil, fmt.Errorf("remote create task: %w", err)
	}
	id, err := strconv.ParseInt(resp.Message, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("remote create task: parse id from response %q: %w", resp.Message, err)
	}
	return s.GetTask(id)
}

func (s *RemoteStore) UpdateTask(task *types.ScheduledTask) error {
	if task.ID == nil {
		return errors.New("storage: RemoteStore.UpdateTask requires a non-nil ID")
	}
	path := fmt.Sprintf("/tasks/%d", *task.ID)
	var resp simpleResponse
	if err := s.client.DoJSON(context.Background(), http.MethodPatch, path, task, &resp); err != nil {
		return fmt.Errorf("remote update task %d: %w", *task.ID, err)
	}
	return nil
}

func (s *RemoteStore) DeleteTask(id int64) error {
	path := fmt.Sprintf("/tasks/%d", id)
	var resp simpleResponse
	if err := s.client.DoJSON(context.Background(), http.MethodDelete, path, nil, &resp); err != nil {
		return fmt.Errorf("remote delete task %d: %w", id, err)
	}
	return nil
}

// ClearImmediate fetches the current task, flips Immediate off, and
// PATCHes the full row back: the metadata API has no single-field patch
// route, so this is a read-modify-write against the remote service
// rather than the single-column UPDATE SQLStore issues.
func (s *RemoteStore) ClearImmediate(id int64) error {
	task, err := s.GetTask(id)
	if err != nil {
		return fmt.Errorf("remote clear immediate on task %d: %w", id, err)
	}
	task.Immediate = false
	return s.UpdateTask(task)
}

// AdvanceNextExecution is the same read-modify-write shape as
// ClearImmediate, for the same reason.
func (s *RemoteStore) AdvanceNextExecution(id int64, next int64) error {
	task, err := s.GetTask(id)
	if err != nil {
		return fmt.Errorf("remote advance next_execution on task %d: %w", id, err)
	}
	task.NextExecution = &next
	return s.UpdateTask(task)
}

type createRunRequest struct {
	TaskID     int64  `json:"task_id"`
	StartedAt  int64  `json:"started_at"`
	DurationMS int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
}

func (s *RemoteStore) CreateRun(run *types.TaskRun) (*types.TaskRun, error) {
	req := createRunRequest{
		TaskID:     run.TaskID,
		StartedAt:  run.StartTime,
		DurationMS: run.DurationMS,
		Message:    run.Message,
	}
	var resp simpleResponse
	if err := s.client.DoJSON(context.Background(), http.MethodPost, "/task_runs", req, &resp); err != nil {
		return nil, fmt.Errorf("remote create run for task %d: %w", run.TaskID, err)
	}
	out := *run
	return &out, nil
}

// ListRunsByTask fetches every run in the unbounded default range and
// filters by task_id client-side, since the metadata API only exposes a
// time-bounded, all-tasks listing.
func (s *RemoteStore) ListRunsByTask(taskID int64) ([]*types.TaskRun, error) {
	var runs []types.TaskRun
	if err := s.client.DoJSON(context.Background(), http.MethodGet, "/task_runs", nil, &runs); err != nil {
		return nil, fmt.Errorf("remote list runs for task %d: %w", taskID, err)
	}
	var out []*types.TaskRun
	for i := range runs {
		if runs[i].TaskID == taskID {
			out = append(out, &runs[i])
		}
	}
	return out, nil
}
