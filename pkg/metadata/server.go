package metadata

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/runinator/runinator/pkg/cronutil"
	"github.com/runinator/runinator/pkg/events"
	"github.com/runinator/runinator/pkg/log"
	"github.com/runinator/runinator/pkg/metrics"
	"github.com/runinator/runinator/pkg/storage"
	"github.com/runinator/runinator/pkg/types"
)

// Server is the metadata HTTP API: CRUD over ScheduledTasks, run
// history, and the request_run immediate-dispatch flag.
type Server struct {
	store  storage.Store
	events *events.Broker
	logger zerolog.Logger
	router chi.Router
}

// NewServer wires a chi router over store. events may be nil, in which
// case mutations are simply not published anywhere.
func NewServer(store storage.Store, evBroker *events.Broker) *Server {
	s := &Server{
		store:  store,
		events: evBroker,
		logger: log.WithComponent("metadata"),
	}

	r := chi.NewRouter()
	r.Use(s.instrument)
	r.Get("/tasks", s.listTasks)
	r.Post("/tasks", s.createOrUpdateTask)
	r.Patch("/tasks/{id}", s.patchTask)
	r.Delete("/tasks/{id}", s.deleteTask)
	r.Post("/tasks/{id}/request_run", s.requestRun)
	r.Get("/task_runs", s.listRuns)
	r.Post("/task_runs", s.createRun)
	r.Get("/health", metrics.HealthHandler())
	r.Get("/ready", metrics.ReadyHandler())
	r.Handle("/metrics", metrics.Handler())
	s.router = r

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// instrument records request count (by method and status) and latency
// (by method).
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.APIRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		timer.ObserveDurationVec(metrics.APIRequestDuration, r.Method)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type simpleResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	s.logger.Error().Err(err).Msg("request failed")
	writeJSON(w, status, simpleResponse{Success: false, Message: err.Error()})
}

func (s *Server) publish(kind events.EventType, message string) {
	if s.events == nil {
		return
	}
	s.events.Publish(&events.Event{Type: kind, Message: message})
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListTasks()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]types.ScheduledTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, *t)
	}
	writeJSON(w, http.StatusOK, out)
}

// createOrUpdateTask implements the upsert policy: insert if id is
// missing, otherwise update in place. A missing next_execution is
// populated to "now" at insert time; immediate always starts false on
// insert regardless of what the caller sent.
func (s *Server) createOrUpdateTask(w http.ResponseWriter, r *http.Request) {
	var task types.ScheduledTask
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	if err := validateTask(&task); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	if task.ID == nil {
		if task.NextExecution == nil {
			now := time.Now().Unix()
			task.NextExecution = &now
		}
		task.Immediate = false

		created, err := s.store.CreateTask(&task)
		if err != nil {
			s.fail(w, http.StatusInternalServerError, err)
			return
		}
		s.publish(events.EventTaskCreated, "task created")
		writeJSON(w, http.StatusOK, simpleResponse{Success: true, Message: strconv.FormatInt(*created.ID, 10)})
		return
	}

	if err := s.store.UpdateTask(&task); err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.publish(events.EventTaskUpdated, "task updated")
	writeJSON(w, http.StatusOK, simpleResponse{Success: true})
}

// patchTask overwrites the body's id with the path id rather than
// trusting a possibly-mismatched value in the request body.
func (s *Server) patchTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	if _, err := s.store.GetTask(id); err != nil {
		s.fail(w, http.StatusNotFound, err)
		return
	}

	var task types.ScheduledTask
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	task.ID = &id

	if err := validateTask(&task); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	if err := s.store.UpdateTask(&task); err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.publish(events.EventTaskUpdated, "task updated")
	writeJSON(w, http.StatusOK, simpleResponse{Success: true})
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.DeleteTask(id); err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.publish(events.EventTaskDeleted, "task deleted")
	writeJSON(w, http.StatusOK, simpleResponse{Success: true})
}

func (s *Server) requestRun(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	task, err := s.store.GetTask(id)
	if err != nil {
		s.fail(w, http.StatusNotFound, err)
		return
	}
	task.Immediate = true
	if err := s.store.UpdateTask(task); err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.publish(events.EventTaskRunRequested, "immediate run requested")
	writeJSON(w, http.StatusOK, simpleResponse{Success: true})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	start := parseEpochParam(r, "start_time", 0)
	end := parseEpochParam(r, "end_time", math.MaxInt64)

	tasks, err := s.store.ListTasks()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}

	var out []types.TaskRun
	for _, task := range tasks {
		if task.ID == nil {
			continue
		}
		runs, err := s.store.ListRunsByTask(*task.ID)
		if err != nil {
			s.fail(w, http.StatusInternalServerError, err)
			return
		}
		for _, run := range runs {
			if run.StartTime >= start && run.StartTime <= end {
				out = append(out, *run)
			}
		}
	}
	if out == nil {
		out = []types.TaskRun{}
	}
	writeJSON(w, http.StatusOK, out)
}

type createRunRequest struct {
	TaskID     int64  `json:"task_id"`
	StartedAt  int64  `json:"started_at"`
	DurationMS int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	run := &types.TaskRun{
		TaskID:     req.TaskID,
		StartTime:  req.StartedAt,
		DurationMS: req.DurationMS,
		Message:    req.Message,
	}
	if _, err := s.store.CreateRun(run); err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.publish(events.EventTaskRunRecorded, "task run recorded")
	writeJSON(w, http.StatusOK, simpleResponse{Success: true})
}

func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	return strconv.ParseInt(raw, 10, 64)
}

func parseEpochParam(r *http.Request, name string, def int64) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}

// validateTask rejects malformed cron expressions and blackout windows
// (start must not be after end) before they reach storage.
func validateTask(task *types.ScheduledTask) error {
	if err := cronutil.Validate(task.Cron); err != nil {
		return err
	}
	if task.BlackoutStart != nil && task.BlackoutEnd != nil && *task.BlackoutStart > *task.BlackoutEnd {
		return errInvalidBlackout
	}
	return nil
}

var errInvalidBlackout = &types.Error{Kind: types.ErrInternal, Message: "blackout_start must be <= blackout_end"}
