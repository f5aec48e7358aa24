package broker

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/runinator/runinator/pkg/log"
	"github.com/runinator/runinator/pkg/types"
)

// Server exposes a *Broker's four operations as the HTTP transport
// POST /publish, /poll, /ack, /nack.
type Server struct {
	broker *Broker
	logger zerolog.Logger
	router chi.Router
}

// NewServer wires a chi router over b. A /poll request with no timeout_ms
// in its body polls with a zero timeout and does not wait.
func NewServer(b *Broker) *Server {
	s := &Server{
		broker: b,
		logger: log.WithComponent("broker"),
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/publish", s.handlePublish)
	r.Post("/poll", s.handlePoll)
	r.Post("/ack", s.handleAck)
	r.Post("/nack", s.handleNack)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type publishRequest struct {
	Message types.BrokerMessage `json:"message"`
}

type duplicateResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	delivery, err := s.broker.Publish(req.Message)
	if err != nil {
		if rerr, ok := err.(*types.Error); ok && rerr.Kind == types.ErrDuplicate {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(duplicateResponse{Code: "duplicate", Message: rerr.Message})
			return
		}
		s.logger.Error().Err(err).Msg("publish failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(delivery)
}

type pollRequest struct {
	Consumer  string `json:"consumer"`
	TimeoutMS int64  `json:"timeout_ms,omitempty"`
}

type pollResponse struct {
	Delivery types.BrokerDelivery `json:"delivery"`
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	var req pollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	timeout := time.Duration(req.TimeoutMS) * time.Millisecond
	delivery, ok, err := s.broker.Poll(r.Context(), req.Consumer, timeout)
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(pollResponse{Delivery: delivery})
}

type ackRequest struct {
	Consumer   string `json:"consumer"`
	DeliveryID string `json:"delivery_id"`
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	var req ackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.broker.Ack(req.Consumer, req.DeliveryID); err != nil {
		if rerr, ok := err.(*types.Error); ok && rerr.Kind == types.ErrUnknownDelivery {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleNack(w http.ResponseWriter, r *http.Request) {
	var req ackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.broker.Nack(req.Consumer, req.DeliveryID); err != nil {
		if rerr, ok := err.(*types.Error); ok && rerr.Kind == types.ErrUnknownDelivery {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
