package types

import (
	"encoding/json"
	"fmt"
)

// GossipKind tags the payload carried by a GossipMessage.
type GossipKind string

const (
	GossipKindWorker     GossipKind = "worker"
	GossipKindWebService GossipKind = "web_service"
)

// GossipMessage is the tagged union broadcast over the UDP discovery
// socket. Exactly one of Worker/Service is populated, selected by Type.
type GossipMessage struct {
	Type    GossipKind               `json:"type"`
	Worker  *WorkerAnnouncement      `json:"worker,omitempty"`
	Service *WebServiceAnnouncement `json:"web_service,omitempty"`
}

// NewWorkerGossip wraps a WorkerAnnouncement for broadcast.
func NewWorkerGossip(a WorkerAnnouncement) GossipMessage {
	return GossipMessage{Type: GossipKindWorker, Worker: &a}
}

// NewWebServiceGossip wraps a WebServiceAnnouncement for broadcast.
func NewWebServiceGossip(a WebServiceAnnouncement) GossipMessage {
	return GossipMessage{Type: GossipKindWebService, Service: &a}
}

// Validate rejects a message whose payload doesn't match its declared
// Type, or whose Type is unrecognized. Callers decode untrusted UDP
// datagrams into this type and must call Validate before acting on it.
func (m GossipMessage) Validate() error {
	switch m.Type {
	case GossipKindWorker:
		if m.Worker == nil {
			return fmt.Errorf("gossip: type %q missing worker payload", m.Type)
		}
	case GossipKindWebService:
		if m.Service == nil {
			return fmt.Errorf("gossip: type %q missing web_service payload", m.Type)
		}
	default:
		return fmt.Errorf("gossip: unknown type %q", m.Type)
	}
	return nil
}

// DecodeGossipMessage parses and validates a single UDP datagram. Malformed
// JSON and structurally invalid messages are both reported as errors so
// the gossip listener can drop and continue rather than crash.
func DecodeGossipMessage(data []byte) (GossipMessage, error) {
	var m GossipMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return GossipMessage{}, fmt.Errorf("gossip: decode: %w", err)
	}
	if err := m.Validate(); err != nil {
		return GossipMessage{}, err
	}
	return m, nil
}
