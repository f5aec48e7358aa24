package broker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/runinator/runinator/pkg/metrics"
	"github.com/runinator/runinator/pkg/types"
)

// Broker is the in-memory queue core: an ordered slice of pending
// deliveries, a map of deliveries handed out but not yet acked, and a
// dedupe set, all protected by one mutex. cond wakes blocked Poll calls
// when Publish appends work to the tail of the queue or Nack returns a
// delivery to its head.
type Broker struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []*types.BrokerDelivery
	inflight map[string]*types.BrokerDelivery
	dedupe   map[string]struct{}
}

// New returns an empty Broker ready to accept Publish calls.
func New() *Broker {
	b := &Broker{
		inflight: make(map[string]*types.BrokerDelivery),
		dedupe:   make(map[string]struct{}),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// contentHash derives a dedupe key from a TaskCommand when the caller
// does not supply one, so two publishes of byte-identical commands
// collide even without an explicit key.
func contentHash(cmd types.TaskCommand) string {
	data, _ := json.Marshal(cmd)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Publish accepts msg if its dedupe key (caller-supplied, else the
// content hash of the command) is not already owned by something in
// queue ∪ inflight. A types.Error with Kind ErrDuplicate is the expected,
// benign rejection a producer must treat as success.
func (b *Broker) Publish(msg types.BrokerMessage) (*types.BrokerDelivery, error) {
	key := msg.DedupeKey
	if key == "" {
		key = contentHash(msg.Command)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.dedupe[key]; exists {
		metrics.BrokerDuplicatesRejectedTotal.Inc()
		return nil, types.NewDuplicateError(key)
	}

	enqueuedAt := msg.EnqueuedAt
	if enqueuedAt == 0 {
		enqueuedAt = time.Now().Unix()
	}

	delivery := &types.BrokerDelivery{
		DeliveryID: uuid.NewString(),
		DedupeKey:  key,
		Command:    msg.Command,
		EnqueuedAt: enqueuedAt,
	}

	b.dedupe[key] = struct{}{}
	b.queue = append(b.queue, delivery)
	metrics.BrokerPublishedTotal.Inc()
	b.cond.Signal()

	return delivery, nil
}

// Poll hands out the head of the queue, moving it to inflight. If the
// queue is empty it blocks until a delivery arrives, ctx is cancelled, or
// timeout elapses, whichever comes first; the ok return is false when the
// timeout elapses with no delivery (err nil) and when ctx is cancelled
// (err is ctx.Err()). consumer is accepted for symmetry with
// the HTTP transport and future per-consumer cursoring; the in-memory
// backend does not use it.
func (b *Broker) Poll(ctx context.Context, consumer string, timeout time.Duration) (types.BrokerDelivery, bool, error) {
	deadline := time.Now().Add(timeout)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			b.cond.Broadcast()
			b.mu.Unlock()
		case <-stop:
		}
	}()

	b.mu.Lock()
	defer b.mu.Unlock()

	for {
		if len(b.queue) > 0 {
			delivery := b.queue[0]
			b.queue = b.queue[1:]
			b.inflight[delivery.DeliveryID] = delivery
			return *delivery, true, nil
		}

		if err := ctx.Err(); err != nil {
			return types.BrokerDelivery{}, false, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			metrics.BrokerEmptyPollsTotal.Inc()
			return types.BrokerDelivery{}, false, nil
		}

		timer := time.AfterFunc(remaining, func() {
			b.mu.Lock()
			b.cond.Broadcast()
			b.mu.Unlock()
		})
		b.cond.Wait()
		timer.Stop()
	}
}

// Ack removes a delivery from inflight and frees its dedupe key, letting
// a subsequent publish with the same key succeed. An unknown delivery_id
// is surfaced as ErrUnknownDelivery but is benign for producers — it
// typically means another worker already acked the same redelivered
// message.
func (b *Broker) Ack(consumer, deliveryID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delivery, ok := b.inflight[deliveryID]
	if !ok {
		metrics.BrokerAckTotal.WithLabelValues("unknown").Inc()
		return types.NewUnknownDeliveryError(deliveryID)
	}

	delete(b.inflight, deliveryID)
	delete(b.dedupe, delivery.DedupeKey)
	metrics.BrokerAckTotal.WithLabelValues("ok").Inc()
	return nil
}

// Nack removes a delivery from inflight and pushes it back onto the head
// of the queue for immediate redelivery. The dedupe key is deliberately
// not freed: the firing is still "owned" by the queue, so a racing
// publish of the same key keeps failing Duplicate until something finally
// acks it.
func (b *Broker) Nack(consumer, deliveryID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delivery, ok := b.inflight[deliveryID]
	if !ok {
		metrics.BrokerAckTotal.WithLabelValues("unknown_nack").Inc()
		return types.NewUnknownDeliveryError(deliveryID)
	}

	delete(b.inflight, deliveryID)
	b.queue = append([]*types.BrokerDelivery{delivery}, b.queue...)
	metrics.BrokerRedeliveredTotal.Inc()
	b.cond.Signal()
	return nil
}

// Stats is a point-in-time snapshot of queue/inflight/dedupe sizes, used
// by the periodic metrics collector.
type Stats struct {
	QueueDepth    int
	InflightDepth int
	DedupeSize    int
}

// Snapshot returns the current Stats under lock.
func (b *Broker) Snapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		QueueDepth:    len(b.queue),
		InflightDepth: len(b.inflight),
		DedupeSize:    len(b.dedupe),
	}
}
