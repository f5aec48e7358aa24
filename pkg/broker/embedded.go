package broker

import (
	"context"
	"time"

	"github.com/runinator/runinator/pkg/types"
)

// Embedded adapts a Broker's in-process method set to the Operations
// interface, for deployments that run the scheduler or worker pool in
// the same process as the broker rather than over HTTP. Publish/Ack/Nack
// are synchronous and local, so ctx is only honored by Poll, the one
// call that can genuinely block.
type Embedded struct {
	b *Broker
}

// NewEmbedded wraps b as an Operations implementation.
func NewEmbedded(b *Broker) Embedded {
	return Embedded{b: b}
}

func (e Embedded) Publish(ctx context.Context, msg types.BrokerMessage) (*types.BrokerDelivery, error) {
	return e.b.Publish(msg)
}

func (e Embedded) Poll(ctx context.Context, consumer string, timeout time.Duration) (types.BrokerDelivery, bool, error) {
	return e.b.Poll(ctx, consumer, timeout)
}

func (e Embedded) Ack(ctx context.Context, consumer, deliveryID string) error {
	return e.b.Ack(consumer, deliveryID)
}

func (e Embedded) Nack(ctx context.Context, consumer, deliveryID string) error {
	return e.b.Nack(consumer, deliveryID)
}
