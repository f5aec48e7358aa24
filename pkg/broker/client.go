package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/runinator/runinator/pkg/locator"
	"github.com/runinator/runinator/pkg/types"
)

// Operations is the four broker operations, implemented by Client
// against the HTTP transport in server.go. The scheduler and worker pool
// depend on this interface (or Broker directly, for in-process/embedded
// deployments) rather than on either concrete type.
type Operations interface {
	Publish(ctx context.Context, msg types.BrokerMessage) (*types.BrokerDelivery, error)
	Poll(ctx context.Context, consumer string, timeout time.Duration) (types.BrokerDelivery, bool, error)
	Ack(ctx context.Context, consumer, deliveryID string) error
	Nack(ctx context.Context, consumer, deliveryID string) error
}

// Client is an HTTP-transport implementation of Operations.
type Client struct {
	http *locator.HTTPClient
}

// NewClient builds a broker Client against loc (typically a
// locator.Static wrapping the configured --broker-addr).
func NewClient(loc locator.Locator, timeout time.Duration) *Client {
	return &Client{http: locator.NewHTTPClient(loc, timeout)}
}

func (c *Client) Publish(ctx context.Context, msg types.BrokerMessage) (*types.BrokerDelivery, error) {
	var raw json.RawMessage

	status, err := c.http.StatusJSON(ctx, http.MethodPost, "/publish", publishRequest{Message: msg}, &raw)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusCreated:
		var delivery types.BrokerDelivery
		if err := json.Unmarshal(raw, &delivery); err != nil {
			return nil, types.NewInternalError(err)
		}
		return &delivery, nil
	case http.StatusConflict:
		var dup duplicateResponse
		_ = json.Unmarshal(raw, &dup)
		key := dup.Message
		if key == "" {
			key = msg.DedupeKey
		}
		return nil, types.NewDuplicateError(key)
	default:
		return nil, types.NewHTTPError(status, "/publish", string(raw))
	}
}

func (c *Client) Poll(ctx context.Context, consumer string, timeout time.Duration) (types.BrokerDelivery, bool, error) {
	req := pollRequest{Consumer: consumer, TimeoutMS: timeout.Milliseconds()}
	var resp pollResponse

	status, err := c.http.StatusJSON(ctx, http.MethodPost, "/poll", req, &resp)
	if err != nil {
		return types.BrokerDelivery{}, false, err
	}

	switch status {
	case http.StatusOK:
		return resp.Delivery, true, nil
	case http.StatusNoContent:
		return types.BrokerDelivery{}, false, nil
	default:
		return types.BrokerDelivery{}, false, types.NewHTTPError(status, "/poll", "")
	}
}

func (c *Client) Ack(ctx context.Context, consumer, deliveryID string) error {
	return c.ackNack(ctx, "/ack", consumer, deliveryID)
}

func (c *Client) Nack(ctx context.Context, consumer, deliveryID string) error {
	return c.ackNack(ctx, "/nack", consumer, deliveryID)
}

func (c *Client) ackNack(ctx context.Context, path, consumer, deliveryID string) error {
	req := ackRequest{Consumer: consumer, DeliveryID: deliveryID}
	status, err := c.http.StatusJSON(ctx, http.MethodPost, path, req, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return types.NewUnknownDeliveryError(deliveryID)
	default:
		return types.NewHTTPError(status, path, "")
	}
}
