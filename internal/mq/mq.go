package mq

import (
	"context"
	"errors"
	"fmt"

	"github.com/jobboard/apiserver/config"
)

// AttrContentType carries the payload media type. RabbitMQ maps it to the
// native content-type property instead of a header.
const AttrContentType = "content-type"

// ErrNoBackend is returned by Subscribe when messaging is disabled.
var ErrNoBackend = errors.New("message queue backend is disabled")

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ wraps a backend with a stable API.
type MQ struct {
	backend Backend
}

// New constructs an MQ wrapper for the provided backend.
func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// Open connects to the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	switch cfg.Backend {
	case config.MQBackendNone, "":
		return New(noopBackend{}), nil
	case config.MQBackendRabbitMQ:
		client, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return New(client), nil
	case config.MQBackendPubSub:
		client, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		return New(client), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

// Enabled reports whether messages actually leave the process.
func (m *MQ) Enabled() bool {
	_, noop := m.backend.(noopBackend)
	return !noop
}

// Publish sends a message to the named channel.
func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, channel, data, attrs)
}

// Subscribe consumes messages from the named channel.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return m.backend.Subscribe(ctx, channel, handler)
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}

// noopBackend drops published messages.
type noopBackend struct{}

func (noopBackend) Publish(context.Context, string, []byte, map[string]string) (string, error) {
	return "", nil
}

func (noopBackend) Subscribe(context.Context, string, Handler) error {
	return ErrNoBackend
}

func (noopBackend) Close() error { return nil }
