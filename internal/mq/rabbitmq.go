package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jobboard/apiserver/config"
)

// deadLetterSuffix names the queue that receives messages a consumer gave
// up on.
const deadLetterSuffix = ".dead"

// RabbitMQClient publishes to the default exchange with the channel name as
// routing key, so every channel maps onto one queue plus its dead-letter
// queue.
type RabbitMQClient struct {
	conn          *amqp.Connection
	channel       *amqp.Channel
	durable       bool
	autoDelete    bool
	prefetchCount int

	mu       sync.Mutex
	declared map[string]bool
}

// NewRabbitMQClient dials cfg.URL and puts the channel in confirm mode.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	fail := func(err error) (*RabbitMQClient, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			return fail(fmt.Errorf("set prefetch: %w", err))
		}
	}
	if err := ch.Confirm(false); err != nil {
		return fail(fmt.Errorf("enable publisher confirms: %w", err))
	}

	return &RabbitMQClient{
		conn:          conn,
		channel:       ch,
		durable:       cfg.QueueDurable,
		autoDelete:    cfg.QueueAutoDelete,
		prefetchCount: cfg.PrefetchCount,
		declared:      make(map[string]bool),
	}, nil
}

// Publish waits for the broker to confirm the message before returning its
// id. A nack from the broker is an error.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	publishing := amqp.Publishing{
		ContentType:  "application/octet-stream",
		DeliveryMode: amqp.Transient,
		MessageId:    uuid.NewString(),
		Headers:      amqp.Table{},
		Body:         data,
	}
	if r.durable {
		publishing.DeliveryMode = amqp.Persistent
	}
	for key, value := range attrs {
		if key == AttrContentType {
			publishing.ContentType = value
			continue
		}
		publishing.Headers[key] = value
	}

	r.mu.Lock()
	if err := r.declareLocked(channel); err != nil {
		r.mu.Unlock()
		return "", err
	}
	confirm, err := r.channel.PublishWithDeferredConfirmWithContext(ctx, "", channel, false, false, publishing)
	r.mu.Unlock()
	if err != nil {
		return "", err
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return "", fmt.Errorf("wait for confirm: %w", err)
	}
	if !acked {
		return "", fmt.Errorf("broker rejected message %s", publishing.MessageId)
	}
	return publishing.MessageId, nil
}

// Subscribe acks handled messages and requeues a failure once. A message
// that fails on redelivery is rejected into the dead-letter queue.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	r.mu.Lock()
	err := r.declareLocked(channel)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	consumerTag := "jobboard-" + uuid.NewString()
	deliveries, err := r.channel.Consume(channel, consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			message := Message{
				ID:         delivery.MessageId,
				Data:       delivery.Body,
				Attributes: headersToAttributes(delivery.Headers, delivery.ContentType),
			}
			if err := handler(ctx, message); err != nil {
				_ = delivery.Nack(false, !delivery.Redelivered)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the channel and then the connection.
func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// declareLocked declares name and its dead-letter queue once per client.
// r.mu must be held.
func (r *RabbitMQClient) declareLocked(name string) error {
	if r.declared[name] {
		return nil
	}
	deadLetter := name + deadLetterSuffix
	if _, err := r.channel.QueueDeclare(deadLetter, r.durable, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", deadLetter, err)
	}
	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": deadLetter,
	}
	if _, err := r.channel.QueueDeclare(name, r.durable, r.autoDelete, false, false, args); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	r.declared[name] = true
	return nil
}

func headersToAttributes(headers amqp.Table, contentType string) map[string]string {
	if len(headers) == 0 && contentType == "" {
		return nil
	}
	attrs := make(map[string]string, len(headers)+1)
	if contentType != "" {
		attrs[AttrContentType] = contentType
	}
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}
