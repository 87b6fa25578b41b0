package mq

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobboard/apiserver/config"
)

func TestOpen_NoneBackend(t *testing.T) {
	q, err := Open(context.Background(), config.MQConfig{Backend: config.MQBackendNone})
	require.NoError(t, err)
	defer q.Close()

	assert.False(t, q.Enabled())

	id, err := q.Publish(context.Background(), "application.submitted", []byte(`{}`), nil)
	require.NoError(t, err)
	assert.Empty(t, id)

	err = q.Subscribe(context.Background(), "application.submitted", func(context.Context, Message) error { return nil })
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestOpen_Misconfigured(t *testing.T) {
	_, err := Open(context.Background(), config.MQConfig{Backend: "kafka"})
	assert.Error(t, err)

	_, err = Open(context.Background(), config.MQConfig{Backend: config.MQBackendRabbitMQ})
	assert.ErrorContains(t, err, "rabbitmq url is required")

	_, err = Open(context.Background(), config.MQConfig{Backend: config.MQBackendPubSub})
	assert.ErrorContains(t, err, "pubsub project id is required")
}

func TestHeadersToAttributes(t *testing.T) {
	attrs := headersToAttributes(amqp.Table{
		"event":  "application.submitted",
		"job_id": int64(4),
		"raw":    []byte("x"),
	}, "application/json")

	assert.Equal(t, map[string]string{
		AttrContentType: "application/json",
		"event":         "application.submitted",
		"job_id":        "4",
		"raw":           "x",
	}, attrs)

	assert.Nil(t, headersToAttributes(nil, ""))
}

func TestPubSubSubscriptionName(t *testing.T) {
	client := &PubSubClient{subscriptionSuffix: "-sub"}
	assert.Equal(t, "application-submitted-sub", client.subscriptionName("application.submitted"))
}
