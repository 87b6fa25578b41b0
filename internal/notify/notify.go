// Package notify carries application events from the API server to the
// employer notification worker.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jobboard/apiserver/internal/mq"
)

// ChannelApplicationSubmitted is the queue/topic for new applications.
const ChannelApplicationSubmitted = "application.submitted"

// ApplicationSubmitted is published once per committed application.
type ApplicationSubmitted struct {
	ApplicationID int64     `json:"applicationId"`
	JobID         int64     `json:"jobId"`
	JobTitle      string    `json:"jobTitle"`
	UserID        int64     `json:"userId"`
	PostedBy      int64     `json:"postedBy"`
	Applicants    int       `json:"applicants"`
	ResumePath    string    `json:"resumePath,omitempty"`
	AppliedAt     time.Time `json:"appliedAt"`
}

// Queue is the part of mq.MQ the publisher and consumer need.
type Queue interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler mq.Handler) error
}

type Publisher struct {
	queue  Queue
	logger *slog.Logger
}

func NewPublisher(queue Queue, logger *slog.Logger) *Publisher {
	return &Publisher{queue: queue, logger: logger}
}

func (p *Publisher) ApplicationSubmitted(ctx context.Context, event ApplicationSubmitted) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	id, err := p.queue.Publish(ctx, ChannelApplicationSubmitted, data, map[string]string{
		mq.AttrContentType: "application/json",
		"job_id":           strconv.FormatInt(event.JobID, 10),
		"posted_by":        strconv.FormatInt(event.PostedBy, 10),
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ChannelApplicationSubmitted, err)
	}
	p.logger.Debug("event published", "channel", ChannelApplicationSubmitted, "message_id", id, "job_id", event.JobID)
	return nil
}

// Notifier delivers an event to the job's poster.
type Notifier interface {
	NotifyEmployer(ctx context.Context, event ApplicationSubmitted) error
}

// LogNotifier records employer notifications in the log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) NotifyEmployer(_ context.Context, event ApplicationSubmitted) error {
	n.Logger.Info("new application for employer",
		"employer_id", event.PostedBy,
		"job_id", event.JobID,
		"job_title", event.JobTitle,
		"applicant_id", event.UserID,
		"applicants", event.Applicants,
		"has_resume", event.ResumePath != "",
	)
	return nil
}

// Consumer dispatches ApplicationSubmitted events to a Notifier.
type Consumer struct {
	queue    Queue
	notifier Notifier
	logger   *slog.Logger
}

func NewConsumer(queue Queue, notifier Notifier, logger *slog.Logger) *Consumer {
	return &Consumer{queue: queue, notifier: notifier, logger: logger}
}

// Run blocks until ctx is cancelled or the subscription fails.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consuming events", "channel", ChannelApplicationSubmitted)
	return c.queue.Subscribe(ctx, ChannelApplicationSubmitted, c.Handle)
}

// Handle decodes one message. Malformed payloads are logged and acked
// since redelivery cannot fix them.
func (c *Consumer) Handle(ctx context.Context, msg mq.Message) error {
	var event ApplicationSubmitted
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logger.Error("dropping malformed event", "message_id", msg.ID, "error", err)
		return nil
	}
	if err := c.notifier.NotifyEmployer(ctx, event); err != nil {
		c.logger.Warn("notify employer failed", "message_id", msg.ID, "job_id", event.JobID, "error", err)
		return err
	}
	return nil
}
