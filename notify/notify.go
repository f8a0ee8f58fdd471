// Package notify publishes a summary of every load unit to Pub/Sub.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"wmorders/utils/logger"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
)

// Unit names
const (
	UnitOrders = "orders"
	UnitRecon  = "recon"
)

// Status values
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// RunSummary describes one committed or failed unit of work
type RunSummary struct {
	RunID      string    `json:"runId"`
	Unit       string    `json:"unit"`
	StartDate  string    `json:"startDate,omitempty"`
	ReportDate string    `json:"reportDate,omitempty"`
	Rows       int       `json:"rows"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// NewRunID returns a fresh run id
func NewRunID() string {
	return uuid.New().String()
}

// Publisher sends summaries to a topic
type Publisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPublisher connects to project and uses topic
func NewPublisher(ctx context.Context, project string, topic string) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, logger.ErrFmt("[notify.NewPublisher] %w", err)
	}
	return FromClient(client, topic), nil
}

// FromClient uses an existing client
func FromClient(client *pubsub.Client, topic string) *Publisher {
	return &Publisher{client: client, topic: client.Topic(topic)}
}

// Publish sends s and waits for the server id
func (p *Publisher) Publish(ctx context.Context, s RunSummary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return logger.ErrFmt("[notify.Publish] %w", err)
	}
	res := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"unit": s.Unit, "status": s.Status, "runId": s.RunID},
	})
	id, err := res.Get(ctx)
	if err != nil {
		return logger.ErrFmt("[notify.Publish] %w", err)
	}
	logger.DebugFmt("[notify.Publish] %s %s as %s", s.Unit, s.Status, id)
	return nil
}

// Close flushes the topic and closes the client
func (p *Publisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
