// Package queue publishes the records of a finished run to a Redis list
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/project-tktt/ms-job-crawler/internal/domain"
)

const DefaultQueue = "jobs:ms"

// Message kinds
const (
	KindJob     = "job"
	KindSummary = "summary"
)

// Message is one entry of the list. Consumers switch on Kind.
type Message struct {
	Kind    string            `json:"kind"`
	RunID   string            `json:"run_id"`
	Job     *domain.JobRecord `json:"job,omitempty"`
	Summary *domain.Summary   `json:"summary,omitempty"`
}

// Publisher pushes run output to a Redis list
type Publisher struct {
	client    redis.Cmdable
	queueName string
}

// NewPublisher creates a new queue publisher
func NewPublisher(client redis.Cmdable, queueName string) *Publisher {
	if queueName == "" {
		queueName = DefaultQueue
	}
	return &Publisher{
		client:    client,
		queueName: queueName,
	}
}

// PublishBatch pushes every record of a run in one pipeline
func (p *Publisher) PublishBatch(ctx context.Context, runID string, jobs []domain.JobRecord) error {
	if len(jobs) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for i := range jobs {
		data, err := encode(Message{Kind: KindJob, RunID: runID, Job: &jobs[i]})
		if err != nil {
			return err
		}
		pipe.RPush(ctx, p.queueName, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec: %w", err)
	}
	return nil
}

// PublishSummary pushes the run aggregates after the records
func (p *Publisher) PublishSummary(ctx context.Context, runID string, summary domain.Summary) error {
	data, err := encode(Message{Kind: KindSummary, RunID: runID, Summary: &summary})
	if err != nil {
		return err
	}
	if err := p.client.RPush(ctx, p.queueName, data).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	return nil
}

// QueueLength returns the current queue length
func (p *Publisher) QueueLength(ctx context.Context) (int64, error) {
	return p.client.LLen(ctx, p.queueName).Result()
}

func encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", m.Kind, err)
	}
	return data, nil
}
