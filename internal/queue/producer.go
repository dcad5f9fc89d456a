package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultQueue = "agora:jobs"

type Producer interface {
	Enqueue(ctx context.Context, job Job) error
}

type RedisProducer struct {
	redis redis.UniversalClient
	queue string
}

func NewProducer(client redis.UniversalClient, queue string) *RedisProducer {
	return &RedisProducer{client, queue}
}

func (p *RedisProducer) Enqueue(ctx context.Context, job Job) error {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshalling job: %w", err)
	}
	if err := p.redis.LPush(ctx, p.queue, jobBytes).Err(); err != nil {
		return fmt.Errorf("pushing job %s: %w", job.ID, err)
	}
	return nil
}
