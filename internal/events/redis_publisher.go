package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/staff-account-service/internal/domain"
)

// DefaultStreamMaxLen bounds the stream with approximate trimming.
const DefaultStreamMaxLen = 100000

type pipeliner interface {
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// RedisStreamPublisher appends events to a Redis stream. One PublishAll call
// is written in a single MULTI/EXEC block so consumers see all or none of it.
type RedisStreamPublisher struct {
	client pipeliner
	stream string
	maxLen int64
}

// NewRedisStreamPublisher returns a publisher writing to stream.
func NewRedisStreamPublisher(client *redis.Client, stream string) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: DefaultStreamMaxLen}
}

func (p *RedisStreamPublisher) PublishAll(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	envelopes := make([]Envelope, 0, len(events))
	for _, event := range events {
		envelope, err := NewEnvelope(event)
		if err != nil {
			return err
		}
		envelopes = append(envelopes, envelope)
	}

	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, envelope := range envelopes {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: p.stream,
				MaxLen: p.maxLen,
				Approx: true,
				Values: envelope.Values(),
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish %d events to %s: %w", len(envelopes), p.stream, err)
	}
	return nil
}
