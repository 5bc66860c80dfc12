package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StageEvent is emitted on the Redis stream as each stage completes, so
// dashboards can follow a turn's progress without polling the database.
type StageEvent struct {
	ConversationID string    `json:"conversation_id"`
	SessionID      string    `json:"session_id"`
	Stage          string    `json:"stage"`
	Action         string    `json:"action"`
	Timestamp      time.Time `json:"timestamp"`
}

const stageStream = "riskline:stages"

// EventBus publishes stage events to a Redis Stream. A nil bus is valid and
// publishes nothing; event delivery is always best-effort.
type EventBus struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewEventBus connects to Redis and verifies the connection.
func NewEventBus(redisURL string, logger *zap.Logger) (*EventBus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &EventBus{rdb: rdb, logger: logger}, nil
}

// Publish appends a stage event to the stream. Failures are logged only.
func (b *EventBus) Publish(ctx context.Context, ev *StageEvent) {
	if b == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	err = b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stageStream,
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	if err != nil {
		b.logger.Warn("stage event publish failed",
			zap.String("stage", ev.Stage),
			zap.Error(err))
	}
}

// Subscribe tails the stage stream from now on. Cancel the context to stop.
func (b *EventBus) Subscribe(ctx context.Context) <-chan *StageEvent {
	ch := make(chan *StageEvent, 16)
	if b == nil {
		close(ch)
		return ch
	}

	go func() {
		defer close(ch)
		lastID := "$"

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			results, err := b.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{stageStream, lastID},
				Count:   10,
				Block:   2 * time.Second,
			}).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}

			for _, r := range results {
				for _, msg := range r.Messages {
					lastID = msg.ID
					data, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					var ev StageEvent
					if json.Unmarshal([]byte(data), &ev) == nil {
						ch <- &ev
					}
				}
			}
		}
	}()

	return ch
}

// Close shuts down the Redis connection.
func (b *EventBus) Close() error {
	if b == nil {
		return nil
	}
	return b.rdb.Close()
}
