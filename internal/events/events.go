// Package events publishes directory sync events over Redis Streams so
// external observers (exporters, federation peers) can follow registry
// changes without polling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stream is the single stream all sync events land on.
const Stream = "agentdir:sync"

// healthKey is the hash holding the latest per-agent alive flags.
const healthKey = "agentdir:health"

// Event actions.
const (
	ActionRegistered = "registered"
	ActionImported   = "imported"
	ActionExported   = "exported"
	ActionAllocated  = "allocated"
	ActionRemoved    = "removed"
)

// SyncEvent describes one registry change.
type SyncEvent struct {
	ID      string    `json:"id"`
	Source  string    `json:"source"`
	AgentID string    `json:"agent_id"`
	Action  string    `json:"action"`
	At      time.Time `json:"at"`
}

// Bus is the Redis-backed sync event bus.
type Bus struct {
	rdb *redis.Client
	log *zap.Logger
}

// NewBus connects to Redis and verifies the connection.
func NewBus(redisURL string, log *zap.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Bus{rdb: rdb, log: log}, nil
}

// Publish appends a sync event to the stream. A missing event id is filled
// with a fresh UUID, a missing timestamp with now.
func (b *Bus) Publish(ctx context.Context, ev *SyncEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	_, err = b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: Stream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", Stream, err)
	}

	b.log.Debug("published sync event",
		zap.String("agent_id", ev.AgentID),
		zap.String("action", ev.Action))
	return nil
}

// Subscribe tails the sync stream from now on. Returns a channel that emits
// events; cancel the context to stop.
func (b *Bus) Subscribe(ctx context.Context) <-chan *SyncEvent {
	ch := make(chan *SyncEvent, 16)

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
				Streams: []string{Stream, lastID},
				Count:   10,
				Block:   time.Second * 2,
			}).Result()

			if err != nil {
				if err == context.Canceled || err == context.DeadlineExceeded {
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
					var ev SyncEvent
					if json.Unmarshal([]byte(data), &ev) == nil {
						ch <- &ev
					}
				}
			}
		}
	}()

	return ch
}

// PublishHealthSnapshot stores the latest alive flag per agent in a hash so
// dashboards can read liveness without replaying the stream.
func (b *Bus) PublishHealthSnapshot(ctx context.Context, alive map[string]bool) error {
	if len(alive) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(alive))
	for agentID, ok := range alive {
		values[agentID] = ok
	}
	if err := b.rdb.HSet(ctx, healthKey, values).Err(); err != nil {
		return fmt.Errorf("health snapshot: %w", err)
	}
	return nil
}

// Close shuts down the Redis connection.
func (b *Bus) Close() error {
	return b.rdb.Close()
}
