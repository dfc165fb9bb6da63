package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBus publishes each table on its own pub/sub channel "<prefix>:<table>".
type RedisBus struct {
	rdb    *redis.Client
	prefix string
	log    *slog.Logger
}

func NewRedisBus(rdb *redis.Client, prefix string, log *slog.Logger) *RedisBus {
	if log == nil {
		log = slog.Default()
	}
	return &RedisBus{rdb: rdb, prefix: prefix, log: log.With("bus", "redis")}
}

func (b *RedisBus) Channel(table string) string {
	return b.prefix + ":" + table
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis bus not initialized")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.Channel(ev.Table), raw).Err()
}

func (b *RedisBus) StartForwarder(ctx context.Context, handle Handler) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis bus not initialized")
	}
	if handle == nil {
		return fmt.Errorf("handler required")
	}

	channels := make([]string, 0, len(Tables))
	for _, t := range Tables {
		channels = append(channels, b.Channel(t))
	}
	sub := b.rdb.Subscribe(ctx, channels...)

	// one confirmation per channel before the subscription counts as live
	for range channels {
		if _, err := sub.Receive(ctx); err != nil {
			_ = sub.Close()
			return fmt.Errorf("redis subscribe: %w", err)
		}
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				if err := handle(ctx, []byte(m.Payload)); err != nil {
					b.log.Warn("realtime event dropped", "channel", m.Channel, "err", err)
				}
			}
		}
	}()
	return nil
}

// Close is a no-op: rdb is shared with the cache, which closes it.
// Subscriptions end with the context passed to StartForwarder.
func (b *RedisBus) Close() error { return nil }
