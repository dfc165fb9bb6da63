package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/oggyb/campus-connect/internal/config"
)

// Handler consumes one raw payload. Returned errors are logged by the bus.
type Handler func(ctx context.Context, payload []byte) error

// Bus moves change-feed events between processes. Delivery is
// at-least-once and unordered across tables.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	// StartForwarder subscribes to every table and calls handle for each
	// payload until ctx is done. It returns once the subscription is live.
	StartForwarder(ctx context.Context, handle Handler) error
	Close() error
}

// NewBus picks the bus named by REALTIME_DRIVER. The redis bus shares rdb.
func NewBus(cfg *config.Config, rdb *redis.Client, log *slog.Logger) (Bus, error) {
	switch cfg.Realtime.Driver {
	case "nats":
		nc, err := nats.Connect(cfg.Realtime.NATSURL, nats.Name(cfg.Log.Component))
		if err != nil {
			return nil, fmt.Errorf("nats connect: %w", err)
		}
		return NewNATSBus(nc, cfg.Realtime.Prefix, log), nil
	case "redis", "":
		if rdb == nil {
			return nil, fmt.Errorf("redis bus needs a redis client")
		}
		return NewRedisBus(rdb, cfg.Realtime.Prefix, log), nil
	default:
		return nil, fmt.Errorf("unknown realtime driver %q", cfg.Realtime.Driver)
	}
}
