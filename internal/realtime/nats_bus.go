package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// NATSBus publishes each table on subject "<prefix>.<table>.insert".
type NATSBus struct {
	nc     *nats.Conn
	prefix string
	log    *slog.Logger
}

func NewNATSBus(nc *nats.Conn, prefix string, log *slog.Logger) *NATSBus {
	if log == nil {
		log = slog.Default()
	}
	return &NATSBus{nc: nc, prefix: prefix, log: log.With("bus", "nats")}
}

func (b *NATSBus) Subject(table string) string {
	return b.prefix + "." + table + ".insert"
}

func (b *NATSBus) Publish(_ context.Context, ev Event) error {
	if b == nil || b.nc == nil {
		return fmt.Errorf("nats bus not initialized")
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}
	return b.nc.PublishMsg(&nats.Msg{Subject: b.Subject(ev.Table), Data: data})
}

func (b *NATSBus) StartForwarder(ctx context.Context, handle Handler) error {
	if b == nil || b.nc == nil {
		return fmt.Errorf("nats bus not initialized")
	}
	if handle == nil {
		return fmt.Errorf("handler required")
	}

	subs := make([]*nats.Subscription, 0, len(Tables))
	for _, t := range Tables {
		sub, err := b.nc.Subscribe(b.Subject(t), func(msg *nats.Msg) {
			if err := handle(ctx, msg.Data); err != nil {
				b.log.Warn("realtime event dropped", "subject", msg.Subject, "err", err)
			}
		})
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return fmt.Errorf("nats subscribe %s: %w", t, err)
		}
		subs = append(subs, sub)
	}
	if err := b.nc.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	go func() {
		<-ctx.Done()
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
	}()
	return nil
}

func (b *NATSBus) Close() error {
	if b == nil || b.nc == nil {
		return nil
	}
	return b.nc.Drain()
}
