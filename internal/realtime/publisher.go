package realtime

import (
	"context"
	"time"

	"github.com/oggyb/campus-connect/internal/db"
)

// Publisher turns stored rows into change-feed events. Callers invoke it only
// for rows their own write inserted.
type Publisher struct {
	bus Bus
}

func NewPublisher(bus Bus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) DecisionCreated(ctx context.Context, d db.Decision) error {
	return p.publish(ctx, TableLikes, d, d.CreatedAt)
}

func (p *Publisher) MatchCreated(ctx context.Context, m db.Match) error {
	return p.publish(ctx, TableMatches, m, m.CreatedAt)
}

func (p *Publisher) MessageCreated(ctx context.Context, m db.Message) error {
	return p.publish(ctx, TableMessages, m, m.CreatedAt)
}

func (p *Publisher) publish(ctx context.Context, table string, record any, at time.Time) error {
	if p == nil || p.bus == nil {
		return nil
	}
	if at.IsZero() {
		at = time.Now()
	}
	ev, err := NewInsert(table, record, at)
	if err != nil {
		return err
	}
	return p.bus.Publish(ctx, ev)
}
