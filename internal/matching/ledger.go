package matching

import (
	"context"
	"log/slog"
	"strings"

	"github.com/oggyb/campus-connect/internal/db"
)

// Kind is the decision a viewer makes on a discovery candidate.
type Kind string

const (
	KindLike      Kind = "like"
	KindSuperLike Kind = "super_like"
	KindSkip      Kind = "skip"
)

// ParseKind accepts like, super_like and skip (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindLike, KindSuperLike, KindSkip:
		return k, nil
	}
	return "", ErrInvalidKind
}

// Persistent reports whether the kind is stored as a user_likes row.
func (k Kind) Persistent() bool { return k == KindLike || k == KindSuperLike }

// DecisionStore is the subset of the likes table the ledger needs.
type DecisionStore interface {
	FindLike(ctx context.Context, likerID, likedID string) (*db.Decision, error)
	CreateLike(ctx context.Context, d *db.Decision) (bool, error)
}

// ChangeFeed announces inserted rows to realtime subscribers.
type ChangeFeed interface {
	DecisionCreated(ctx context.Context, d db.Decision) error
	MatchCreated(ctx context.Context, m db.Match) error
}

// Queue is the caller's in-memory discovery queue.
type Queue interface {
	RemoveCandidate(profileID string) bool
}

// Outcome is the result of recording a decision.
type Outcome struct {
	Kind     Kind
	Decision db.Decision
	// Created is true only when this call inserted the like.
	Created bool
}

// Ledger records like/super_like/skip decisions idempotently.
type Ledger struct {
	store DecisionStore
	feed  ChangeFeed
	log   *slog.Logger
}

func NewLedger(store DecisionStore, feed ChangeFeed, log *slog.Logger) *Ledger {
	if feed == nil {
		feed = nopFeed{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{store: store, feed: feed, log: log}
}

// Record validates and records actorID's decision on targetID.
//
// Behavior:
//   - Self-targeting and unknown kinds are rejected before any backend call.
//   - skip never touches the store and always removes the target from queue.
//   - like/super_like return the existing edge when one is stored (no
//     duplicate, Created=false); otherwise insert it.
//   - The target leaves queue only after the like is stored. On a
//     PersistenceError the queue is untouched so the candidate can be retried.
func (l *Ledger) Record(ctx context.Context, queue Queue, actorID, targetID string, kind Kind) (Outcome, error) {
	if actorID == "" || targetID == "" {
		return Outcome{}, ErrMissingUser
	}
	if actorID == targetID {
		return Outcome{}, ErrSelfTarget
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Kind:     kind,
		Decision: db.Decision{LikerID: actorID, LikedID: targetID, IsSuperLike: kind == KindSuperLike},
	}

	if kind == KindSkip {
		removeFrom(queue, targetID)
		return out, nil
	}

	existing, err := l.store.FindLike(ctx, actorID, targetID)
	if err != nil {
		return Outcome{}, persistence("find like", err)
	}
	if existing != nil {
		l.log.Debug("like already recorded", "actor", actorID, "target", targetID)
		out.Decision = *existing
		removeFrom(queue, targetID)
		return out, nil
	}

	d := out.Decision
	created, err := l.store.CreateLike(ctx, &d)
	if err != nil {
		return Outcome{}, persistence("create like", err)
	}
	if !created {
		// lost a race with a retry of the same like
		if stored, err := l.store.FindLike(ctx, actorID, targetID); err == nil && stored != nil {
			d = *stored
		}
	}

	out.Decision = d
	out.Created = created
	removeFrom(queue, targetID)

	if created {
		if err := l.feed.DecisionCreated(ctx, d); err != nil {
			l.log.Warn("failed to publish like", "actor", actorID, "target", targetID, "err", err)
		}
	}
	return out, nil
}

func removeFrom(q Queue, id string) {
	if q != nil {
		q.RemoveCandidate(id)
	}
}

type nopFeed struct{}

func (nopFeed) DecisionCreated(context.Context, db.Decision) error { return nil }
func (nopFeed) MatchCreated(context.Context, db.Match) error       { return nil }
