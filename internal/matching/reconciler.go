package matching

import (
	"context"
	"log/slog"

	"github.com/oggyb/campus-connect/internal/db"
)

// ReciprocalChecker answers whether liker has liked liked.
type ReciprocalChecker interface {
	HasLiked(ctx context.Context, likerID, likedID string) (bool, error)
}

// MatchStore creates matches keyed by canonical pair, idempotently.
type MatchStore interface {
	CreateIfAbsent(ctx context.Context, user1ID, user2ID string) (*db.Match, bool, error)
}

// ConversationStore creates conversations keyed by canonical pair, idempotently.
type ConversationStore interface {
	CreateIfAbsent(ctx context.Context, matchID, user1ID, user2ID string) (*db.Conversation, bool, error)
}

// MatchResult describes a mutual match found by TryMatch.
type MatchResult struct {
	Key          PairKey
	Match        db.Match
	Conversation db.Conversation
	// Created is true only for the call that inserted the match row.
	Created bool
}

// Reconciler turns a pair of reciprocal likes into exactly one Match and
// one Conversation.
type Reconciler struct {
	likes         ReciprocalChecker
	matches       MatchStore
	conversations ConversationStore
	feed          ChangeFeed
	log           *slog.Logger
}

func NewReconciler(likes ReciprocalChecker, matches MatchStore, conversations ConversationStore, feed ChangeFeed, log *slog.Logger) *Reconciler {
	if feed == nil {
		feed = nopFeed{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		likes:         likes,
		matches:       matches,
		conversations: conversations,
		feed:          feed,
		log:           log,
	}
}

// TryMatch runs after actorID's like on targetID was stored.
//
// Behavior:
//   - No reciprocal like → (nil, nil); nothing else happens.
//   - Reciprocal like → the match and its conversation are created if absent
//     on the canonical pair. Both sides may call this concurrently; the
//     second caller gets the stored rows with Created=false.
//   - The conversation is ensured on every call that sees the match, so a
//     previously interrupted call is repaired by the next one.
//   - The match insert is announced on the change feed only by its creator.
//
// The like must be stored before calling: with both writes preceding both
// reads, at least one of two racing callers observes the other's like.
func (r *Reconciler) TryMatch(ctx context.Context, actorID, targetID string) (*MatchResult, error) {
	if actorID == targetID {
		return nil, ErrSelfTarget
	}

	reciprocal, err := r.likes.HasLiked(ctx, targetID, actorID)
	if err != nil {
		return nil, persistence("check reciprocal like", err)
	}
	if !reciprocal {
		return nil, nil
	}

	key := NewPairKey(actorID, targetID)
	match, created, err := r.matches.CreateIfAbsent(ctx, key.User1, key.User2)
	if err != nil {
		return nil, persistence("create match", err)
	}

	conv, _, err := r.conversations.CreateIfAbsent(ctx, match.ID, key.User1, key.User2)
	if err != nil {
		return nil, persistence("create conversation", err)
	}

	if created {
		r.log.Info("new match", "pair", key.String(), "match_id", match.ID)
		if err := r.feed.MatchCreated(ctx, *match); err != nil {
			r.log.Warn("failed to publish match", "pair", key.String(), "err", err)
		}
	}

	return &MatchResult{Key: key, Match: *match, Conversation: *conv, Created: created}, nil
}
