package matching

import "github.com/oggyb/campus-connect/internal/db"

// PairKey is the canonical, order-independent identity of a two-user
// relationship: User1 is always the smaller id.
type PairKey struct {
	User1 string
	User2 string
}

func NewPairKey(a, b string) PairKey {
	u1, u2 := db.CanonicalPair(a, b)
	return PairKey{User1: u1, User2: u2}
}

// KeyOfMatch returns the pair key of a stored match.
func KeyOfMatch(m db.Match) PairKey { return NewPairKey(m.User1ID, m.User2ID) }

// KeyOfConversation returns the pair key of a stored conversation.
func KeyOfConversation(c db.Conversation) PairKey { return NewPairKey(c.User1ID, c.User2ID) }

func (k PairKey) String() string { return k.User1 + ":" + k.User2 }

func (k PairKey) Has(userID string) bool {
	return k.User1 == userID || k.User2 == userID
}
