package session

import (
	"sort"
	"sync"
	"time"

	"github.com/oggyb/campus-connect/internal/chat"
	"github.com/oggyb/campus-connect/internal/db"
	"github.com/oggyb/campus-connect/internal/matching"
)

type NotificationKind string

const (
	NotifyLike    NotificationKind = "like"
	NotifyMatch   NotificationKind = "match"
	NotifyMessage NotificationKind = "message"
	NotifyInfo    NotificationKind = "info"
)

// Notification is a user-facing toast. Key identifies the underlying event
// and is unique per user: the same key is delivered at most once.
type Notification struct {
	Kind  NotificationKind `json:"kind"`
	Key   string           `json:"key"`
	Title string           `json:"title"`
	Body  string           `json:"body,omitempty"`
	At    time.Time        `json:"at"`
}

// Session is the reconciled state of one signed-in user. RPC handlers and
// the realtime router both mutate it, only through the methods below, and
// every method is idempotent for repeated input. Methods never block on I/O.
type Session struct {
	UserID string

	mu            sync.Mutex
	queue         []db.Profile
	matches       map[matching.PairKey]db.Match
	conversations map[string]chat.View
	openID        string
	openMessages  []db.Message
	openSeen      map[string]struct{}
	inbox         []Notification
	delivered     map[string]struct{}
}

func New(userID string) *Session {
	return &Session{
		UserID:        userID,
		matches:       make(map[matching.PairKey]db.Match),
		conversations: make(map[string]chat.View),
		openSeen:      make(map[string]struct{}),
		delivered:     make(map[string]struct{}),
	}
}

// SetQueue replaces the discovery queue.
func (s *Session) SetQueue(profiles []db.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append([]db.Profile(nil), profiles...)
}

// Queue returns a copy of the discovery queue in display order.
func (s *Session) Queue() []db.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]db.Profile(nil), s.queue...)
}

// RemoveCandidate drops profileID from the queue. It reports whether the
// profile was queued.
func (s *Session) RemoveCandidate(profileID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.queue {
		if p.ID == profileID {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return true
		}
	}
	return false
}

// AddMatch records m under its pair key. It returns false when the pair was
// already known, whichever path added it first.
func (s *Session) AddMatch(m db.Match) bool {
	key := matching.KeyOfMatch(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[key]; ok {
		return false
	}
	s.matches[key] = m
	return true
}

func (s *Session) HasMatch(key matching.PairKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.matches[key]
	return ok
}

// SetMatches replaces the match set with a fresh read from the store.
func (s *Session) SetMatches(ms []db.Match) {
	next := make(map[matching.PairKey]db.Match, len(ms))
	for _, m := range ms {
		next[matching.KeyOfMatch(m)] = m
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// keep optimistic entries a concurrent refresh may not have seen yet
	for k, m := range s.matches {
		if _, ok := next[k]; !ok {
			next[k] = m
		}
	}
	s.matches = next
}

// Matches returns the known matches, newest first.
func (s *Session) Matches() []db.Match {
	s.mu.Lock()
	out := make([]db.Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// SetConversations replaces every conversation view.
func (s *Session) SetConversations(views []chat.View) {
	next := make(map[string]chat.View, len(views))
	for _, v := range views {
		next[v.Conversation.ID] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = next
}

// UpsertConversation replaces one conversation view.
func (s *Session) UpsertConversation(v chat.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[v.Conversation.ID] = v
}

func (s *Session) Conversation(id string) (chat.View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.conversations[id]
	return v, ok
}

// Conversations returns the views ordered by updated_at, newest first.
func (s *Session) Conversations() []chat.View {
	s.mu.Lock()
	out := make([]chat.View, 0, len(s.conversations))
	for _, v := range s.conversations {
		out = append(out, v)
	}
	s.mu.Unlock()

	chat.SortByRecent(out)
	return out
}

// OpenConversation makes id the open conversation with msgs as its list.
func (s *Session) OpenConversation(id string, msgs []db.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openID = id
	s.openMessages = s.openMessages[:0]
	s.openSeen = make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if _, dup := s.openSeen[m.ID]; dup {
			continue
		}
		s.openSeen[m.ID] = struct{}{}
		s.openMessages = append(s.openMessages, m)
	}
}

// CloseConversation closes id if it is the open conversation and reports
// whether it was.
func (s *Session) CloseConversation(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" || s.openID != id {
		return false
	}
	s.openID = ""
	s.openMessages = nil
	s.openSeen = make(map[string]struct{})
	return true
}

// OpenConversationID returns "" when no conversation is open.
func (s *Session) OpenConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openID
}

// OpenMessages returns a copy of the open conversation's message list.
func (s *Session) OpenMessages() []db.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]db.Message(nil), s.openMessages...)
}

// AppendMessage adds m to the open list. It returns false when m belongs to
// another conversation or is already present by id.
func (s *Session) AppendMessage(m db.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openID == "" || m.ConversationID != s.openID {
		return false
	}
	if _, dup := s.openSeen[m.ID]; dup {
		return false
	}
	s.openSeen[m.ID] = struct{}{}

	// keep creation order when pushes arrive out of order
	i := sort.Search(len(s.openMessages), func(i int) bool {
		return s.openMessages[i].CreatedAt.After(m.CreatedAt)
	})
	s.openMessages = append(s.openMessages, db.Message{})
	copy(s.openMessages[i+1:], s.openMessages[i:])
	s.openMessages[i] = m
	return true
}

// Notify queues n unless its key was delivered before in this session.
func (s *Session) Notify(n Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.delivered[n.Key]; dup {
		return false
	}
	s.delivered[n.Key] = struct{}{}
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}
	s.inbox = append(s.inbox, n)
	return true
}

func (s *Session) Delivered(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.delivered[key]
	return ok
}

// DrainNotifications returns and clears the pending notifications.
func (s *Session) DrainNotifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.inbox
	s.inbox = nil
	return out
}
