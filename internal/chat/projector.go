package chat

import (
	"sort"

	"github.com/oggyb/campus-connect/internal/db"
)

// View is the list-row state of a conversation as seen by one participant.
type View struct {
	Conversation db.Conversation
	// LastMessage is nil for a conversation with no messages.
	LastMessage *db.Message
	// UnreadCount counts messages from the counterpart not yet read.
	UnreadCount int
}

// Project derives viewerID's view of conv from its messages. msgs may be in
// any order and may include messages of other conversations, which are ignored.
func Project(conv db.Conversation, msgs []db.Message, viewerID string) View {
	v := View{Conversation: conv}
	for i := range msgs {
		m := msgs[i]
		if m.ConversationID != conv.ID {
			continue
		}
		if !m.IsRead && m.SenderID != viewerID {
			v.UnreadCount++
		}
		if v.LastMessage == nil || newer(m, *v.LastMessage) {
			v.LastMessage = &m
		}
	}
	return v
}

// newer orders by creation time, ties broken by id so the result does not
// depend on input order.
func newer(a, b db.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// SortByRecent orders views by conversation updated_at, newest first.
func SortByRecent(views []View) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i].Conversation, views[j].Conversation
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID > b.ID
	})
}
