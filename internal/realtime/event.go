package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oggyb/campus-connect/internal/db"
)

// Tables carried on the change feed.
const (
	TableLikes    = "user_likes"
	TableMatches  = "matches"
	TableMessages = "messages"

	TypeInsert = "INSERT"
)

// Tables lists every table a subscriber listens to.
var Tables = []string{TableLikes, TableMatches, TableMessages}

// ErrMalformedEvent marks a payload that cannot be decoded into a row.
var ErrMalformedEvent = errors.New("malformed realtime event")

// Event is one row-insert notification.
type Event struct {
	Table           string          `json:"table"`
	Type            string          `json:"type"`
	Record          json.RawMessage `json:"record"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

// NewInsert wraps record as an INSERT event on table.
func NewInsert(table string, record any, at time.Time) (Event, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s record: %w", table, err)
	}
	return Event{Table: table, Type: TypeInsert, Record: raw, CommitTimestamp: at.UTC()}, nil
}

// Parse decodes a wire payload. Any failure wraps ErrMalformedEvent.
func Parse(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.Table == "" || len(ev.Record) == 0 {
		return Event{}, fmt.Errorf("%w: missing table or record", ErrMalformedEvent)
	}
	return ev, nil
}

func (e Event) Decision() (db.Decision, error) {
	var d db.Decision
	if err := e.decode(&d); err != nil {
		return d, err
	}
	if d.LikerID == "" || d.LikedID == "" {
		return d, fmt.Errorf("%w: like without liker_id/liked_id", ErrMalformedEvent)
	}
	return d, nil
}

func (e Event) Match() (db.Match, error) {
	var m db.Match
	if err := e.decode(&m); err != nil {
		return m, err
	}
	if m.User1ID == "" || m.User2ID == "" || m.User1ID == m.User2ID {
		return m, fmt.Errorf("%w: match without two distinct users", ErrMalformedEvent)
	}
	return m, nil
}

func (e Event) Message() (db.Message, error) {
	var m db.Message
	if err := e.decode(&m); err != nil {
		return m, err
	}
	if m.ID == "" || m.ConversationID == "" || m.SenderID == "" {
		return m, fmt.Errorf("%w: message without id/conversation_id/sender_id", ErrMalformedEvent)
	}
	return m, nil
}

func (e Event) decode(v any) error {
	if err := json.Unmarshal(e.Record, v); err != nil {
		return fmt.Errorf("%w: %s record: %v", ErrMalformedEvent, e.Table, err)
	}
	return nil
}
