package chat_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/campus-connect/internal/chat"
	"github.com/oggyb/campus-connect/internal/db"
	"github.com/oggyb/campus-connect/internal/logger"
	"github.com/oggyb/campus-connect/internal/matching"
	"github.com/oggyb/campus-connect/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}

type fixture struct {
	convs     *repository.ConversationRepository
	msgs      *repository.MessageRepository
	messenger *chat.Messenger
	feed      *messageFeed
	conv      *db.Conversation
}

type messageFeed struct{ sent []db.Message }

func (f *messageFeed) MessageCreated(_ context.Context, m db.Message) error {
	f.sent = append(f.sent, m)
	return nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := setupTestDB(t)
	f := &fixture{
		convs: repository.NewConversationRepository(database),
		msgs:  repository.NewMessageRepository(database),
		feed:  &messageFeed{},
	}
	f.messenger = chat.NewMessenger(f.convs, f.msgs, f.feed, logger.Discard())

	conv, _, err := f.convs.CreateIfAbsent(context.Background(), "match-1", "A", "B")
	require.NoError(t, err)
	f.conv = conv
	return f
}

func (f *fixture) seed(t *testing.T, id, sender string, at time.Time) {
	t.Helper()
	require.NoError(t, f.msgs.Create(context.Background(), &db.Message{
		ID: id, ConversationID: f.conv.ID, SenderID: sender, Content: "hi from " + sender, CreatedAt: at,
	}))
}

func TestProject_LastMessageAndUnread(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	conv := db.Conversation{ID: "c1", User1ID: "A", User2ID: "B"}
	msgs := []db.Message{
		{ID: "m2", ConversationID: "c1", SenderID: "B", CreatedAt: base.Add(time.Minute)},
		{ID: "m1", ConversationID: "c1", SenderID: "A", CreatedAt: base},
		{ID: "m3", ConversationID: "c1", SenderID: "A", CreatedAt: base.Add(2 * time.Minute), IsRead: true},
		{ID: "x", ConversationID: "other", SenderID: "A", CreatedAt: base.Add(time.Hour)},
	}

	forB := chat.Project(conv, msgs, "B")
	require.NotNil(t, forB.LastMessage)
	assert.Equal(t, "m3", forB.LastMessage.ID)
	assert.Equal(t, 1, forB.UnreadCount)

	forA := chat.Project(conv, msgs, "A")
	assert.Equal(t, 1, forA.UnreadCount)
}

func TestProject_Empty(t *testing.T) {
	v := chat.Project(db.Conversation{ID: "c1"}, nil, "A")
	assert.Nil(t, v.LastMessage)
	assert.Zero(t, v.UnreadCount)
}

func TestProject_TieBreakIndependentOfOrder(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	a := db.Message{ID: "a", ConversationID: "c1", CreatedAt: at}
	b := db.Message{ID: "b", ConversationID: "c1", CreatedAt: at}
	conv := db.Conversation{ID: "c1"}

	assert.Equal(t, "b", chat.Project(conv, []db.Message{a, b}, "A").LastMessage.ID)
	assert.Equal(t, "b", chat.Project(conv, []db.Message{b, a}, "A").LastMessage.ID)
}

func TestSortByRecent(t *testing.T) {
	base := time.Now()
	views := []chat.View{
		{Conversation: db.Conversation{ID: "old", UpdatedAt: base.Add(-time.Hour)}},
		{Conversation: db.Conversation{ID: "new", UpdatedAt: base}},
		{Conversation: db.Conversation{ID: "mid", UpdatedAt: base.Add(-time.Minute)}},
	}
	chat.SortByRecent(views)
	assert.Equal(t, "new", views[0].Conversation.ID)
	assert.Equal(t, "mid", views[1].Conversation.ID)
	assert.Equal(t, "old", views[2].Conversation.ID)
}

func TestOpen_MarksOnlyCounterpartRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)
	f.seed(t, "m1", "A", base)
	f.seed(t, "m2", "B", base.Add(time.Second))

	before, err := f.msgs.ListByConversation(ctx, f.conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, chat.Project(*f.conv, before, "B").UnreadCount)

	_, msgs, err := f.messenger.Open(ctx, "B", f.conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.True(t, msgs[0].IsRead)
	assert.False(t, msgs[1].IsRead)

	stored, err := f.msgs.ListByConversation(ctx, f.conv.ID)
	require.NoError(t, err)
	assert.True(t, stored[0].IsRead)
	assert.False(t, stored[1].IsRead)
	assert.Zero(t, chat.Project(*f.conv, stored, "B").UnreadCount)
	assert.Equal(t, 1, chat.Project(*f.conv, stored, "A").UnreadCount)
}

func TestOpen_UnreadNeverIncreasesOnReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "m1", "A", time.Now().UTC())

	for i := 0; i < 3; i++ {
		_, _, err := f.messenger.Open(ctx, "B", f.conv.ID)
		require.NoError(t, err)
		stored, err := f.msgs.ListByConversation(ctx, f.conv.ID)
		require.NoError(t, err)
		assert.Zero(t, chat.Project(*f.conv, stored, "B").UnreadCount)
	}
}

func TestOpen_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.messenger.Open(ctx, "C", f.conv.ID)
	assert.ErrorIs(t, err, chat.ErrNotParticipant)

	_, _, err = f.messenger.Open(ctx, "A", "missing")
	assert.ErrorIs(t, err, chat.ErrConversationNotFound)

	_, _, err = f.messenger.Open(ctx, "A", "")
	assert.ErrorIs(t, err, chat.ErrMissingConversation)
}

func TestSend_StoresTrimsAndBumps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.conv.UpdatedAt

	msg, err := f.messenger.Send(ctx, "A", f.conv.ID, "  hello there  ")
	require.NoError(t, err)
	assert.Equal(t, "hello there", msg.Content)
	assert.False(t, msg.IsRead)
	require.Len(t, f.feed.sent, 1)
	assert.Equal(t, msg.ID, f.feed.sent[0].ID)

	conv, err := f.convs.Get(ctx, f.conv.ID)
	require.NoError(t, err)
	assert.False(t, conv.UpdatedAt.Before(created))
	assert.WithinDuration(t, msg.CreatedAt, conv.UpdatedAt, time.Millisecond)
}

func TestSend_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.messenger.Send(ctx, "A", f.conv.ID, "   ")
	assert.ErrorIs(t, err, chat.ErrEmptyMessage)

	_, err = f.messenger.Send(ctx, "A", f.conv.ID, strings.Repeat("x", chat.MaxMessageLength+1))
	assert.ErrorIs(t, err, chat.ErrMessageTooLong)

	_, err = f.messenger.Send(ctx, "C", f.conv.ID, "hey")
	assert.ErrorIs(t, err, chat.ErrNotParticipant)

	assert.Empty(t, f.feed.sent)
}

func TestSend_StoreFailureIsPersistenceError(t *testing.T) {
	f := newFixture(t)
	m := chat.NewMessenger(f.convs, failingMessages{}, nil, logger.Discard())

	_, err := m.Send(context.Background(), "A", f.conv.ID, "hey")
	var perr *matching.PersistenceError
	assert.ErrorAs(t, err, &perr)
}

type failingMessages struct{ chat.MessageStore }

func (failingMessages) Create(context.Context, *db.Message) error { return assert.AnError }
