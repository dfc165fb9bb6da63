package realtime_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/campus-connect/internal/db"
	"github.com/oggyb/campus-connect/internal/logger"
	"github.com/oggyb/campus-connect/internal/realtime"
	"github.com/oggyb/campus-connect/internal/session"
)

type countingRefresher struct {
	mu            sync.Mutex
	matches       map[string]int
	conversations map[string]int
	conversation  map[string]int
}

func newRefresher() *countingRefresher {
	return &countingRefresher{
		matches:       map[string]int{},
		conversations: map[string]int{},
		conversation:  map[string]int{},
	}
}

func (c *countingRefresher) RefreshMatches(_ context.Context, s *session.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches[s.UserID]++
	return nil
}

func (c *countingRefresher) RefreshConversations(_ context.Context, s *session.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversations[s.UserID]++
	return nil
}

func (c *countingRefresher) RefreshConversation(_ context.Context, s *session.Session, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversation[s.UserID+"/"+id]++
	return nil
}

func (c *countingRefresher) count(m map[string]int, key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return m[key]
}

type conversations map[string]db.Conversation

func (c conversations) Get(_ context.Context, id string) (*db.Conversation, error) {
	if conv, ok := c[id]; ok {
		return &conv, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type routerFixture struct {
	sessions  *session.Registry
	refresher *countingRefresher
	router    *realtime.Router
}

func newRouterFixture(users ...string) *routerFixture {
	reg := session.NewRegistry()
	for _, u := range users {
		reg.Get(u)
	}
	ref := newRefresher()
	convs := conversations{"c1": {ID: "c1", User1ID: "A", User2ID: "B"}}
	notifier := session.NewNotifier(reg, nil, time.Hour, logger.Discard())
	return &routerFixture{
		sessions:  reg,
		refresher: ref,
		router:    realtime.NewRouter(reg, notifier, convs, ref, logger.Discard()),
	}
}

func payload(t *testing.T, table string, record any) []byte {
	t.Helper()
	ev, err := realtime.NewInsert(table, record, time.Now())
	require.NoError(t, err)
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	return raw
}

func (f *routerFixture) session(t *testing.T, id string) *session.Session {
	t.Helper()
	s, ok := f.sessions.Lookup(id)
	require.True(t, ok)
	return s
}

func TestRouter_LikeNotifiesTargetOnce(t *testing.T) {
	f := newRouterFixture("A", "B")
	ctx := context.Background()
	raw := payload(t, realtime.TableLikes, db.Decision{LikerID: "A", LikedID: "B", IsSuperLike: true})

	for i := 0; i < 3; i++ {
		require.NoError(t, f.router.Handle(ctx, raw))
	}

	notes := f.session(t, "B").DrainNotifications()
	require.Len(t, notes, 1)
	assert.Equal(t, session.NotifyLike, notes[0].Kind)
	assert.Equal(t, "Someone super liked you!", notes[0].Title)
	assert.Empty(t, f.session(t, "A").DrainNotifications())
	// a like never creates a match on its own
	assert.Empty(t, f.session(t, "B").Matches())
}

func TestRouter_MatchReplaysApplyOnce(t *testing.T) {
	f := newRouterFixture("A", "B")
	ctx := context.Background()
	raw := payload(t, realtime.TableMatches, db.Match{ID: "m1", User1ID: "A", User2ID: "B"})

	for i := 0; i < 4; i++ {
		require.NoError(t, f.router.Handle(ctx, raw))
	}

	for _, u := range []string{"A", "B"} {
		s := f.session(t, u)
		assert.Len(t, s.Matches(), 1)
		assert.Len(t, s.DrainNotifications(), 1)
		assert.Equal(t, 1, f.refresher.count(f.refresher.matches, u))
		assert.Equal(t, 1, f.refresher.count(f.refresher.conversations, u))
	}
}

func TestRouter_MatchAlreadyAppliedOptimistically(t *testing.T) {
	f := newRouterFixture("A", "B")
	m := db.Match{ID: "m1", User1ID: "A", User2ID: "B"}
	// B completed the match locally before the push arrived
	f.session(t, "B").AddMatch(m)

	require.NoError(t, f.router.Handle(context.Background(), payload(t, realtime.TableMatches, m)))

	assert.Zero(t, f.refresher.count(f.refresher.matches, "B"))
	assert.Empty(t, f.session(t, "B").DrainNotifications())
	assert.Equal(t, 1, f.refresher.count(f.refresher.matches, "A"))
	assert.Len(t, f.session(t, "A").DrainNotifications(), 1)
}

func TestRouter_MatchWithoutSessionsIsIgnored(t *testing.T) {
	f := newRouterFixture()
	raw := payload(t, realtime.TableMatches, db.Match{ID: "m1", User1ID: "A", User2ID: "B"})
	assert.NoError(t, f.router.Handle(context.Background(), raw))
	assert.Zero(t, f.sessions.Len())
}

func TestRouter_MessageAppendsToOpenListOnce(t *testing.T) {
	f := newRouterFixture("A", "B")
	ctx := context.Background()
	b := f.session(t, "B")
	b.OpenConversation("c1", nil)

	msg := db.Message{ID: "m1", ConversationID: "c1", SenderID: "A", Content: "hey", CreatedAt: time.Now()}
	raw := payload(t, realtime.TableMessages, msg)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.router.Handle(ctx, raw))
	}

	require.Len(t, b.OpenMessages(), 1)
	assert.Equal(t, 1, f.refresher.count(f.refresher.conversation, "B/c1"))
	// B is looking at the conversation: no toast
	assert.Empty(t, b.DrainNotifications())

	// A has nothing open and sent the message: metadata refresh, no toast
	assert.Positive(t, f.refresher.count(f.refresher.conversation, "A/c1"))
	assert.Empty(t, f.session(t, "A").DrainNotifications())
}

func TestRouter_MessageForClosedConversationRefreshesAndNotifies(t *testing.T) {
	f := newRouterFixture("A", "B")
	ctx := context.Background()
	raw := payload(t, realtime.TableMessages, db.Message{ID: "m1", ConversationID: "c1", SenderID: "A", Content: "hey"})

	require.NoError(t, f.router.Handle(ctx, raw))
	require.NoError(t, f.router.Handle(ctx, raw))

	b := f.session(t, "B")
	assert.Empty(t, b.OpenMessages())
	assert.Equal(t, 2, f.refresher.count(f.refresher.conversation, "B/c1"))
	notes := b.DrainNotifications()
	require.Len(t, notes, 1)
	assert.Equal(t, "hey", notes[0].Body)
}

func TestRouter_MalformedPayloads(t *testing.T) {
	f := newRouterFixture("A", "B")
	ctx := context.Background()

	cases := map[string][]byte{
		"not json":       []byte("{"),
		"no record":      []byte(`{"table":"matches","type":"INSERT"}`),
		"bad record":     []byte(`{"table":"matches","type":"INSERT","record":"oops"}`),
		"self match":     payload(t, realtime.TableMatches, db.Match{User1ID: "A", User2ID: "A"}),
		"message no ids": payload(t, realtime.TableMessages, db.Message{Content: "x"}),
		"like no target": payload(t, realtime.TableLikes, db.Decision{LikerID: "A"}),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, f.router.Handle(ctx, raw), realtime.ErrMalformedEvent)
		})
	}
	assert.Empty(t, f.session(t, "A").Matches())
}

func TestRouter_IgnoresOtherTablesAndTypes(t *testing.T) {
	f := newRouterFixture("A")
	ctx := context.Background()
	assert.NoError(t, f.router.Handle(ctx, []byte(`{"table":"profiles","type":"INSERT","record":{}}`)))
	assert.NoError(t, f.router.Handle(ctx, []byte(`{"table":"matches","type":"DELETE","record":{}}`)))
}

func TestRedisBus_DeliversToRouter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := newRouterFixture("A", "B")
	bus := realtime.NewRedisBus(rdb, "test", logger.Discard())
	require.NoError(t, bus.StartForwarder(ctx, f.router.Handle))

	pub := realtime.NewPublisher(bus)
	m := db.Match{ID: "m1", User1ID: "A", User2ID: "B", CreatedAt: time.Now()}
	require.NoError(t, pub.MatchCreated(ctx, m))
	require.NoError(t, pub.MatchCreated(ctx, m))

	a, b := f.session(t, "A"), f.session(t, "B")
	assert.Eventually(t, func() bool {
		return len(a.Matches()) == 1 && len(b.Matches()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "test:matches", bus.Channel(realtime.TableMatches))
}

func TestNATSBus_Subjects(t *testing.T) {
	bus := realtime.NewNATSBus(nil, "realtime", logger.Discard())
	assert.Equal(t, "realtime.messages.insert", bus.Subject(realtime.TableMessages))
	assert.Error(t, bus.Publish(context.Background(), realtime.Event{Table: realtime.TableLikes}))
	assert.NoError(t, bus.Close())
}
