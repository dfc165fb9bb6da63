package matching_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/campus-connect/internal/db"
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

// queue is a minimal discovery queue.
type queue struct {
	ids []string
}

func newQueue(ids ...string) *queue { return &queue{ids: ids} }

func (q *queue) RemoveCandidate(id string) bool {
	for i, v := range q.ids {
		if v == id {
			q.ids = append(q.ids[:i], q.ids[i+1:]...)
			return true
		}
	}
	return false
}

var errBackendDown = errors.New("backend down")

// flakyLikes fails every call while down is set and counts writes.
type flakyLikes struct {
	mu      sync.Mutex
	down    bool
	rows    map[[2]string]db.Decision
	creates int
}

func newFlakyLikes() *flakyLikes {
	return &flakyLikes{rows: map[[2]string]db.Decision{}}
}

func (f *flakyLikes) FindLike(_ context.Context, liker, liked string) (*db.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, errBackendDown
	}
	if d, ok := f.rows[[2]string{liker, liked}]; ok {
		return &d, nil
	}
	return nil, nil
}

func (f *flakyLikes) CreateLike(_ context.Context, d *db.Decision) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.down {
		return false, errBackendDown
	}
	k := [2]string{d.LikerID, d.LikedID}
	if _, ok := f.rows[k]; ok {
		return false, nil
	}
	d.CreatedAt = time.Now().UTC()
	f.rows[k] = *d
	return true, nil
}

func (f *flakyLikes) HasLiked(ctx context.Context, liker, liked string) (bool, error) {
	d, err := f.FindLike(ctx, liker, liked)
	return d != nil, err
}

// recordingFeed captures change-feed announcements.
type recordingFeed struct {
	mu        sync.Mutex
	decisions []db.Decision
	matches   []db.Match
}

func (r *recordingFeed) DecisionCreated(_ context.Context, d db.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, d)
	return nil
}

func (r *recordingFeed) MatchCreated(_ context.Context, m db.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = append(r.matches, m)
	return nil
}

func (r *recordingFeed) matchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matches)
}
