package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/campus-connect/internal/db"
	"github.com/oggyb/campus-connect/internal/repository"
)

// setup in-memory DB
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	require.NoError(t, err)
	// a single connection keeps every query on the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func like(liker, liked string, at time.Time) *db.Decision {
	return &db.Decision{LikerID: liker, LikedID: liked, CreatedAt: at}
}

func TestCreateLike_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewDecisionRepository(setupTestDB(t))

	created, err := repo.CreateLike(ctx, &db.Decision{LikerID: "a", LikedID: "b"})
	require.NoError(t, err)
	assert.True(t, created)

	// second like, even as a super like, does not touch the stored edge
	created, err = repo.CreateLike(ctx, &db.Decision{LikerID: "a", LikedID: "b", IsSuperLike: true})
	require.NoError(t, err)
	assert.False(t, created)

	d, err := repo.FindLike(ctx, "a", "b")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.False(t, d.IsSuperLike)

	decisions, err := repo.ListByLiker(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, decisions, 1)
}

func TestFindLike_Absent(t *testing.T) {
	repo := repository.NewDecisionRepository(setupTestDB(t))

	d, err := repo.FindLike(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestHasLiked_Directed(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewDecisionRepository(setupTestDB(t))

	_, err := repo.CreateLike(ctx, &db.Decision{LikerID: "a", LikedID: "b"})
	require.NoError(t, err)

	ok, err := repo.HasLiked(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasLiked(ctx, "b", "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetLikersAndPagination(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewDecisionRepository(setupTestDB(t))

	base := time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)
	for i, liker := range []string{"l1", "l2", "l3"} {
		_, err := repo.CreateLike(ctx, like(liker, "r", base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	_, err := repo.CreateLike(ctx, like("l1", "someone-else", base))
	require.NoError(t, err)

	page1, next, err := repo.GetLikers(ctx, "r", nil, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "l3", page1[0].LikerID)
	assert.Equal(t, "l2", page1[1].LikerID)
	require.NotNil(t, next)

	page2, next, err := repo.GetLikers(ctx, "r", next, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "l1", page2[0].LikerID)
	assert.Nil(t, next)

	count, err := repo.CountLikers(ctx, "r")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

// TestGetLikers_SameMillisecondPageBoundary pages one row at a time through
// likes whose timestamps differ only below the millisecond, on a DB that
// keeps full clock precision.
func TestGetLikers_SameMillisecondPageBoundary(t *testing.T) {
	ctx := context.Background()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(database))
	repo := repository.NewDecisionRepository(database)

	base := time.Date(2024, 8, 1, 10, 0, 0, 123_000_000, time.UTC)
	for _, l := range []*db.Decision{
		like("x", "r", base.Add(500*time.Microsecond)),
		like("y", "r", base.Add(300*time.Microsecond)),
		like("z", "r", base.Add(-time.Second)),
	} {
		_, err := repo.CreateLike(ctx, l)
		require.NoError(t, err)
	}

	var seen []string
	var token *string
	for i := 0; i < 5; i++ {
		page, next, err := repo.GetLikers(ctx, "r", token, 1)
		require.NoError(t, err)
		for _, d := range page {
			seen = append(seen, d.LikerID)
		}
		if next == nil {
			break
		}
		token = next
	}
	assert.ElementsMatch(t, []string{"x", "y", "z"}, seen)
	assert.Len(t, seen, 3)
	assert.Equal(t, "z", seen[2])
}

func TestGetLikers_BadToken(t *testing.T) {
	repo := repository.NewDecisionRepository(setupTestDB(t))

	bad := "!!"
	_, _, err := repo.GetLikers(context.Background(), "r", &bad, 2)
	assert.Error(t, err)
}

func TestGetNewLikers(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewDecisionRepository(setupTestDB(t))

	// actor 1 liked 99, and 99 liked back → mutual
	_, _ = repo.CreateLike(ctx, &db.Decision{LikerID: "u1", LikedID: "u99"})
	_, _ = repo.CreateLike(ctx, &db.Decision{LikerID: "u99", LikedID: "u1"})

	// actor 2 liked 99, but not mutual
	_, _ = repo.CreateLike(ctx, &db.Decision{LikerID: "u2", LikedID: "u99"})

	decisions, _, err := repo.GetNewLikers(ctx, "u99", nil, 10)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "u2", decisions[0].LikerID)
}
