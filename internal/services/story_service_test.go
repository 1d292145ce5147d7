package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meno/internal/repositories/repotest"
)

func TestStoryFeedAndSweep(t *testing.T) {
	store := repotest.NewStore()
	ctx := context.Background()
	svc := NewStoryService(store.Stories(), store.Users())
	clock := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	a, b, c := store.AddUser("ann"), store.AddUser("bob"), store.AddUser("cat")
	_, err := store.Users().Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)

	old, err := svc.Create(ctx, b.ID, "yesterday")
	require.NoError(t, err)
	assert.Equal(t, clock.Add(StoryTTL), old.DeleteAt)
	assert.Equal(t, "bob", old.Author)

	clock = clock.Add(20 * time.Hour)
	_, err = svc.Create(ctx, a.ID, "mine")
	require.NoError(t, err)
	_, err = svc.Create(ctx, c.ID, "stranger")
	require.NoError(t, err)

	feed, err := svc.Feed(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, "mine", feed[0].Content)
	assert.Equal(t, "yesterday", feed[1].Content)

	_, err = svc.Create(ctx, a.ID, "  ")
	assert.ErrorIs(t, err, ErrInvalid)

	clock = clock.Add(5 * time.Hour)
	n, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	feed, err = svc.Feed(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "mine", feed[0].Content)
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	store := repotest.NewStore()
	svc := NewStoryService(store.Stories(), store.Users())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestStoryDeleteOnlyByAuthor(t *testing.T) {
	store := repotest.NewStore()
	ctx := context.Background()
	svc := NewStoryService(store.Stories(), store.Users())
	a, b := store.AddUser("ann"), store.AddUser("bob")

	st, err := svc.Create(ctx, a.ID, "morning")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, st.ID, b.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, st.ID, a.ID))
	assert.ErrorIs(t, svc.Delete(ctx, st.ID, a.ID), ErrNotFound)

	feed, err := svc.Feed(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, feed)
}
