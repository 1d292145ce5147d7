package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meno/internal/realtime"
	"meno/internal/views"
)

func TestCommentOnContentNotifiesAuthor(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	author, fan := e.store.AddUser("ann"), e.store.AddUser("bob")
	post, err := e.contents.Create(ctx, author.ID, "sunset", "for-any", bytes.NewReader([]byte("img")))
	require.NoError(t, err)

	c, err := e.comments.CommentContent(ctx, post.ID, fan.ID, "  nice light ")
	require.NoError(t, err)
	assert.Equal(t, "nice light", c.Title)
	assert.Equal(t, "bob", c.User)
	require.NotNil(t, c.ContentID)
	assert.Equal(t, post.ID, *c.ContentID)

	pushed := e.hub.to(realtime.UserKey(author.ID))
	require.Len(t, pushed, 1)
	n := pushed[0].(views.Notification)
	assert.Equal(t, "comment", n.Type)
	require.NotNil(t, n.Content)
	assert.Equal(t, "sunset", n.Content.ContentTitle)

	_, err = e.comments.CommentContent(ctx, post.ID, author.ID, "thanks")
	require.NoError(t, err)
	assert.Len(t, e.hub.to(realtime.UserKey(author.ID)), 1, "own post is not notified")
	assert.Equal(t, 1, e.store.NotificationCount(author.ID))

	list, err := e.comments.ListForContent(ctx, post.ID, fan.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "thanks", list[0].Title, "newest first")
	assert.Equal(t, "nice light", list[1].Title)

	got, err := e.contents.Get(ctx, post.ID, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CommentCount)
}

func TestCommentOnReel(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	owner, fan := e.store.AddUser("ann"), e.store.AddUser("bob")
	reel, err := e.reels.Create(ctx, owner.ID, "jump", "v.mp4", nil)
	require.NoError(t, err)

	_, err = e.comments.CommentReel(ctx, reel.ID, fan.ID, "wow")
	require.NoError(t, err)
	pushed := e.hub.to(realtime.UserKey(owner.ID))
	require.Len(t, pushed, 1)
	n := pushed[0].(views.Notification)
	assert.Equal(t, "comment", n.Type)
	require.NotNil(t, n.VideoReels)
	assert.Equal(t, "jump", n.VideoReels.ReelsTitle)

	list, err := e.comments.ListForReel(ctx, reel.ID, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].ContentID)
}

func TestCommentErrors(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	author, fan := e.store.AddUser("ann"), e.store.AddUser("bob")
	post, err := e.contents.Create(ctx, author.ID, "p", "for-any", bytes.NewReader([]byte("img")))
	require.NoError(t, err)

	_, err = e.comments.CommentContent(ctx, post.ID, fan.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = e.comments.CommentContent(ctx, 4242, fan.ID, "hi")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.comments.CommentReel(ctx, 4242, fan.ID, "hi")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.comments.ListForReel(ctx, 4242, fan.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.contents.ToggleArchive(ctx, post.ID, author.ID)
	require.NoError(t, err)
	_, err = e.comments.CommentContent(ctx, post.ID, fan.ID, "hi")
	assert.ErrorIs(t, err, ErrNotFound, "archived posts are hidden")
	_, err = e.comments.CommentContent(ctx, post.ID, author.ID, "note to self")
	assert.NoError(t, err)
	assert.Zero(t, e.hub.total())
}

func TestCommentDeleteOnlyByWriter(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	author, fan := e.store.AddUser("ann"), e.store.AddUser("bob")
	post, err := e.contents.Create(ctx, author.ID, "p", "for-any", bytes.NewReader([]byte("img")))
	require.NoError(t, err)
	c, err := e.comments.CommentContent(ctx, post.ID, fan.ID, "hi")
	require.NoError(t, err)

	assert.ErrorIs(t, e.comments.Delete(ctx, c.ID, author.ID), ErrNotFound)
	require.NoError(t, e.comments.Delete(ctx, c.ID, fan.ID))
	assert.ErrorIs(t, e.comments.Delete(ctx, c.ID, fan.ID), ErrNotFound)

	list, err := e.comments.ListForContent(ctx, post.ID, fan.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
