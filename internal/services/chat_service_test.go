package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meno/internal/models"
	"meno/internal/realtime"
	"meno/internal/repositories"
	"meno/internal/views"
)

func TestCreateChatAddsRequester(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	a, b := e.store.AddUser("ann"), e.store.AddUser("bob")

	chat, err := e.chats.CreateChat(ctx, a.ID, []int{b.ID, b.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{a.ID, b.ID}, chat.Participants)

	list, err := e.chats.ListUserChats(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, chat.ID, list[0].ID)
}

func TestCreateChatErrors(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	a, b, c := e.store.AddUser("ann"), e.store.AddUser("bob"), e.store.AddUser("cat")

	_, err := e.chats.CreateChat(ctx, a.ID, nil)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = e.chats.CreateChat(ctx, a.ID, []int{404})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.chats.CreateChat(ctx, a.ID, []int{b.ID})
	require.NoError(t, err)

	// Overlap is coarse: any shared participant conflicts, even with a different set.
	_, err = e.chats.CreateChat(ctx, c.ID, []int{b.ID})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestConcurrentCreateChatSharingParticipantConflicts(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	bob := e.store.AddUser("bob")
	requesters := make([]int, 8)
	for i := range requesters {
		requesters[i] = e.store.AddUser(fmt.Sprintf("user%d", i)).ID
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for _, id := range requesters {
		wg.Add(1)
		go func(requester int) {
			defer wg.Done()
			_, err := e.chats.CreateChat(ctx, requester, []int{bob.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, len(requesters)-1, conflicts)
	chats, err := e.chats.ListUserChats(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestSendMessageByNonMemberIsForbidden(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	a, b, outsider := e.store.AddUser("ann"), e.store.AddUser("bob"), e.store.AddUser("eve")
	chat, err := e.chats.CreateChat(ctx, a.ID, []int{b.ID})
	require.NoError(t, err)

	_, err = e.chats.SendMessage(ctx, chat.ID, outsider.ID, "let me in", nil)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Zero(t, e.store.MessageCount(chat.ID))
	assert.Zero(t, e.hub.total())
}

func TestSendMessageToMissingChat(t *testing.T) {
	e := newEnv()
	a := e.store.AddUser("ann")
	_, err := e.chats.SendMessage(context.Background(), 999, a.ID, "hi", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSendMessageBroadcastsStoredAuthor(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	a, b := e.store.AddUser("ann"), e.store.AddUser("bob")
	chat, err := e.chats.CreateChat(ctx, a.ID, []int{b.ID})
	require.NoError(t, err)

	msg, err := e.chats.SendMessage(ctx, chat.ID, b.ID, "  hello  ", bytes.NewReader([]byte("png")))
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "bob", msg.Author)
	require.NotNil(t, msg.ImgFile)
	assert.Equal(t, 1, e.images.saved)
	assert.Equal(t, 1, e.store.MessageCount(chat.ID))

	got := e.hub.to(realtime.ChatKey(chat.ID))
	require.Len(t, got, 1)
	assert.Equal(t, msg, got[0])
}

// failingMessages refuses every message insert, as if the chat vanished
// between the membership check and the write.
type failingMessages struct {
	repositories.ChatRepository
}

func (failingMessages) CreateMessage(context.Context, *models.ChatMessage) error {
	return fmt.Errorf("chat is gone: %w", repositories.ErrNotFound)
}

func TestSendMessageRemovesImageWhenInsertFails(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	a, b := e.store.AddUser("ann"), e.store.AddUser("bob")
	chat, err := e.chats.CreateChat(ctx, a.ID, []int{b.ID})
	require.NoError(t, err)

	svc := NewChatService(failingMessages{e.store.Chats()}, e.store.Users(), e.store.Contents(), e.store.Reels(), e.images, e.hub)
	_, err = svc.SendMessage(ctx, chat.ID, a.ID, "pic", bytes.NewReader([]byte("png")))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, e.images.saved)
	assert.Equal(t, []string{"/media/images/test.jpg"}, e.images.removed)
	assert.Zero(t, e.hub.total())

	_, err = svc.SendMessage(ctx, chat.ID, a.ID, "text only", nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, e.images.removed, 1, "nothing to remove without an image")
}

func TestSendMessageValidation(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	a, b := e.store.AddUser("ann"), e.store.AddUser("bob")
	chat, err := e.chats.CreateChat(ctx, a.ID, []int{b.ID})
	require.NoError(t, err)

	_, err = e.chats.SendMessage(ctx, chat.ID, a.ID, "   ", nil)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = e.chats.SendMessage(ctx, chat.ID, a.ID, "pic", bytes.NewReader([]byte("bad")))
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Zero(t, e.store.MessageCount(chat.ID))
}

func TestSendContentRules(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	a, b := e.store.AddUser("ann"), e.store.AddUser("bob")
	chat, err := e.chats.CreateChat(ctx, a.ID, []int{b.ID})
	require.NoError(t, err)

	post := &models.Content{Title: "sunset", Photo: "p.jpg", Audience: "for-any", AuthorID: b.ID}
	require.NoError(t, e.store.Contents().Create(ctx, post))
	note := "look"

	shared, err := e.chats.SendContent(ctx, chat.ID, a.ID, post.ID, &note)
	require.NoError(t, err)
	assert.Equal(t, "sunset", shared.ContentTitle)
	assert.Equal(t, "ann", shared.SenderUsername)
	assert.Equal(t, "bob", shared.CreatorUsername)
	assert.Len(t, e.hub.to(realtime.ChatKey(chat.ID)), 1)

	_, err = e.chats.SendContent(ctx, chat.ID, a.ID, 12345, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, e.store.Contents().SetArchived(ctx, post.ID, true))
	_, err = e.chats.SendContent(ctx, chat.ID, a.ID, post.ID, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	outsider := e.store.AddUser("eve")
	_, err = e.chats.SendContent(ctx, chat.ID, outsider.ID, post.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 1, e.store.ShareCount(chat.ID))
}

func TestSendReelAndUser(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	a, b, c := e.store.AddUser("ann"), e.store.AddUser("bob"), e.store.AddUser("cat")
	chat, err := e.chats.CreateChat(ctx, a.ID, []int{b.ID})
	require.NoError(t, err)

	reel := &models.Reel{Title: "jump", Video: "v.mp4", UserID: c.ID}
	require.NoError(t, e.store.Reels().Create(ctx, reel))

	r, err := e.chats.SendReel(ctx, chat.ID, b.ID, reel.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "jump", r.ReelTitle)

	u, err := e.chats.SendUser(ctx, chat.ID, b.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "cat", u.User.Username)

	_, err = e.chats.SendUser(ctx, chat.ID, b.ID, 777)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, e.store.Reels().SetArchived(ctx, reel.ID, true))
	_, err = e.chats.SendReel(ctx, chat.ID, b.ID, reel.ID, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMessageOnlyByAuthor(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	a, b := e.store.AddUser("ann"), e.store.AddUser("bob")
	chat, err := e.chats.CreateChat(ctx, a.ID, []int{b.ID})
	require.NoError(t, err)
	msg, err := e.chats.SendMessage(ctx, chat.ID, a.ID, "mine", nil)
	require.NoError(t, err)

	err = e.chats.DeleteMessage(ctx, msg.ID, b.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, e.store.MessageCount(chat.ID))

	require.NoError(t, e.chats.DeleteMessage(ctx, msg.ID, a.ID))
	assert.Zero(t, e.store.MessageCount(chat.ID))
	assert.ErrorIs(t, e.chats.DeleteMessage(ctx, msg.ID, a.ID), ErrNotFound)
}

func TestDeleteShareOnlyBySender(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	a, b := e.store.AddUser("ann"), e.store.AddUser("bob")
	chat, err := e.chats.CreateChat(ctx, a.ID, []int{b.ID})
	require.NoError(t, err)
	shared, err := e.chats.SendUser(ctx, chat.ID, a.ID, b.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, e.chats.DeleteShare(ctx, shared.ID, b.ID), ErrNotFound)
	require.NoError(t, e.chats.DeleteShare(ctx, shared.ID, a.ID))
	assert.Zero(t, e.store.ShareCount(chat.ID))
}

func TestDeleteChatCascades(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	a, b, outsider := e.store.AddUser("ann"), e.store.AddUser("bob"), e.store.AddUser("eve")
	chat, err := e.chats.CreateChat(ctx, a.ID, []int{b.ID})
	require.NoError(t, err)
	_, err = e.chats.SendMessage(ctx, chat.ID, a.ID, "one", nil)
	require.NoError(t, err)
	_, err = e.chats.SendUser(ctx, chat.ID, b.ID, a.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, e.chats.DeleteChat(ctx, chat.ID, outsider.ID), ErrForbidden)

	require.NoError(t, e.chats.DeleteChat(ctx, chat.ID, b.ID))
	assert.Zero(t, e.store.MessageCount(chat.ID))
	assert.Zero(t, e.store.ShareCount(chat.ID))

	_, err = e.chats.GetChat(ctx, chat.ID, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetChatAssemblesParts(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	a, b := e.store.AddUser("ann"), e.store.AddUser("bob")
	chat, err := e.chats.CreateChat(ctx, a.ID, []int{b.ID})
	require.NoError(t, err)

	first := &models.Content{Title: "first", AuthorID: a.ID}
	second := &models.Content{Title: "second", AuthorID: a.ID}
	hidden := &models.Content{Title: "hidden", AuthorID: a.ID}
	for _, c := range []*models.Content{first, second, hidden} {
		require.NoError(t, e.store.Contents().Create(ctx, c))
	}
	_, err = e.chats.SendMessage(ctx, chat.ID, a.ID, "m1", nil)
	require.NoError(t, err)
	_, err = e.chats.SendMessage(ctx, chat.ID, b.ID, "m2", nil)
	require.NoError(t, err)
	for _, c := range []*models.Content{first, hidden, second} {
		_, err = e.chats.SendContent(ctx, chat.ID, b.ID, c.ID, nil)
		require.NoError(t, err)
	}
	require.NoError(t, e.store.Contents().SetArchived(ctx, hidden.ID, true))

	_, err = e.chats.GetChat(ctx, chat.ID, e.store.AddUser("eve").ID)
	assert.ErrorIs(t, err, ErrForbidden)

	d, err := e.chats.GetChat(ctx, chat.ID, a.ID)
	require.NoError(t, err)
	assert.Len(t, d.Participants, 2)
	require.Len(t, d.Messages, 2)
	assert.Equal(t, "m1", d.Messages[0].Content)
	assert.Equal(t, "m2", d.Messages[1].Content)

	titles := []string{}
	for _, c := range d.Contents {
		titles = append(titles, c.ContentTitle)
	}
	assert.Equal(t, []string{"second", "first"}, titles)
	assert.Equal(t, []views.SharedReel{}, d.Reels)
}

func TestEnsureMember(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	a, b := e.store.AddUser("ann"), e.store.AddUser("bob")
	chat, err := e.chats.CreateChat(ctx, a.ID, []int{b.ID})
	require.NoError(t, err)

	assert.NoError(t, e.chats.EnsureMember(ctx, chat.ID, b.ID))
	assert.ErrorIs(t, e.chats.EnsureMember(ctx, chat.ID, 555), ErrForbidden)
	assert.ErrorIs(t, e.chats.EnsureMember(ctx, 9999, a.ID), ErrNotFound)
}
