package services

import (
	"bytes"
	"io"
	"sync"

	"meno/internal/media"
	"meno/internal/realtime"
	"meno/internal/repositories/repotest"
)

type sent struct {
	key     realtime.Key
	payload any
}

type recordingHub struct {
	mu   sync.Mutex
	sent []sent
}

func (h *recordingHub) Send(key realtime.Key, payload any) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sent{key, payload})
	return 1, nil
}

func (h *recordingHub) to(key realtime.Key) []any {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []any
	for _, s := range h.sent {
		if s.key == key {
			out = append(out, s.payload)
		}
	}
	return out
}

func (h *recordingHub) total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sent)
}

type fakeImages struct {
	saved   int
	removed []string
}

func (f *fakeImages) SaveImage(r io.Reader) (string, error) {
	data, _ := io.ReadAll(r)
	if bytes.Equal(data, []byte("bad")) {
		return "", media.ErrBadImage
	}
	f.saved++
	return "/media/images/test.jpg", nil
}

func (f *fakeImages) RemoveImage(path string) error {
	f.removed = append(f.removed, path)
	return nil
}

type env struct {
	store    *repotest.Store
	hub      *recordingHub
	images   *fakeImages
	notify   *NotificationService
	chats    *ChatService
	contents *ContentService
	reels    *ReelService
	comments *CommentService
	stories  *StoryService
}

func newEnv() *env {
	s := repotest.NewStore()
	hub := &recordingHub{}
	images := &fakeImages{}
	notify := NewNotificationService(s.Notifications(), hub)
	return &env{
		store:    s,
		hub:      hub,
		images:   images,
		notify:   notify,
		chats:    NewChatService(s.Chats(), s.Users(), s.Contents(), s.Reels(), images, hub),
		contents: NewContentService(s.Contents(), images, notify),
		reels:    NewReelService(s.Reels(), notify),
		comments: NewCommentService(s.Comments(), s.Contents(), s.Reels(), s.Users(), notify),
		stories:  NewStoryService(s.Stories(), s.Users()),
	}
}
