package repotest

import (
	"context"
	"fmt"
	"sort"

	"meno/internal/models"
	"meno/internal/repositories"
)

type chatRepo struct{ s *Store }

func (r *chatRepo) Create(_ context.Context, authorID int, members, exclusive []int) (*models.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make([]int, 0, len(r.s.chats))
	for id := range r.s.chats {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		for _, m := range r.s.chats[id].Members {
			for _, u := range exclusive {
				if m == u {
					return nil, fmt.Errorf("chat %d already includes a participant: %w", id, repositories.ErrDuplicate)
				}
			}
		}
	}
	for _, m := range members {
		if _, ok := r.s.users[m]; !ok {
			return nil, repositories.ErrNotFound
		}
	}
	chat := &models.Chat{ID: r.s.nextID(), AuthorID: authorID, Members: append([]int(nil), members...)}
	chat.CreatedAt = r.s.now()
	sort.Ints(chat.Members)
	r.s.chats[chat.ID] = chat
	cp := *chat
	cp.Members = append([]int(nil), chat.Members...)
	return &cp, nil
}

func (r *chatRepo) Get(_ context.Context, chatID int) (*models.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	chat, ok := r.s.chats[chatID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *chat
	cp.Members = append([]int(nil), chat.Members...)
	return &cp, nil
}

func (r *chatRepo) Delete(_ context.Context, chatID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.chats[chatID]; !ok {
		return repositories.ErrNotFound
	}
	for id, it := range r.s.shares {
		if it.ChatID == chatID {
			delete(r.s.shares, id)
		}
	}
	for id, m := range r.s.messages {
		if m.ChatID == chatID {
			delete(r.s.messages, id)
		}
	}
	delete(r.s.chats, chatID)
	return nil
}

func (r *chatRepo) IsMember(_ context.Context, chatID, userID int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	chat, ok := r.s.chats[chatID]
	if !ok {
		return false, nil
	}
	for _, m := range chat.Members {
		if m == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *chatRepo) ListUserChats(ctx context.Context, userID int) ([]*models.Chat, error) {
	r.s.mu.Lock()
	ids := make([]int, 0)
	for id, chat := range r.s.chats {
		for _, m := range chat.Members {
			if m == userID {
				ids = append(ids, id)
				break
			}
		}
	}
	r.s.mu.Unlock()
	sort.Ints(ids)
	out := make([]*models.Chat, 0, len(ids))
	for _, id := range ids {
		chat, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, chat)
	}
	return out, nil
}

func (r *chatRepo) Participants(_ context.Context, chatID int) ([]models.UserSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	chat, ok := r.s.chats[chatID]
	if !ok {
		return nil, nil
	}
	out := make([]models.UserSummary, 0, len(chat.Members))
	for _, m := range chat.Members {
		out = append(out, r.s.summary(m))
	}
	return out, nil
}

func (r *chatRepo) CreateMessage(_ context.Context, msg *models.ChatMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.chats[msg.ChatID]; !ok {
		return repositories.ErrNotFound
	}
	msg.ID = r.s.nextID()
	msg.CreatedAt = r.s.now()
	msg.Author = r.s.summary(msg.AuthorID)
	cp := *msg
	r.s.messages[msg.ID] = &cp
	return nil
}

func (r *chatRepo) GetMessage(_ context.Context, messageID int) (*models.ChatMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[messageID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *chatRepo) DeleteMessage(_ context.Context, messageID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.messages[messageID]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.messages, messageID)
	return nil
}

func (r *chatRepo) ListMessages(_ context.Context, chatID int) ([]*models.ChatMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.ChatMessage
	for _, m := range r.s.messages {
		if m.ChatID == chatID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *chatRepo) CreateShare(_ context.Context, item *models.SharedItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item.ID = r.s.nextID()
	item.CreatedAt = r.s.now()
	cp := *item
	r.s.shares[item.ID] = &cp
	return nil
}

func (r *chatRepo) GetShare(_ context.Context, shareID int) (*models.SharedItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.shares[shareID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (r *chatRepo) DeleteShare(_ context.Context, shareID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.shares[shareID]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.shares, shareID)
	return nil
}

// listShares returns the chat's shares of kind, newest first, skipping
// items for which fill reports false.
func (r *chatRepo) listShares(chatID int, kind models.ShareKind, fill func(it *models.SharedItem) bool) []*models.SharedItem {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.SharedItem
	for _, it := range r.s.shares {
		if it.ChatID != chatID || it.Kind != kind {
			continue
		}
		cp := *it
		cp.Sender = r.s.summary(it.SenderID)
		if !fill(&cp) {
			continue
		}
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *chatRepo) ListSharedContents(_ context.Context, chatID int) ([]*models.SharedItem, error) {
	return r.listShares(chatID, models.ShareContent, func(it *models.SharedItem) bool {
		c, ok := r.s.contents[it.TargetID]
		if !ok || c.IsArchived {
			return false
		}
		cp := *c
		cp.Author = r.s.summary(c.AuthorID)
		it.Content = &cp
		return true
	}), nil
}

func (r *chatRepo) ListSharedReels(_ context.Context, chatID int) ([]*models.SharedItem, error) {
	return r.listShares(chatID, models.ShareReel, func(it *models.SharedItem) bool {
		rl, ok := r.s.reels[it.TargetID]
		if !ok || rl.IsArchived {
			return false
		}
		cp := *rl
		cp.Owner = r.s.summary(rl.UserID)
		it.Reel = &cp
		return true
	}), nil
}

func (r *chatRepo) ListSharedUsers(_ context.Context, chatID int) ([]*models.SharedItem, error) {
	return r.listShares(chatID, models.ShareUser, func(it *models.SharedItem) bool {
		if _, ok := r.s.users[it.TargetID]; !ok {
			return false
		}
		u := r.s.summary(it.TargetID)
		it.User = &u
		return true
	}), nil
}
