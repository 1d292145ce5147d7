package repotest

import (
	"context"
	"sort"
	"time"

	"meno/internal/models"
	"meno/internal/repositories"
)

type contentRepo struct{ s *Store }

func (r *contentRepo) Create(_ context.Context, c *models.Content) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.nextID()
	c.CreatedAt = r.s.now()
	cp := *c
	r.s.contents[c.ID] = &cp
	return nil
}

func (r *contentRepo) Get(_ context.Context, id int) (*models.Content, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contents[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r.s.contentView(c), nil
}

// contentView must be called with s.mu held.
func (s *Store) contentView(c *models.Content) *models.Content {
	cp := *c
	cp.Author = s.summary(c.AuthorID)
	for k := range s.contentLikes {
		if k.a == c.ID {
			cp.LikeCount++
		}
	}
	for _, m := range s.comments {
		if sameRef(m.ContentID, &c.ID) {
			cp.CommentCount++
		}
	}
	return &cp
}

func (r *contentRepo) ListByAuthor(_ context.Context, authorID int) ([]*models.Content, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Content
	for _, c := range r.s.contents {
		if c.AuthorID == authorID && !c.IsArchived {
			out = append(out, r.s.contentView(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *contentRepo) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.contents[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.contents, id)
	r.s.dropRefs(r.s.contentLikes, &id, nil)
	return nil
}

func (r *contentRepo) SetArchived(_ context.Context, id int, archived bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contents[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.IsArchived = archived
	return nil
}

func (r *contentRepo) ToggleLike(_ context.Context, contentID, userID int) (*repositories.LikeResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contents[contentID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	ref := contentID
	return r.s.toggleLike(r.s.contentLikes, c.AuthorID, userID, &models.Notification{ContentID: &ref}), nil
}

type reelRepo struct{ s *Store }

func (r *reelRepo) Create(_ context.Context, rl *models.Reel) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rl.ID = r.s.nextID()
	rl.CreatedAt = r.s.now()
	cp := *rl
	r.s.reels[rl.ID] = &cp
	return nil
}

func (r *reelRepo) Get(_ context.Context, id int) (*models.Reel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rl, ok := r.s.reels[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r.s.reelView(rl), nil
}

// reelView must be called with s.mu held.
func (s *Store) reelView(rl *models.Reel) *models.Reel {
	cp := *rl
	cp.Owner = s.summary(rl.UserID)
	for k := range s.reelLikes {
		if k.a == rl.ID {
			cp.LikeCount++
		}
	}
	for _, m := range s.comments {
		if sameRef(m.ReelID, &rl.ID) {
			cp.CommentCount++
		}
	}
	return &cp
}

func (r *reelRepo) ListByOwner(_ context.Context, userID int) ([]*models.Reel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Reel
	for _, rl := range r.s.reels {
		if rl.UserID == userID && !rl.IsArchived {
			out = append(out, r.s.reelView(rl))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *reelRepo) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reels[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.reels, id)
	r.s.dropRefs(r.s.reelLikes, nil, &id)
	return nil
}

func (r *reelRepo) SetArchived(_ context.Context, id int, archived bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rl, ok := r.s.reels[id]
	if !ok {
		return repositories.ErrNotFound
	}
	rl.IsArchived = archived
	return nil
}

func (r *reelRepo) ToggleLike(_ context.Context, reelID, userID int) (*repositories.LikeResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rl, ok := r.s.reels[reelID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	ref := reelID
	return r.s.toggleLike(r.s.reelLikes, rl.UserID, userID, &models.Notification{ReelID: &ref}), nil
}

// toggleLike must be called with s.mu held. tmpl carries the target reference.
func (s *Store) toggleLike(likes map[pair]bool, ownerID, userID int, tmpl *models.Notification) *repositories.LikeResult {
	targetID := 0
	if tmpl.ContentID != nil {
		targetID = *tmpl.ContentID
	} else {
		targetID = *tmpl.ReelID
	}
	key := pair{targetID, userID}
	if likes[key] {
		delete(likes, key)
		for id, n := range s.notifications {
			if n.UserID == ownerID && n.SenderID == userID && n.Type == models.NotificationLike &&
				sameRef(n.ContentID, tmpl.ContentID) && sameRef(n.ReelID, tmpl.ReelID) {
				delete(s.notifications, id)
			}
		}
		return &repositories.LikeResult{}
	}
	likes[key] = true
	if ownerID == userID {
		return &repositories.LikeResult{Liked: true}
	}
	n := *tmpl
	n.ID = s.nextID()
	n.UserID = ownerID
	n.SenderID = userID
	n.Type = models.NotificationLike
	n.CreatedAt = s.now()
	s.notifications[n.ID] = &n
	cp := n
	return &repositories.LikeResult{Liked: true, Notification: &cp}
}

// dropRefs mimics ON DELETE CASCADE for a removed post. Must be called with s.mu held.
func (s *Store) dropRefs(likes map[pair]bool, contentID, reelID *int) {
	targetID := 0
	if contentID != nil {
		targetID = *contentID
	} else {
		targetID = *reelID
	}
	for k := range likes {
		if k.a == targetID {
			delete(likes, k)
		}
	}
	for id, m := range s.comments {
		if (contentID != nil && sameRef(m.ContentID, contentID)) || (reelID != nil && sameRef(m.ReelID, reelID)) {
			delete(s.comments, id)
		}
	}
	for id, n := range s.notifications {
		if (contentID != nil && sameRef(n.ContentID, contentID)) || (reelID != nil && sameRef(n.ReelID, reelID)) {
			delete(s.notifications, id)
		}
	}
	for id, it := range s.shares {
		if (contentID != nil && it.Kind == models.ShareContent && it.TargetID == targetID) ||
			(reelID != nil && it.Kind == models.ShareReel && it.TargetID == targetID) {
			delete(s.shares, id)
		}
	}
}

func sameRef(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type notificationRepo struct{ s *Store }

func (r *notificationRepo) enrich(n *models.Notification) *models.Notification {
	cp := *n
	sender := r.s.summary(n.SenderID)
	cp.Sender = &sender
	if n.ContentID != nil {
		if c, ok := r.s.contents[*n.ContentID]; ok {
			cc := *c
			cp.Content = &cc
		}
	}
	if n.ReelID != nil {
		if rl, ok := r.s.reels[*n.ReelID]; ok {
			rc := *rl
			cp.Reel = &rc
		}
	}
	return &cp
}

func (r *notificationRepo) Get(_ context.Context, id int) (*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r.enrich(n), nil
}

func (r *notificationRepo) ListForUser(_ context.Context, userID int) ([]*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Notification
	for _, n := range r.s.notifications {
		if n.UserID == userID {
			out = append(out, r.enrich(n))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *notificationRepo) MarkRead(_ context.Context, id, userID int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.IsRead = true
	return true, nil
}

type storyRepo struct{ s *Store }

func (r *storyRepo) Create(_ context.Context, st *models.Story) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st.ID = r.s.nextID()
	if st.CreatedAt.IsZero() {
		st.CreatedAt = r.s.now()
	}
	cp := *st
	r.s.stories[st.ID] = &cp
	return nil
}

func (r *storyRepo) Get(_ context.Context, id int) (*models.Story, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.stories[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *st
	cp.Author = r.s.summary(st.AuthorID)
	return &cp, nil
}

func (r *storyRepo) ListFeed(_ context.Context, userID int, now time.Time) ([]*models.Story, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Story
	for _, st := range r.s.stories {
		if !st.DeleteAt.After(now) {
			continue
		}
		if st.AuthorID != userID && !r.s.subscriptions[pair{userID, st.AuthorID}] {
			continue
		}
		cp := *st
		cp.Author = r.s.summary(st.AuthorID)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *storyRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, st := range r.s.stories {
		if !st.DeleteAt.After(now) {
			delete(r.s.stories, id)
			n++
		}
	}
	return n, nil
}

func (r *storyRepo) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.stories[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.stories, id)
	return nil
}
