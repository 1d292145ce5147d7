package repotest

import (
	"context"
	"sort"

	"meno/internal/models"
	"meno/internal/repositories"
)

type commentRepo struct{ s *Store }

func (r *commentRepo) Create(_ context.Context, c *models.Comment) (*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var ownerID int
	if c.ContentID != nil {
		post, ok := r.s.contents[*c.ContentID]
		if !ok {
			return nil, repositories.ErrNotFound
		}
		ownerID = post.AuthorID
	} else {
		reel, ok := r.s.reels[*c.ReelID]
		if !ok {
			return nil, repositories.ErrNotFound
		}
		ownerID = reel.UserID
	}

	c.ID = r.s.nextID()
	c.CreatedAt = r.s.now()
	cp := *c
	r.s.comments[c.ID] = &cp
	if ownerID == c.UserID {
		return nil, nil
	}

	n := &models.Notification{ID: r.s.nextID(), UserID: ownerID, SenderID: c.UserID,
		ContentID: c.ContentID, ReelID: c.ReelID, Type: models.NotificationComment}
	n.CreatedAt = r.s.now()
	r.s.notifications[n.ID] = n
	out := *n
	return &out, nil
}

func (r *commentRepo) ListForContent(_ context.Context, contentID int) ([]*models.Comment, error) {
	return r.list(func(c *models.Comment) bool { return sameRef(c.ContentID, &contentID) }), nil
}

func (r *commentRepo) ListForReel(_ context.Context, reelID int) ([]*models.Comment, error) {
	return r.list(func(c *models.Comment) bool { return sameRef(c.ReelID, &reelID) }), nil
}

func (r *commentRepo) list(match func(*models.Comment) bool) []*models.Comment {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Comment
	for _, c := range r.s.comments {
		if match(c) {
			cp := *c
			cp.Author = r.s.summary(c.UserID)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *commentRepo) Delete(_ context.Context, id, userID int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comments[id]
	if !ok || c.UserID != userID {
		return false, nil
	}
	delete(r.s.comments, id)
	return true, nil
}
