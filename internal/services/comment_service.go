package services

import (
	"context"
	"fmt"
	"strings"

	"meno/internal/models"
	"meno/internal/repositories"
	"meno/internal/views"
)

// CommentService handles comments on content posts and reels. A comment on
// someone else's post notifies its owner after the write commits.
type CommentService struct {
	comments repositories.CommentRepository
	contents repositories.ContentRepository
	reels    repositories.ReelRepository
	users    repositories.UserRepository
	notifier Notifier
}

func NewCommentService(
	comments repositories.CommentRepository,
	contents repositories.ContentRepository,
	reels repositories.ReelRepository,
	users repositories.UserRepository,
	notifier Notifier,
) *CommentService {
	return &CommentService{comments: comments, contents: contents, reels: reels, users: users, notifier: notifier}
}

func (s *CommentService) CommentContent(ctx context.Context, contentID, userID int, body string) (views.Comment, error) {
	if err := s.contentVisible(ctx, contentID, userID); err != nil {
		return views.Comment{}, err
	}
	return s.create(ctx, &models.Comment{UserID: userID, ContentID: &contentID, Body: body})
}

func (s *CommentService) CommentReel(ctx context.Context, reelID, userID int, body string) (views.Comment, error) {
	if err := s.reelVisible(ctx, reelID, userID); err != nil {
		return views.Comment{}, err
	}
	return s.create(ctx, &models.Comment{UserID: userID, ReelID: &reelID, Body: body})
}

func (s *CommentService) create(ctx context.Context, c *models.Comment) (views.Comment, error) {
	c.Body = strings.TrimSpace(c.Body)
	if c.Body == "" {
		return views.Comment{}, fmt.Errorf("comment is empty: %w", ErrInvalid)
	}
	n, err := s.comments.Create(ctx, c)
	if err != nil {
		return views.Comment{}, repoErr(err, "create comment")
	}
	if n != nil {
		s.notifier.Notify(ctx, n)
	}
	if u, err := s.users.GetByID(ctx, c.UserID); err == nil {
		c.Author = u.Summary()
	}
	return views.NewComment(c), nil
}

// ListForContent returns the post's comments, newest first.
func (s *CommentService) ListForContent(ctx context.Context, contentID, requesterID int) ([]views.Comment, error) {
	if err := s.contentVisible(ctx, contentID, requesterID); err != nil {
		return nil, err
	}
	rows, err := s.comments.ListForContent(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return commentViews(rows), nil
}

func (s *CommentService) ListForReel(ctx context.Context, reelID, requesterID int) ([]views.Comment, error) {
	if err := s.reelVisible(ctx, reelID, requesterID); err != nil {
		return nil, err
	}
	rows, err := s.comments.ListForReel(ctx, reelID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return commentViews(rows), nil
}

// Delete removes the caller's own comment. Anyone else's is reported missing.
func (s *CommentService) Delete(ctx context.Context, id, userID int) error {
	ok, err := s.comments.Delete(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if !ok {
		return fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	return nil
}

// archived posts are hidden from everyone but their owner
func (s *CommentService) contentVisible(ctx context.Context, id, userID int) error {
	c, err := s.contents.Get(ctx, id)
	if err != nil {
		return repoErr(err, fmt.Sprintf("content %d", id))
	}
	if c.IsArchived && c.AuthorID != userID {
		return fmt.Errorf("content %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *CommentService) reelVisible(ctx context.Context, id, userID int) error {
	r, err := s.reels.Get(ctx, id)
	if err != nil {
		return repoErr(err, fmt.Sprintf("reel %d", id))
	}
	if r.IsArchived && r.UserID != userID {
		return fmt.Errorf("reel %d: %w", id, ErrNotFound)
	}
	return nil
}

func commentViews(rows []*models.Comment) []views.Comment {
	out := make([]views.Comment, 0, len(rows))
	for _, c := range rows {
		out = append(out, views.NewComment(c))
	}
	return out
}
