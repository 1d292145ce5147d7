package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"meno/internal/log"
	"meno/internal/media"
	"meno/internal/models"
	"meno/internal/repositories"
	"meno/internal/views"
)

// Audience tags accepted for content posts.
var audiences = map[string]bool{
	"for-any":         true,
	"for_grandmother": true,
	"for_grandfather": true,
	"for-kids":        true,
}

type ContentService struct {
	repo     repositories.ContentRepository
	images   ImageSaver
	notifier Notifier
	log      zerolog.Logger
}

func NewContentService(repo repositories.ContentRepository, images ImageSaver, notifier Notifier) *ContentService {
	return &ContentService{repo: repo, images: images, notifier: notifier, log: log.WithComponent("content")}
}

func (s *ContentService) Create(ctx context.Context, authorID int, title, audience string, photo io.Reader) (views.Content, error) {
	title = strings.TrimSpace(title)
	if title == "" || photo == nil {
		return views.Content{}, fmt.Errorf("title and photo are required: %w", ErrInvalid)
	}
	if audience == "" {
		audience = "for-any"
	}
	if !audiences[audience] {
		return views.Content{}, fmt.Errorf("unknown audience %q: %w", audience, ErrInvalid)
	}
	path, err := s.images.SaveImage(photo)
	if err != nil {
		if errors.Is(err, media.ErrBadImage) {
			return views.Content{}, fmt.Errorf("%v: %w", err, ErrInvalid)
		}
		return views.Content{}, fmt.Errorf("save photo: %w", err)
	}

	c := &models.Content{Title: title, Photo: path, Audience: audience, AuthorID: authorID}
	if err := s.repo.Create(ctx, c); err != nil {
		if rmErr := s.images.RemoveImage(path); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("path", path).Msg("remove orphaned photo")
		}
		return views.Content{}, repoErr(err, "create content")
	}
	return s.Get(ctx, c.ID, authorID)
}

// Get returns a content post. Archived posts are visible to their author only.
func (s *ContentService) Get(ctx context.Context, id, requesterID int) (views.Content, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return views.Content{}, repoErr(err, fmt.Sprintf("content %d", id))
	}
	if c.IsArchived && c.AuthorID != requesterID {
		return views.Content{}, fmt.Errorf("content %d: %w", id, ErrNotFound)
	}
	return views.NewContent(c), nil
}

// ToggleLike likes or unlikes a post. A new like on someone else's post
// notifies its author once the write has committed.
func (s *ContentService) ToggleLike(ctx context.Context, id, userID int) (views.LikeState, error) {
	res, err := s.repo.ToggleLike(ctx, id, userID)
	if err != nil {
		return views.LikeState{}, repoErr(err, fmt.Sprintf("content %d", id))
	}
	if res.Notification != nil {
		s.notifier.Notify(ctx, res.Notification)
	}
	return views.LikeState{Liked: res.Liked}, nil
}

// ToggleArchive flips the archived flag. Only the author may do it.
func (s *ContentService) ToggleArchive(ctx context.Context, id, requesterID int) (views.Content, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return views.Content{}, repoErr(err, fmt.Sprintf("content %d", id))
	}
	if c.AuthorID != requesterID {
		return views.Content{}, fmt.Errorf("content %d: %w", id, ErrForbidden)
	}
	if err := s.repo.SetArchived(ctx, id, !c.IsArchived); err != nil {
		return views.Content{}, repoErr(err, fmt.Sprintf("content %d", id))
	}
	c.IsArchived = !c.IsArchived
	return views.NewContent(c), nil
}

// ListByAuthor returns the author's visible posts, newest first.
func (s *ContentService) ListByAuthor(ctx context.Context, authorID int) ([]views.Content, error) {
	rows, err := s.repo.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	out := make([]views.Content, 0, len(rows))
	for _, c := range rows {
		out = append(out, views.NewContent(c))
	}
	return out, nil
}

// Delete removes a post and its stored photo. Only the author may do it.
func (s *ContentService) Delete(ctx context.Context, id, requesterID int) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return repoErr(err, fmt.Sprintf("content %d", id))
	}
	if c.AuthorID != requesterID {
		return fmt.Errorf("content %d: %w", id, ErrForbidden)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return repoErr(err, fmt.Sprintf("content %d", id))
	}
	if err := s.images.RemoveImage(c.Photo); err != nil {
		s.log.Warn().Err(err).Str("path", c.Photo).Msg("remove deleted post photo")
	}
	s.log.Info().Int("content_id", id).Msg("content deleted")
	return nil
}
