package services

import (
	"context"
	"fmt"
	"strings"

	"meno/internal/models"
	"meno/internal/repositories"
	"meno/internal/views"
)

type ReelService struct {
	repo     repositories.ReelRepository
	notifier Notifier
}

func NewReelService(repo repositories.ReelRepository, notifier Notifier) *ReelService {
	return &ReelService{repo: repo, notifier: notifier}
}

func (s *ReelService) Create(ctx context.Context, userID int, title, video string, place *string) (views.Reel, error) {
	title, video = strings.TrimSpace(title), strings.TrimSpace(video)
	if title == "" || video == "" {
		return views.Reel{}, fmt.Errorf("title and video are required: %w", ErrInvalid)
	}
	r := &models.Reel{Title: title, Video: video, Place: place, UserID: userID}
	if err := s.repo.Create(ctx, r); err != nil {
		return views.Reel{}, repoErr(err, "create reel")
	}
	return s.Get(ctx, r.ID, userID)
}

// Get returns a reel. Archived reels are visible to their owner only.
func (s *ReelService) Get(ctx context.Context, id, requesterID int) (views.Reel, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return views.Reel{}, repoErr(err, fmt.Sprintf("reel %d", id))
	}
	if r.IsArchived && r.UserID != requesterID {
		return views.Reel{}, fmt.Errorf("reel %d: %w", id, ErrNotFound)
	}
	return views.NewReel(r), nil
}

func (s *ReelService) ToggleLike(ctx context.Context, id, userID int) (views.LikeState, error) {
	res, err := s.repo.ToggleLike(ctx, id, userID)
	if err != nil {
		return views.LikeState{}, repoErr(err, fmt.Sprintf("reel %d", id))
	}
	if res.Notification != nil {
		s.notifier.Notify(ctx, res.Notification)
	}
	return views.LikeState{Liked: res.Liked}, nil
}

func (s *ReelService) ToggleArchive(ctx context.Context, id, requesterID int) (views.Reel, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return views.Reel{}, repoErr(err, fmt.Sprintf("reel %d", id))
	}
	if r.UserID != requesterID {
		return views.Reel{}, fmt.Errorf("reel %d: %w", id, ErrForbidden)
	}
	if err := s.repo.SetArchived(ctx, id, !r.IsArchived); err != nil {
		return views.Reel{}, repoErr(err, fmt.Sprintf("reel %d", id))
	}
	r.IsArchived = !r.IsArchived
	return views.NewReel(r), nil
}

func (s *ReelService) ListByOwner(ctx context.Context, userID int) ([]views.Reel, error) {
	rows, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reels: %w", err)
	}
	out := make([]views.Reel, 0, len(rows))
	for _, r := range rows {
		out = append(out, views.NewReel(r))
	}
	return out, nil
}

// Delete removes a reel with its likes and comments. Only the owner may do it.
func (s *ReelService) Delete(ctx context.Context, id, requesterID int) error {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return repoErr(err, fmt.Sprintf("reel %d", id))
	}
	if r.UserID != requesterID {
		return fmt.Errorf("reel %d: %w", id, ErrForbidden)
	}
	return repoErr(s.repo.Delete(ctx, id), fmt.Sprintf("reel %d", id))
}
