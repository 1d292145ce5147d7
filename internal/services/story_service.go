package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"meno/internal/log"
	"meno/internal/metrics"
	"meno/internal/models"
	"meno/internal/repositories"
	"meno/internal/views"
)

// StoryTTL is how long a story stays visible after it is posted.
const StoryTTL = 24 * time.Hour

type StoryService struct {
	repo  repositories.StoryRepository
	users repositories.UserRepository
	now   func() time.Time
	log   zerolog.Logger
}

func NewStoryService(repo repositories.StoryRepository, users repositories.UserRepository) *StoryService {
	return &StoryService{repo: repo, users: users, now: time.Now, log: log.WithComponent("stories")}
}

func (s *StoryService) Create(ctx context.Context, authorID int, body string) (views.Story, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return views.Story{}, fmt.Errorf("story content is required: %w", ErrInvalid)
	}
	now := s.now().UTC()
	st := &models.Story{AuthorID: authorID, Body: body, CreatedAt: now, DeleteAt: now.Add(StoryTTL)}
	if err := s.repo.Create(ctx, st); err != nil {
		return views.Story{}, repoErr(err, "create story")
	}
	if u, err := s.users.GetByID(ctx, authorID); err == nil {
		st.Author = u.Summary()
	}
	return views.NewStory(st), nil
}

// Feed lists unexpired stories from the user and everyone they follow, newest first.
func (s *StoryService) Feed(ctx context.Context, userID int) ([]views.Story, error) {
	rows, err := s.repo.ListFeed(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	out := make([]views.Story, 0, len(rows))
	for _, st := range rows {
		out = append(out, views.NewStory(st))
	}
	return out, nil
}

// Delete removes a story before its expiry. Only the author may do it.
func (s *StoryService) Delete(ctx context.Context, id, requesterID int) error {
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return repoErr(err, fmt.Sprintf("story %d", id))
	}
	if st.AuthorID != requesterID {
		return fmt.Errorf("story %d: %w", id, ErrForbidden)
	}
	return repoErr(s.repo.Delete(ctx, id), fmt.Sprintf("story %d", id))
}

// SweepExpired deletes every story whose expiry has passed.
func (s *StoryService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep stories: %w", err)
	}
	metrics.StoriesSweptTotal.Add(float64(n))
	if n > 0 {
		s.log.Info().Int64("deleted", n).Msg("expired stories swept")
	}
	return n, nil
}

// RunSweeper calls SweepExpired every interval until ctx is cancelled.
func (s *StoryService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepExpired(ctx); err != nil {
				s.log.Error().Err(err).Msg("story sweep failed")
			}
		}
	}
}
