package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"meno/internal/log"
	"meno/internal/metrics"
	"meno/internal/models"
	"meno/internal/realtime"
	"meno/internal/repositories"
	"meno/internal/views"
)

// Broadcaster delivers a payload to every live connection under a key.
type Broadcaster interface {
	Send(key realtime.Key, payload any) (int, error)
}

// Notifier pushes an already persisted notification to its recipient.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification)
}

type NotificationService struct {
	repo repositories.NotificationRepository
	hub  Broadcaster
	log  zerolog.Logger
}

func NewNotificationService(repo repositories.NotificationRepository, hub Broadcaster) *NotificationService {
	return &NotificationService{repo: repo, hub: hub, log: log.WithComponent("notifications")}
}

// Notify sends the public notification shape to the recipient's user
// channel. Nobody listening is not an error; the row stays queryable.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) {
	full, err := s.repo.Get(ctx, n.ID)
	if err != nil {
		s.log.Warn().Err(err).Int("notification_id", n.ID).Msg("reload notification, pushing bare record")
		full = n
	}
	metrics.NotificationsTotal.WithLabelValues(string(n.Type)).Inc()
	delivered, err := s.hub.Send(realtime.UserKey(n.UserID), views.NewNotification(full))
	if err != nil {
		s.log.Error().Err(err).Int("notification_id", n.ID).Msg("push notification")
		return
	}
	s.log.Debug().Int("user_id", n.UserID).Int("delivered", delivered).Msg("notification pushed")
}

func (s *NotificationService) List(ctx context.Context, userID int) ([]views.Notification, error) {
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]views.Notification, 0, len(rows))
	for _, n := range rows {
		out = append(out, views.NewNotification(n))
	}
	return out, nil
}

// MarkRead flags a notification as read. Only its recipient may do so.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID int) error {
	ok, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if !ok {
		return fmt.Errorf("notification %d: %w", id, ErrNotFound)
	}
	return nil
}
