package models

import "time"

type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationFollow  NotificationType = "follow"
	NotificationComment NotificationType = "comment"
)

// Notification is addressed to UserID. Sender, Content and Reel are filled
// by the repository when listing.
type Notification struct {
	ID        int              `json:"id"`
	UserID    int              `json:"user_id"`
	SenderID  int              `json:"sender_id"`
	ContentID *int             `json:"content_id"`
	ReelID    *int             `json:"video_reels_id"`
	Type      NotificationType `json:"type"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`

	Sender  *UserSummary `json:"-"`
	Content *Content     `json:"-"`
	Reel    *Reel        `json:"-"`
}
