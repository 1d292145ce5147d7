package repositories

import (
	"context"
	"database/sql"

	"meno/internal/models"
)

type NotificationRepository interface {
	// Get loads a notification with its sender, content and reel summaries.
	Get(ctx context.Context, id int) (*models.Notification, error)
	ListForUser(ctx context.Context, userID int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID int) (bool, error)
}

type notificationRepository struct {
	DB *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{DB: db}
}

const notificationColumns = `
	SELECT n.id, n.user_id, n.sender_id, n.content_id, n.reel_id, n.type, n.is_read, n.created_at,
	       s.username, s.profile_photo,
	       c.title, c.photo, c.created_at,
	       r.title, r.video, r.view_count, r.created_at
	FROM notifications n
	JOIN users s ON s.id = n.sender_id
	LEFT JOIN contents c ON c.id = n.content_id
	LEFT JOIN reels r ON r.id = n.reel_id
`

func scanNotification(row interface{ Scan(...any) error }) (*models.Notification, error) {
	var (
		n                              models.Notification
		contentID, reelID              sql.NullInt64
		senderPhoto                    sql.NullString
		cTitle, cPhoto, rTitle, rVideo sql.NullString
		cCreated, rCreated             sql.NullTime
		rViews                         sql.NullInt64
		sender                         models.UserSummary
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.SenderID, &contentID, &reelID, &n.Type, &n.IsRead, &n.CreatedAt,
		&sender.Username, &senderPhoto,
		&cTitle, &cPhoto, &cCreated,
		&rTitle, &rVideo, &rViews, &rCreated); err != nil {
		return nil, err
	}
	sender.ID = n.SenderID
	sender.ProfilePhoto = nullString(senderPhoto)
	n.Sender = &sender
	n.ContentID = nullInt(contentID)
	n.ReelID = nullInt(reelID)
	if n.ContentID != nil && cTitle.Valid {
		n.Content = &models.Content{ID: *n.ContentID, Title: cTitle.String, Photo: cPhoto.String, CreatedAt: cCreated.Time}
	}
	if n.ReelID != nil && rTitle.Valid {
		n.Reel = &models.Reel{ID: *n.ReelID, Title: rTitle.String, Video: rVideo.String,
			ViewCount: int(rViews.Int64), CreatedAt: rCreated.Time}
	}
	return &n, nil
}

func (r *notificationRepository) Get(ctx context.Context, id int) (*models.Notification, error) {
	n, err := scanNotification(r.DB.QueryRowContext(ctx, notificationColumns+` WHERE n.id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return n, nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID int) ([]*models.Notification, error) {
	rows, err := r.DB.QueryContext(ctx, notificationColumns+`
	WHERE n.user_id = $1
	ORDER BY n.created_at DESC, n.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID int) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
