package repositories

import (
	"context"
	"database/sql"

	"meno/internal/models"
)

type CommentRepository interface {
	// Create stores the comment and, unless the commenter owns the post,
	// a "comment" notification for the owner in the same transaction.
	Create(ctx context.Context, comment *models.Comment) (*models.Notification, error)
	ListForContent(ctx context.Context, contentID int) ([]*models.Comment, error)
	ListForReel(ctx context.Context, reelID int) ([]*models.Comment, error)
	// Delete removes a comment written by userID. False means no such comment.
	Delete(ctx context.Context, id, userID int) (bool, error)
}

type commentRepository struct {
	DB *sql.DB
}

func NewCommentRepository(db *sql.DB) CommentRepository {
	return &commentRepository{DB: db}
}

func (r *commentRepository) Create(ctx context.Context, c *models.Comment) (*models.Notification, error) {
	var n *models.Notification
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var (
			ownerID int
			err     error
		)
		if c.ContentID != nil {
			err = tx.QueryRowContext(ctx, `SELECT author_id FROM contents WHERE id = $1`, *c.ContentID).Scan(&ownerID)
		} else {
			err = tx.QueryRowContext(ctx, `SELECT user_id FROM reels WHERE id = $1`, *c.ReelID).Scan(&ownerID)
		}
		if err != nil {
			return err
		}

		const q = `
			INSERT INTO comments (user_id, content_id, reel_id, body)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`
		if err := tx.QueryRowContext(ctx, q, c.UserID, c.ContentID, c.ReelID, c.Body).Scan(&c.ID, &c.CreatedAt); err != nil {
			return err
		}
		if ownerID == c.UserID {
			return nil
		}
		n = &models.Notification{UserID: ownerID, SenderID: c.UserID, ContentID: c.ContentID, ReelID: c.ReelID,
			Type: models.NotificationComment}
		return insertNotification(ctx, tx, n)
	})
	if err != nil {
		return nil, translate(err)
	}
	return n, nil
}

const commentColumns = `
	SELECT m.id, m.user_id, m.content_id, m.reel_id, m.body, m.created_at, u.username, u.profile_photo
	FROM comments m
	JOIN users u ON u.id = m.user_id
`

func (r *commentRepository) ListForContent(ctx context.Context, contentID int) ([]*models.Comment, error) {
	return r.list(ctx, commentColumns+` WHERE m.content_id = $1 ORDER BY m.created_at DESC, m.id DESC`, contentID)
}

func (r *commentRepository) ListForReel(ctx context.Context, reelID int) ([]*models.Comment, error) {
	return r.list(ctx, commentColumns+` WHERE m.reel_id = $1 ORDER BY m.created_at DESC, m.id DESC`, reelID)
}

func (r *commentRepository) list(ctx context.Context, q string, targetID int) ([]*models.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, q, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Comment
	for rows.Next() {
		var (
			c                 models.Comment
			contentID, reelID sql.NullInt64
			photo             sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.UserID, &contentID, &reelID, &c.Body, &c.CreatedAt,
			&c.Author.Username, &photo); err != nil {
			return nil, err
		}
		c.ContentID = nullInt(contentID)
		c.ReelID = nullInt(reelID)
		c.Author.ID = c.UserID
		c.Author.ProfilePhoto = nullString(photo)
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *commentRepository) Delete(ctx context.Context, id, userID int) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM comments WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
