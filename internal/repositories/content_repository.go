package repositories

import (
	"context"
	"database/sql"

	"meno/internal/models"
)

// LikeResult describes the outcome of a like toggle. Notification is nil on
// unlike and when users like their own posts.
type LikeResult struct {
	Liked        bool
	Notification *models.Notification
}

type ContentRepository interface {
	Create(ctx context.Context, content *models.Content) error
	Get(ctx context.Context, id int) (*models.Content, error)
	// ListByAuthor returns the author's non-archived posts, newest first.
	ListByAuthor(ctx context.Context, authorID int) ([]*models.Content, error)
	SetArchived(ctx context.Context, id int, archived bool) error
	ToggleLike(ctx context.Context, contentID, userID int) (*LikeResult, error)
	// Delete removes the post; likes, comments, shares and notifications go with it.
	Delete(ctx context.Context, id int) error
}

type contentRepository struct {
	DB *sql.DB
}

func NewContentRepository(db *sql.DB) ContentRepository {
	return &contentRepository{DB: db}
}

func (r *contentRepository) Create(ctx context.Context, c *models.Content) error {
	const q = `
		INSERT INTO contents (title, photo, audience, author_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return translate(r.DB.QueryRowContext(ctx, q, c.Title, c.Photo, c.Audience, c.AuthorID).Scan(&c.ID, &c.CreatedAt))
}

const contentColumns = `
	SELECT c.id, c.title, c.photo, c.audience, c.author_id, c.is_archived, c.view_count, c.created_at,
	       u.username, u.profile_photo,
	       (SELECT COUNT(*) FROM content_likes l WHERE l.content_id = c.id),
	       (SELECT COUNT(*) FROM comments m WHERE m.content_id = c.id)
	FROM contents c
	JOIN users u ON u.id = c.author_id
`

func scanContent(row interface{ Scan(...any) error }) (*models.Content, error) {
	var (
		c     models.Content
		photo sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Title, &c.Photo, &c.Audience, &c.AuthorID,
		&c.IsArchived, &c.ViewCount, &c.CreatedAt, &c.Author.Username, &photo, &c.LikeCount, &c.CommentCount); err != nil {
		return nil, err
	}
	c.Author.ID = c.AuthorID
	c.Author.ProfilePhoto = nullString(photo)
	return &c, nil
}

func (r *contentRepository) Get(ctx context.Context, id int) (*models.Content, error) {
	c, err := scanContent(r.DB.QueryRowContext(ctx, contentColumns+` WHERE c.id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

func (r *contentRepository) ListByAuthor(ctx context.Context, authorID int) ([]*models.Content, error) {
	rows, err := r.DB.QueryContext(ctx, contentColumns+`
	WHERE c.author_id = $1 AND NOT c.is_archived
	ORDER BY c.created_at DESC, c.id DESC`, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *contentRepository) SetArchived(ctx context.Context, id int, archived bool) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE contents SET is_archived = $2 WHERE id = $1`, id, archived)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *contentRepository) Delete(ctx context.Context, id int) error {
	return deleteRow(ctx, r.DB, `DELETE FROM contents WHERE id = $1`, id)
}

func (r *contentRepository) ToggleLike(ctx context.Context, contentID, userID int) (*LikeResult, error) {
	return toggleLike(ctx, r.DB, likeTables{
		owner:       `SELECT author_id FROM contents WHERE id = $1 FOR UPDATE`,
		unlike:      `DELETE FROM content_likes WHERE content_id = $1 AND user_id = $2`,
		like:        `INSERT INTO content_likes (content_id, user_id) VALUES ($1, $2)`,
		notifColumn: "content_id",
		contentRef:  true,
	}, contentID, userID)
}

type likeTables struct {
	owner       string
	unlike      string
	like        string
	notifColumn string
	contentRef  bool
}

// toggleLike flips the (target, user) like row and keeps the matching "like"
// notification in step with it, inside one transaction.
func toggleLike(ctx context.Context, db *sql.DB, t likeTables, targetID, userID int) (*LikeResult, error) {
	result := &LikeResult{}
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		var ownerID int
		if err := tx.QueryRowContext(ctx, t.owner, targetID).Scan(&ownerID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, t.unlike, targetID, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			_, err := tx.ExecContext(ctx,
				`DELETE FROM notifications WHERE user_id = $1 AND sender_id = $2 AND type = $3 AND `+t.notifColumn+` = $4`,
				ownerID, userID, models.NotificationLike, targetID)
			return err
		}

		if _, err := tx.ExecContext(ctx, t.like, targetID, userID); err != nil {
			return err
		}
		result.Liked = true
		if ownerID == userID {
			return nil
		}

		n := &models.Notification{UserID: ownerID, SenderID: userID, Type: models.NotificationLike}
		ref := targetID
		if t.contentRef {
			n.ContentID = &ref
		} else {
			n.ReelID = &ref
		}
		if err := insertNotification(ctx, tx, n); err != nil {
			return err
		}
		result.Notification = n
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return result, nil
}

func insertNotification(ctx context.Context, tx *sql.Tx, n *models.Notification) error {
	const q = `
		INSERT INTO notifications (user_id, sender_id, content_id, reel_id, type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return tx.QueryRowContext(ctx, q, n.UserID, n.SenderID, n.ContentID, n.ReelID, n.Type).Scan(&n.ID, &n.CreatedAt)
}
