package repositories

import (
	"context"
	"database/sql"
	"time"

	"meno/internal/models"
)

type StoryRepository interface {
	Create(ctx context.Context, story *models.Story) error
	Get(ctx context.Context, id int) (*models.Story, error)
	// ListFeed returns unexpired stories by userID and the accounts it follows, newest first.
	ListFeed(ctx context.Context, userID int, now time.Time) ([]*models.Story, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Delete(ctx context.Context, id int) error
}

type storyRepository struct {
	DB *sql.DB
}

func NewStoryRepository(db *sql.DB) StoryRepository {
	return &storyRepository{DB: db}
}

func (r *storyRepository) Create(ctx context.Context, s *models.Story) error {
	const q = `
		INSERT INTO stories (author_id, body, delete_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	return translate(r.DB.QueryRowContext(ctx, q, s.AuthorID, s.Body, s.DeleteAt).Scan(&s.ID, &s.CreatedAt))
}

func (r *storyRepository) Get(ctx context.Context, id int) (*models.Story, error) {
	const q = `
		SELECT s.id, s.author_id, s.body, s.views_count, s.created_at, s.delete_at, u.username, u.profile_photo
		FROM stories s
		JOIN users u ON u.id = s.author_id
		WHERE s.id = $1
	`
	var (
		s     models.Story
		photo sql.NullString
	)
	if err := r.DB.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.AuthorID, &s.Body, &s.ViewsCount, &s.CreatedAt,
		&s.DeleteAt, &s.Author.Username, &photo); err != nil {
		return nil, translate(err)
	}
	s.Author.ID = s.AuthorID
	s.Author.ProfilePhoto = nullString(photo)
	return &s, nil
}

func (r *storyRepository) ListFeed(ctx context.Context, userID int, now time.Time) ([]*models.Story, error) {
	const q = `
		SELECT s.id, s.author_id, s.body, s.views_count, s.created_at, s.delete_at, u.username, u.profile_photo
		FROM stories s
		JOIN users u ON u.id = s.author_id
		WHERE s.delete_at > $2
		  AND (s.author_id = $1 OR s.author_id IN (SELECT followed_id FROM subscriptions WHERE follower_id = $1))
		ORDER BY s.created_at DESC, s.id DESC
	`
	rows, err := r.DB.QueryContext(ctx, q, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Story
	for rows.Next() {
		var (
			s     models.Story
			photo sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.AuthorID, &s.Body, &s.ViewsCount, &s.CreatedAt, &s.DeleteAt,
			&s.Author.Username, &photo); err != nil {
			return nil, err
		}
		s.Author.ID = s.AuthorID
		s.Author.ProfilePhoto = nullString(photo)
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *storyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM stories WHERE delete_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *storyRepository) Delete(ctx context.Context, id int) error {
	return deleteRow(ctx, r.DB, `DELETE FROM stories WHERE id = $1`, id)
}
