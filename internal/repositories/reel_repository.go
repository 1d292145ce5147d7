package repositories

import (
	"context"
	"database/sql"

	"meno/internal/models"
)

type ReelRepository interface {
	Create(ctx context.Context, reel *models.Reel) error
	Get(ctx context.Context, id int) (*models.Reel, error)
	ListByOwner(ctx context.Context, userID int) ([]*models.Reel, error)
	SetArchived(ctx context.Context, id int, archived bool) error
	ToggleLike(ctx context.Context, reelID, userID int) (*LikeResult, error)
	Delete(ctx context.Context, id int) error
}

type reelRepository struct {
	DB *sql.DB
}

func NewReelRepository(db *sql.DB) ReelRepository {
	return &reelRepository{DB: db}
}

func (r *reelRepository) Create(ctx context.Context, reel *models.Reel) error {
	const q = `
		INSERT INTO reels (title, video, place, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.DB.QueryRowContext(ctx, q, reel.Title, reel.Video, reel.Place, reel.UserID).Scan(&reel.ID, &reel.CreatedAt)
	return translate(err)
}

const reelColumns = `
	SELECT rl.id, rl.title, rl.video, rl.place, rl.user_id, rl.is_archived, rl.view_count, rl.created_at,
	       u.username, u.profile_photo,
	       (SELECT COUNT(*) FROM reel_likes l WHERE l.reel_id = rl.id),
	       (SELECT COUNT(*) FROM comments m WHERE m.reel_id = rl.id)
	FROM reels rl
	JOIN users u ON u.id = rl.user_id
`

func scanReel(row interface{ Scan(...any) error }) (*models.Reel, error) {
	var (
		rl           models.Reel
		place, photo sql.NullString
	)
	if err := row.Scan(&rl.ID, &rl.Title, &rl.Video, &place, &rl.UserID, &rl.IsArchived, &rl.ViewCount,
		&rl.CreatedAt, &rl.Owner.Username, &photo, &rl.LikeCount, &rl.CommentCount); err != nil {
		return nil, err
	}
	rl.Place = nullString(place)
	rl.Owner.ID = rl.UserID
	rl.Owner.ProfilePhoto = nullString(photo)
	return &rl, nil
}

func (r *reelRepository) Get(ctx context.Context, id int) (*models.Reel, error) {
	rl, err := scanReel(r.DB.QueryRowContext(ctx, reelColumns+` WHERE rl.id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return rl, nil
}

// ListByOwner returns the owner's non-archived reels, newest first.
func (r *reelRepository) ListByOwner(ctx context.Context, userID int) ([]*models.Reel, error) {
	rows, err := r.DB.QueryContext(ctx, reelColumns+`
	WHERE rl.user_id = $1 AND NOT rl.is_archived
	ORDER BY rl.created_at DESC, rl.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Reel
	for rows.Next() {
		rl, err := scanReel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rl)
	}
	return out, rows.Err()
}

func (r *reelRepository) SetArchived(ctx context.Context, id int, archived bool) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE reels SET is_archived = $2 WHERE id = $1`, id, archived)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *reelRepository) Delete(ctx context.Context, id int) error {
	return deleteRow(ctx, r.DB, `DELETE FROM reels WHERE id = $1`, id)
}

func (r *reelRepository) ToggleLike(ctx context.Context, reelID, userID int) (*LikeResult, error) {
	return toggleLike(ctx, r.DB, likeTables{
		owner:       `SELECT user_id FROM reels WHERE id = $1 FOR UPDATE`,
		unlike:      `DELETE FROM reel_likes WHERE reel_id = $1 AND user_id = $2`,
		like:        `INSERT INTO reel_likes (reel_id, user_id) VALUES ($1, $2)`,
		notifColumn: "reel_id",
	}, reelID, userID)
}
