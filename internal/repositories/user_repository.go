package repositories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"meno/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// ExistingIDs returns the subset of ids that belong to registered users.
	ExistingIDs(ctx context.Context, ids []int) ([]int, error)
	// Follow stores the subscription and the follow notification in one transaction.
	Follow(ctx context.Context, followerID, followedID int) (*models.Notification, error)
	Unfollow(ctx context.Context, followerID, followedID int) (bool, error)
	FollowCounts(ctx context.Context, userID int) (followers, following int, err error)
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	const q = `
		INSERT INTO users (username, email, password_hash, profile_photo, name, surname, biography)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.DB.QueryRowContext(ctx, q,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.ProfilePhoto,
		user.Name,
		user.Surname,
		user.Biography,
	).Scan(&user.ID, &user.CreatedAt)
	return translate(err)
}

const userColumns = `
		SELECT id, username, email, password_hash, profile_photo, name, surname, biography, is_closed, created_at
		FROM users
`

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u                               models.User
		photo, name, surname, biography sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &photo, &name, &surname, &biography,
		&u.IsClosed, &u.CreatedAt); err != nil {
		return nil, translate(err)
	}
	u.ProfilePhoto = nullString(photo)
	u.Name = nullString(name)
	u.Surname = nullString(surname)
	u.Biography = nullString(biography)
	return &u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, userColumns+` WHERE id = $1`, id))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, userColumns+` WHERE username = $1`, username))
}

func (r *userRepository) ExistingIDs(ctx context.Context, ids []int) ([]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id FROM users WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *userRepository) Follow(ctx context.Context, followerID, followedID int) (*models.Notification, error) {
	n := &models.Notification{UserID: followedID, SenderID: followerID, Type: models.NotificationFollow}
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		const follow = `INSERT INTO subscriptions (follower_id, followed_id) VALUES ($1, $2)`
		if _, err := tx.ExecContext(ctx, follow, followerID, followedID); err != nil {
			return err
		}
		const notify = `
			INSERT INTO notifications (user_id, sender_id, type)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`
		return tx.QueryRowContext(ctx, notify, n.UserID, n.SenderID, n.Type).Scan(&n.ID, &n.CreatedAt)
	})
	if err != nil {
		return nil, translate(err)
	}
	return n, nil
}

func (r *userRepository) Unfollow(ctx context.Context, followerID, followedID int) (bool, error) {
	const q = `DELETE FROM subscriptions WHERE follower_id = $1 AND followed_id = $2`
	res, err := r.DB.ExecContext(ctx, q, followerID, followedID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *userRepository) FollowCounts(ctx context.Context, userID int) (followers, following int, err error) {
	const q = `
		SELECT
			(SELECT COUNT(*) FROM subscriptions WHERE followed_id = $1),
			(SELECT COUNT(*) FROM subscriptions WHERE follower_id = $1)
	`
	err = r.DB.QueryRowContext(ctx, q, userID).Scan(&followers, &following)
	return
}
