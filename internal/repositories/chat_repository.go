package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"meno/internal/models"
)

type ChatRepository interface {
	// Create fails with ErrDuplicate when any of exclusive is already in a chat.
	Create(ctx context.Context, authorID int, members, exclusive []int) (*models.Chat, error)
	Get(ctx context.Context, chatID int) (*models.Chat, error)
	Delete(ctx context.Context, chatID int) error
	IsMember(ctx context.Context, chatID, userID int) (bool, error)
	ListUserChats(ctx context.Context, userID int) ([]*models.Chat, error)
	Participants(ctx context.Context, chatID int) ([]models.UserSummary, error)

	CreateMessage(ctx context.Context, msg *models.ChatMessage) error
	GetMessage(ctx context.Context, messageID int) (*models.ChatMessage, error)
	DeleteMessage(ctx context.Context, messageID int) error
	ListMessages(ctx context.Context, chatID int) ([]*models.ChatMessage, error)

	CreateShare(ctx context.Context, item *models.SharedItem) error
	GetShare(ctx context.Context, shareID int) (*models.SharedItem, error)
	DeleteShare(ctx context.Context, shareID int) error
	ListSharedContents(ctx context.Context, chatID int) ([]*models.SharedItem, error)
	ListSharedReels(ctx context.Context, chatID int) ([]*models.SharedItem, error)
	ListSharedUsers(ctx context.Context, chatID int) ([]*models.SharedItem, error)
}

type chatRepository struct {
	DB *sql.DB
}

func NewChatRepository(db *sql.DB) ChatRepository {
	return &chatRepository{DB: db}
}

// chatCreateLock is the advisory lock key serialising chat creation, so two
// requests naming the same participant cannot both pass the overlap check.
const chatCreateLock int64 = 0x6d656e6f63686174

// Create inserts the chat and its memberships. When any of exclusive already
// belongs to a chat nothing is written and the error wraps ErrDuplicate.
func (r *chatRepository) Create(ctx context.Context, authorID int, members, exclusive []int) (*models.Chat, error) {
	chat := &models.Chat{AuthorID: authorID, Members: members}
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, chatCreateLock); err != nil {
			return err
		}
		const overlap = `SELECT chat_id FROM chat_members WHERE user_id = ANY($1) ORDER BY chat_id LIMIT 1`
		var existing int
		err := tx.QueryRowContext(ctx, overlap, pq.Array(exclusive)).Scan(&existing)
		switch {
		case err == nil:
			return fmt.Errorf("chat %d already includes a participant: %w", existing, ErrDuplicate)
		case err != sql.ErrNoRows:
			return err
		}

		const insertChat = `INSERT INTO chats (author_id) VALUES ($1) RETURNING id, created_at`
		if err := tx.QueryRowContext(ctx, insertChat, authorID).Scan(&chat.ID, &chat.CreatedAt); err != nil {
			return err
		}
		const insertMember = `INSERT INTO chat_members (chat_id, user_id) VALUES ($1, $2)`
		for _, userID := range members {
			if _, err := tx.ExecContext(ctx, insertMember, chat.ID, userID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return chat, nil
}

func (r *chatRepository) Get(ctx context.Context, chatID int) (*models.Chat, error) {
	const q = `
                SELECT c.id, COALESCE(c.author_id, 0), c.created_at,
                       COALESCE(array_agg(cm.user_id ORDER BY cm.user_id) FILTER (WHERE cm.user_id IS NOT NULL), '{}')
                FROM chats c
                LEFT JOIN chat_members cm ON cm.chat_id = c.id
                WHERE c.id = $1
                GROUP BY c.id, c.author_id, c.created_at
        `
	chat := &models.Chat{}
	var members pq.Int64Array
	if err := r.DB.QueryRowContext(ctx, q, chatID).Scan(&chat.ID, &chat.AuthorID, &chat.CreatedAt, &members); err != nil {
		return nil, translate(err)
	}
	for _, m := range members {
		chat.Members = append(chat.Members, int(m))
	}
	return chat, nil
}

// Delete removes the chat together with its shares, messages and memberships.
func (r *chatRepository) Delete(ctx context.Context, chatID int) error {
	return translate(withTx(ctx, r.DB, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM shared_items WHERE chat_id = $1`,
			`DELETE FROM messages WHERE chat_id = $1`,
			`DELETE FROM chat_members WHERE chat_id = $1`,
		} {
			if _, err := tx.ExecContext(ctx, q, chatID); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE id = $1`, chatID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sql.ErrNoRows
		}
		return nil
	}))
}

func (r *chatRepository) IsMember(ctx context.Context, chatID, userID int) (bool, error) {
	const q = `
                SELECT 1 FROM chat_members WHERE chat_id = $1 AND user_id = $2 LIMIT 1
        `
	var dummy int
	err := r.DB.QueryRowContext(ctx, q, chatID, userID).Scan(&dummy)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *chatRepository) ListUserChats(ctx context.Context, userID int) ([]*models.Chat, error) {
	const q = `
                SELECT c.id, COALESCE(c.author_id, 0), c.created_at,
                       COALESCE(array_agg(cm.user_id ORDER BY cm.user_id), '{}') AS members
                FROM chats c
                JOIN chat_members cm ON cm.chat_id = c.id
                WHERE c.id IN (SELECT chat_id FROM chat_members WHERE user_id = $1)
                GROUP BY c.id, c.author_id, c.created_at
                ORDER BY c.id
        `
	rows, err := r.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []*models.Chat
	for rows.Next() {
		chat := &models.Chat{}
		var members pq.Int64Array
		if err := rows.Scan(&chat.ID, &chat.AuthorID, &chat.CreatedAt, &members); err != nil {
			return nil, err
		}
		for _, m := range members {
			chat.Members = append(chat.Members, int(m))
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

func (r *chatRepository) Participants(ctx context.Context, chatID int) ([]models.UserSummary, error) {
	const q = `
                SELECT u.id, u.username, u.profile_photo
                FROM chat_members cm
                JOIN users u ON u.id = cm.user_id
                WHERE cm.chat_id = $1
                ORDER BY u.id
        `
	rows, err := r.DB.QueryContext(ctx, q, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.UserSummary
	for rows.Next() {
		var (
			u     models.UserSummary
			photo sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Username, &photo); err != nil {
			return nil, err
		}
		u.ProfilePhoto = nullString(photo)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.ChatMessage) error {
	const q = `
                WITH m AS (
                        INSERT INTO messages (chat_id, author_id, text, img_file)
                        VALUES ($1, $2, $3, $4)
                        RETURNING id, author_id, created_at
                )
                SELECT m.id, m.created_at, u.username, u.profile_photo
                FROM m JOIN users u ON u.id = m.author_id
        `
	var photo sql.NullString
	err := r.DB.QueryRowContext(ctx, q, msg.ChatID, msg.AuthorID, msg.Text, msg.ImageFile).
		Scan(&msg.ID, &msg.CreatedAt, &msg.Author.Username, &photo)
	if err != nil {
		return translate(err)
	}
	msg.Author.ID = msg.AuthorID
	msg.Author.ProfilePhoto = nullString(photo)
	return nil
}

const messageColumns = `
                SELECT m.id, m.chat_id, m.author_id, m.text, m.img_file, m.is_updated, m.created_at,
                       u.username, u.profile_photo
                FROM messages m
                JOIN users u ON u.id = m.author_id
`

func scanMessage(row interface{ Scan(...any) error }) (*models.ChatMessage, error) {
	var (
		msg   models.ChatMessage
		img   sql.NullString
		photo sql.NullString
	)
	if err := row.Scan(&msg.ID, &msg.ChatID, &msg.AuthorID, &msg.Text, &img, &msg.Edited, &msg.CreatedAt,
		&msg.Author.Username, &photo); err != nil {
		return nil, err
	}
	msg.ImageFile = nullString(img)
	msg.Author.ID = msg.AuthorID
	msg.Author.ProfilePhoto = nullString(photo)
	return &msg, nil
}

func (r *chatRepository) GetMessage(ctx context.Context, messageID int) (*models.ChatMessage, error) {
	msg, err := scanMessage(r.DB.QueryRowContext(ctx, messageColumns+` WHERE m.id = $1`, messageID))
	if err != nil {
		return nil, translate(err)
	}
	return msg, nil
}

func (r *chatRepository) DeleteMessage(ctx context.Context, messageID int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, messageID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *chatRepository) ListMessages(ctx context.Context, chatID int) ([]*models.ChatMessage, error) {
	rows, err := r.DB.QueryContext(ctx, messageColumns+` WHERE m.chat_id = $1 ORDER BY m.created_at ASC, m.id ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *chatRepository) CreateShare(ctx context.Context, item *models.SharedItem) error {
	var contentID, reelID, userID *int
	switch item.Kind {
	case models.ShareContent:
		contentID = &item.TargetID
	case models.ShareReel:
		reelID = &item.TargetID
	case models.ShareUser:
		userID = &item.TargetID
	}
	const q = `
                INSERT INTO shared_items (chat_id, sender_id, content_id, reel_id, user_id, message)
                VALUES ($1, $2, $3, $4, $5, $6)
                RETURNING id, created_at
        `
	err := r.DB.QueryRowContext(ctx, q, item.ChatID, item.SenderID, contentID, reelID, userID, item.Message).
		Scan(&item.ID, &item.CreatedAt)
	return translate(err)
}

func (r *chatRepository) GetShare(ctx context.Context, shareID int) (*models.SharedItem, error) {
	const q = `
                SELECT id, chat_id, sender_id, content_id, reel_id, user_id, message, created_at
                FROM shared_items WHERE id = $1
        `
	var (
		item                      models.SharedItem
		contentID, reelID, userID sql.NullInt64
		message                   sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, q, shareID).
		Scan(&item.ID, &item.ChatID, &item.SenderID, &contentID, &reelID, &userID, &message, &item.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	item.Message = nullString(message)
	switch {
	case contentID.Valid:
		item.Kind, item.TargetID = models.ShareContent, int(contentID.Int64)
	case reelID.Valid:
		item.Kind, item.TargetID = models.ShareReel, int(reelID.Int64)
	case userID.Valid:
		item.Kind, item.TargetID = models.ShareUser, int(userID.Int64)
	}
	return &item, nil
}

func (r *chatRepository) DeleteShare(ctx context.Context, shareID int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM shared_items WHERE id = $1`, shareID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *chatRepository) ListSharedContents(ctx context.Context, chatID int) ([]*models.SharedItem, error) {
	const q = `
                SELECT s.id, s.chat_id, s.sender_id, s.message, s.created_at,
                       su.username, su.profile_photo,
                       c.id, c.title, c.photo, c.audience, c.author_id, c.view_count, c.created_at,
                       au.username, au.profile_photo
                FROM shared_items s
                JOIN contents c ON c.id = s.content_id
                JOIN users su ON su.id = s.sender_id
                JOIN users au ON au.id = c.author_id
                WHERE s.chat_id = $1 AND NOT c.is_archived
                ORDER BY s.created_at DESC, s.id DESC
        `
	rows, err := r.DB.QueryContext(ctx, q, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.SharedItem
	for rows.Next() {
		item := &models.SharedItem{Kind: models.ShareContent, Content: &models.Content{}}
		var message, sPhoto, aPhoto sql.NullString
		c := item.Content
		if err := rows.Scan(&item.ID, &item.ChatID, &item.SenderID, &message, &item.CreatedAt,
			&item.Sender.Username, &sPhoto,
			&c.ID, &c.Title, &c.Photo, &c.Audience, &c.AuthorID, &c.ViewCount, &c.CreatedAt,
			&c.Author.Username, &aPhoto); err != nil {
			return nil, err
		}
		item.TargetID = c.ID
		item.Message = nullString(message)
		item.Sender.ID = item.SenderID
		item.Sender.ProfilePhoto = nullString(sPhoto)
		c.Author.ID = c.AuthorID
		c.Author.ProfilePhoto = nullString(aPhoto)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *chatRepository) ListSharedReels(ctx context.Context, chatID int) ([]*models.SharedItem, error) {
	const q = `
                SELECT s.id, s.chat_id, s.sender_id, s.message, s.created_at,
                       su.username, su.profile_photo,
                       rl.id, rl.title, rl.video, rl.place, rl.user_id, rl.view_count, rl.created_at,
                       ou.username, ou.profile_photo
                FROM shared_items s
                JOIN reels rl ON rl.id = s.reel_id
                JOIN users su ON su.id = s.sender_id
                JOIN users ou ON ou.id = rl.user_id
                WHERE s.chat_id = $1 AND NOT rl.is_archived
                ORDER BY s.created_at DESC, s.id DESC
        `
	rows, err := r.DB.QueryContext(ctx, q, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.SharedItem
	for rows.Next() {
		item := &models.SharedItem{Kind: models.ShareReel, Reel: &models.Reel{}}
		var message, sPhoto, place, oPhoto sql.NullString
		rl := item.Reel
		if err := rows.Scan(&item.ID, &item.ChatID, &item.SenderID, &message, &item.CreatedAt,
			&item.Sender.Username, &sPhoto,
			&rl.ID, &rl.Title, &rl.Video, &place, &rl.UserID, &rl.ViewCount, &rl.CreatedAt,
			&rl.Owner.Username, &oPhoto); err != nil {
			return nil, err
		}
		item.TargetID = rl.ID
		item.Message = nullString(message)
		item.Sender.ID = item.SenderID
		item.Sender.ProfilePhoto = nullString(sPhoto)
		rl.Place = nullString(place)
		rl.Owner.ID = rl.UserID
		rl.Owner.ProfilePhoto = nullString(oPhoto)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *chatRepository) ListSharedUsers(ctx context.Context, chatID int) ([]*models.SharedItem, error) {
	const q = `
                SELECT s.id, s.chat_id, s.sender_id, s.message, s.created_at,
                       su.username, su.profile_photo,
                       tu.id, tu.username, tu.profile_photo
                FROM shared_items s
                JOIN users tu ON tu.id = s.user_id
                JOIN users su ON su.id = s.sender_id
                WHERE s.chat_id = $1
                ORDER BY s.created_at DESC, s.id DESC
        `
	rows, err := r.DB.QueryContext(ctx, q, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.SharedItem
	for rows.Next() {
		item := &models.SharedItem{Kind: models.ShareUser, User: &models.UserSummary{}}
		var message, sPhoto, tPhoto sql.NullString
		if err := rows.Scan(&item.ID, &item.ChatID, &item.SenderID, &message, &item.CreatedAt,
			&item.Sender.Username, &sPhoto,
			&item.User.ID, &item.User.Username, &tPhoto); err != nil {
			return nil, err
		}
		item.TargetID = item.User.ID
		item.Message = nullString(message)
		item.Sender.ID = item.SenderID
		item.Sender.ProfilePhoto = nullString(sPhoto)
		item.User.ProfilePhoto = nullString(tPhoto)
		items = append(items, item)
	}
	return items, rows.Err()
}
