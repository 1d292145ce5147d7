// Package views holds the wire shapes returned by the HTTP and websocket
// layers, with one projection function per shape.
package views

import (
	"time"

	"meno/internal/models"
)

type Message struct {
	ID           int       `json:"id"`
	Content      string    `json:"content"`
	AuthorID     int       `json:"author_id"`
	ImgFile      *string   `json:"img_file"`
	ChatID       int       `json:"chat_id"`
	Timestamp    time.Time `json:"timestamp"`
	ProfilePhoto *string   `json:"profile_photo"`
	Author       string    `json:"author"`
}

// NewMessage projects a persisted message. Author fields come from the
// stored author row, never from client input.
func NewMessage(m *models.ChatMessage) Message {
	return Message{
		ID:           m.ID,
		Content:      m.Text,
		AuthorID:     m.AuthorID,
		ImgFile:      m.ImageFile,
		ChatID:       m.ChatID,
		Timestamp:    m.CreatedAt.UTC(),
		ProfilePhoto: m.Author.ProfilePhoto,
		Author:       m.Author.Username,
	}
}

type User struct {
	ID           int     `json:"id"`
	Username     string  `json:"username"`
	ProfilePhoto *string `json:"profile_photo"`
}

func NewUser(u models.UserSummary) User {
	return User{ID: u.ID, Username: u.Username, ProfilePhoto: u.ProfilePhoto}
}

type Participant struct {
	User User `json:"user"`
}

// SharedContent is a content post forwarded into a chat.
type SharedContent struct {
	ID                  int       `json:"id"`
	ContentID           int       `json:"user_content_id"`
	ContentTitle        string    `json:"content_title"`
	ContentPhoto        string    `json:"content_photo"`
	AuthorID            int       `json:"author_id"`
	CreatorUsername     string    `json:"content_creator_username"`
	CreatorProfilePhoto *string   `json:"content_creator_profile_photo"`
	SenderID            int       `json:"sender_id"`
	SenderUsername      string    `json:"sender_username"`
	SenderProfilePhoto  *string   `json:"sender_profile_photo"`
	Message             *string   `json:"message_sending_content"`
	Timestamp           time.Time `json:"timestamp"`
}

func NewSharedContent(it *models.SharedItem) SharedContent {
	v := SharedContent{
		ID:                 it.ID,
		ContentID:          it.TargetID,
		SenderID:           it.SenderID,
		SenderUsername:     it.Sender.Username,
		SenderProfilePhoto: it.Sender.ProfilePhoto,
		Message:            it.Message,
		Timestamp:          it.CreatedAt.UTC(),
	}
	if c := it.Content; c != nil {
		v.ContentTitle = c.Title
		v.ContentPhoto = c.Photo
		v.AuthorID = c.AuthorID
		v.CreatorUsername = c.Author.Username
		v.CreatorProfilePhoto = c.Author.ProfilePhoto
	}
	return v
}

type SharedReel struct {
	ID                 int       `json:"id"`
	ReelID             int       `json:"video_reels_id"`
	ReelTitle          string    `json:"reels_title"`
	Video              string    `json:"video_reels"`
	OwnerID            int       `json:"user_id"`
	OwnerUsername      string    `json:"reels_creator_username"`
	OwnerProfilePhoto  *string   `json:"reels_creator_profile_photo"`
	SenderID           int       `json:"sender_id"`
	SenderUsername     string    `json:"sender_username"`
	SenderProfilePhoto *string   `json:"sender_profile_photo"`
	Message            *string   `json:"message_sending_content"`
	Timestamp          time.Time `json:"timestamp"`
}

func NewSharedReel(it *models.SharedItem) SharedReel {
	v := SharedReel{
		ID:                 it.ID,
		ReelID:             it.TargetID,
		SenderID:           it.SenderID,
		SenderUsername:     it.Sender.Username,
		SenderProfilePhoto: it.Sender.ProfilePhoto,
		Message:            it.Message,
		Timestamp:          it.CreatedAt.UTC(),
	}
	if r := it.Reel; r != nil {
		v.ReelTitle = r.Title
		v.Video = r.Video
		v.OwnerID = r.UserID
		v.OwnerUsername = r.Owner.Username
		v.OwnerProfilePhoto = r.Owner.ProfilePhoto
	}
	return v
}

type SharedUser struct {
	ID        int       `json:"id"`
	SenderID  int       `json:"sender_id"`
	User      User      `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSharedUser(it *models.SharedItem) SharedUser {
	v := SharedUser{ID: it.ID, SenderID: it.SenderID, Timestamp: it.CreatedAt.UTC()}
	if it.User != nil {
		v.User = NewUser(*it.User)
	} else {
		v.User = User{ID: it.TargetID}
	}
	return v
}

// Share picks the projection matching the item's kind.
func Share(it *models.SharedItem) any {
	switch it.Kind {
	case models.ShareContent:
		return NewSharedContent(it)
	case models.ShareReel:
		return NewSharedReel(it)
	default:
		return NewSharedUser(it)
	}
}

// ChatSummary is one row of the caller's chat list.
type ChatSummary struct {
	ID           int       `json:"id"`
	AuthorID     int       `json:"author_id"`
	Participants []int     `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewChatSummary(c *models.Chat) ChatSummary {
	members := c.Members
	if members == nil {
		members = []int{}
	}
	return ChatSummary{ID: c.ID, AuthorID: c.AuthorID, Participants: members, CreatedAt: c.CreatedAt.UTC()}
}

// ChatDetail is an assembled chat with its history and shares.
type ChatDetail struct {
	ID           int             `json:"id"`
	Participants []Participant   `json:"participants"`
	Messages     []Message       `json:"messages"`
	Contents     []SharedContent `json:"contents"`
	Reels        []SharedReel    `json:"reels"`
	Users        []SharedUser    `json:"users"`
}

type ChatParts struct {
	Chat         *models.Chat
	Participants []models.UserSummary
	Messages     []*models.ChatMessage
	Contents     []*models.SharedItem
	Reels        []*models.SharedItem
	Users        []*models.SharedItem
}

func NewChatDetail(p ChatParts) ChatDetail {
	d := ChatDetail{
		ID:           p.Chat.ID,
		Participants: make([]Participant, 0, len(p.Participants)),
		Messages:     make([]Message, 0, len(p.Messages)),
		Contents:     make([]SharedContent, 0, len(p.Contents)),
		Reels:        make([]SharedReel, 0, len(p.Reels)),
		Users:        make([]SharedUser, 0, len(p.Users)),
	}
	for _, u := range p.Participants {
		d.Participants = append(d.Participants, Participant{User: NewUser(u)})
	}
	for _, m := range p.Messages {
		d.Messages = append(d.Messages, NewMessage(m))
	}
	for _, it := range p.Contents {
		d.Contents = append(d.Contents, NewSharedContent(it))
	}
	for _, it := range p.Reels {
		d.Reels = append(d.Reels, NewSharedReel(it))
	}
	for _, it := range p.Users {
		d.Users = append(d.Users, NewSharedUser(it))
	}
	return d
}

type Content struct {
	ID           int       `json:"id"`
	ContentTitle string    `json:"content_title"`
	ContentPhoto string    `json:"content_photo"`
	ContentFor   string    `json:"content_for"`
	AuthorID     int       `json:"author_id"`
	Author       string    `json:"author"`
	ProfilePhoto *string   `json:"profile_photo"`
	IsArchived   bool      `json:"is_archived"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"commentarion_count"`
	ViewCount    int       `json:"view_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewContent(c *models.Content) Content {
	return Content{
		ID:           c.ID,
		ContentTitle: c.Title,
		ContentPhoto: c.Photo,
		ContentFor:   c.Audience,
		AuthorID:     c.AuthorID,
		Author:       c.Author.Username,
		ProfilePhoto: c.Author.ProfilePhoto,
		IsArchived:   c.IsArchived,
		LikeCount:    c.LikeCount,
		CommentCount: c.CommentCount,
		ViewCount:    c.ViewCount,
		CreatedAt:    c.CreatedAt.UTC(),
	}
}

type Reel struct {
	ID           int       `json:"id"`
	ReelsTitle   string    `json:"reels_title"`
	VideoReels   string    `json:"video_reels"`
	Place        *string   `json:"place"`
	UserID       int       `json:"user_id"`
	Author       string    `json:"author"`
	ProfilePhoto *string   `json:"profile_photo"`
	IsArchived   bool      `json:"is_archived"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"commentarion_count"`
	ViewCount    int       `json:"view_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewReel(r *models.Reel) Reel {
	return Reel{
		ID:           r.ID,
		ReelsTitle:   r.Title,
		VideoReels:   r.Video,
		Place:        r.Place,
		UserID:       r.UserID,
		Author:       r.Owner.Username,
		ProfilePhoto: r.Owner.ProfilePhoto,
		IsArchived:   r.IsArchived,
		LikeCount:    r.LikeCount,
		CommentCount: r.CommentCount,
		ViewCount:    r.ViewCount,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

type Comment struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	ContentID    *int      `json:"content_id,omitempty"`
	ReelID       *int      `json:"video_reels_id,omitempty"`
	UserID       int       `json:"user_id"`
	User         string    `json:"user"`
	ProfilePhoto *string   `json:"profile_photo"`
	DatePub      time.Time `json:"date_pub"`
}

func NewComment(c *models.Comment) Comment {
	return Comment{
		ID:           c.ID,
		Title:        c.Body,
		ContentID:    c.ContentID,
		ReelID:       c.ReelID,
		UserID:       c.UserID,
		User:         c.Author.Username,
		ProfilePhoto: c.Author.ProfilePhoto,
		DatePub:      c.CreatedAt.UTC(),
	}
}

// LikeState is returned from a like toggle.
type LikeState struct {
	Liked bool `json:"liked"`
}

type ContentSummary struct {
	ID           int       `json:"id"`
	ContentTitle string    `json:"content_title"`
	ContentPhoto string    `json:"content_photo"`
	CreatedAt    time.Time `json:"created_at"`
}

type ReelSummary struct {
	ID         int       `json:"id"`
	ReelsTitle string    `json:"reels_title"`
	VideoReels string    `json:"video_reels"`
	ViewCount  int       `json:"view_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notification is the public shape pushed over the user channel and
// returned from the notification list.
type Notification struct {
	ID         int             `json:"id"`
	UserID     int             `json:"user_id"`
	SenderID   int             `json:"sender_id"`
	Type       string          `json:"type"`
	IsRead     bool            `json:"is_read"`
	CreatedAt  time.Time       `json:"created_at"`
	Sender     *User           `json:"sender"`
	Content    *ContentSummary `json:"content"`
	VideoReels *ReelSummary    `json:"video_reels"`
}

func NewNotification(n *models.Notification) Notification {
	v := Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		SenderID:  n.SenderID,
		Type:      string(n.Type),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.UTC(),
	}
	if n.Sender != nil {
		s := NewUser(*n.Sender)
		v.Sender = &s
	}
	if c := n.Content; c != nil {
		v.Content = &ContentSummary{ID: c.ID, ContentTitle: c.Title, ContentPhoto: c.Photo, CreatedAt: c.CreatedAt.UTC()}
	}
	if r := n.Reel; r != nil {
		v.VideoReels = &ReelSummary{ID: r.ID, ReelsTitle: r.Title, VideoReels: r.Video, ViewCount: r.ViewCount, CreatedAt: r.CreatedAt.UTC()}
	}
	return v
}

type Story struct {
	ID           int       `json:"id"`
	Content      string    `json:"content"`
	AuthorID     int       `json:"author_id"`
	Author       string    `json:"author"`
	ProfilePhoto *string   `json:"profile_photo"`
	ViewsCount   int       `json:"views_count"`
	CreatedAt    time.Time `json:"created_at"`
	DeleteAt     time.Time `json:"delete_at"`
}

func NewStory(s *models.Story) Story {
	return Story{
		ID:           s.ID,
		Content:      s.Body,
		AuthorID:     s.AuthorID,
		Author:       s.Author.Username,
		ProfilePhoto: s.Author.ProfilePhoto,
		ViewsCount:   s.ViewsCount,
		CreatedAt:    s.CreatedAt.UTC(),
		DeleteAt:     s.DeleteAt.UTC(),
	}
}

type Profile struct {
	ID           int     `json:"id"`
	Username     string  `json:"username"`
	Name         *string `json:"name"`
	Surname      *string `json:"surname"`
	Biography    *string `json:"biography"`
	ProfilePhoto *string `json:"profile_photo"`
	IsClosed     bool    `json:"is_closed"`
	Followers    int     `json:"followers"`
	Following    int     `json:"following"`
}

func NewProfile(u *models.User, followers, following int) Profile {
	return Profile{
		ID:           u.ID,
		Username:     u.Username,
		Name:         u.Name,
		Surname:      u.Surname,
		Biography:    u.Biography,
		ProfilePhoto: u.ProfilePhoto,
		IsClosed:     u.IsClosed,
		Followers:    followers,
		Following:    following,
	}
}
