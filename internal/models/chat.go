package models

import "time"

type Chat struct {
	ID        int       `json:"id"`
	AuthorID  int       `json:"author_id"`
	Members   []int     `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessage is a persisted message. Author is filled by the repository join.
type ChatMessage struct {
	ID        int         `json:"id"`
	ChatID    int         `json:"chat_id"`
	AuthorID  int         `json:"author_id"`
	Text      string      `json:"text"`
	ImageFile *string     `json:"img_file"`
	Edited    bool        `json:"is_updated"`
	CreatedAt time.Time   `json:"created_at"`
	Author    UserSummary `json:"author"`
}

type ShareKind string

const (
	ShareContent ShareKind = "content"
	ShareReel    ShareKind = "reel"
	ShareUser    ShareKind = "user"
)

// SharedItem records a content post, reel or user forwarded into a chat.
// Exactly one of Content, Reel, User is set when loaded with its target.
type SharedItem struct {
	ID        int         `json:"id"`
	ChatID    int         `json:"chat_id"`
	SenderID  int         `json:"sender_id"`
	Kind      ShareKind   `json:"kind"`
	TargetID  int         `json:"target_id"`
	Message   *string     `json:"message_for_sending_content"`
	CreatedAt time.Time   `json:"created_at"`
	Sender    UserSummary `json:"sender"`

	Content *Content     `json:"content,omitempty"`
	Reel    *Reel        `json:"reel,omitempty"`
	User    *UserSummary `json:"user,omitempty"`
}
