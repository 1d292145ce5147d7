package models

import "time"

type Content struct {
	ID           int         `json:"id"`
	Title        string      `json:"content_title"`
	Photo        string      `json:"content_photo"`
	Audience     string      `json:"content_for"`
	AuthorID     int         `json:"author_id"`
	IsArchived   bool        `json:"is_archived"`
	ViewCount    int         `json:"view_count"`
	LikeCount    int         `json:"like_count"`
	CommentCount int         `json:"commentarion_count"`
	CreatedAt    time.Time   `json:"created_at"`
	Author       UserSummary `json:"author"`
}

type Reel struct {
	ID           int         `json:"id"`
	Title        string      `json:"reels_title"`
	Video        string      `json:"video_reels"`
	Place        *string     `json:"place"`
	UserID       int         `json:"user_id"`
	IsArchived   bool        `json:"is_archived"`
	ViewCount    int         `json:"view_count"`
	LikeCount    int         `json:"like_count"`
	CommentCount int         `json:"commentarion_count"`
	CreatedAt    time.Time   `json:"created_at"`
	Owner        UserSummary `json:"user"`
}

// Story is an ephemeral post removed by the TTL sweep once DeleteAt passes.
type Story struct {
	ID         int         `json:"id"`
	AuthorID   int         `json:"author_id"`
	Body       string      `json:"content"`
	ViewsCount int         `json:"views_count"`
	CreatedAt  time.Time   `json:"created_at"`
	DeleteAt   time.Time   `json:"delete_at"`
	Author     UserSummary `json:"author"`
}

// Comment is attached to exactly one of a content post or a reel.
type Comment struct {
	ID        int         `json:"id"`
	UserID    int         `json:"user_id"`
	ContentID *int        `json:"content_id"`
	ReelID    *int        `json:"video_reels_id"`
	Body      string      `json:"title"`
	CreatedAt time.Time   `json:"date_pub"`
	Author    UserSummary `json:"user"`
}
