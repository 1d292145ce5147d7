package models

import "time"

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	ProfilePhoto *string   `json:"profile_photo"`
	Name         *string   `json:"name"`
	Surname      *string   `json:"surname"`
	Biography    *string   `json:"biography"`
	IsClosed     bool      `json:"is_closed"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserSummary is the denormalized author/sender block embedded in chat and notification rows.
type UserSummary struct {
	ID           int     `json:"id"`
	Username     string  `json:"username"`
	ProfilePhoto *string `json:"profile_photo"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, ProfilePhoto: u.ProfilePhoto}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}
