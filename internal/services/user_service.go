package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"meno/internal/models"
	"meno/internal/repositories"
	"meno/internal/utils"
	"meno/internal/views"
)

const minPasswordLen = 6

type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) (views.Profile, error)
	Login(ctx context.Context, req models.LoginRequest) (string, error)
	Profile(ctx context.Context, id int) (views.Profile, error)
	Follow(ctx context.Context, followerID, followedID int) error
	Unfollow(ctx context.Context, followerID, followedID int) error
}

// TokenIssuer signs access tokens for a user id.
type TokenIssuer interface {
	Issue(userID int) (string, error)
}

type userService struct {
	repo     repositories.UserRepository
	tokens   TokenIssuer
	notifier Notifier
}

func NewUserService(repo repositories.UserRepository, tokens TokenIssuer, notifier Notifier) UserService {
	return &userService{repo: repo, tokens: tokens, notifier: notifier}
}

func (s *userService) Register(ctx context.Context, req models.RegisterRequest) (views.Profile, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" {
		return views.Profile{}, fmt.Errorf("username is required: %w", ErrInvalid)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return views.Profile{}, fmt.Errorf("email %q: %w", email, ErrInvalid)
	}
	if len(req.Password) < minPasswordLen {
		return views.Profile{}, fmt.Errorf("password must be at least %d characters: %w", minPasswordLen, ErrInvalid)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return views.Profile{}, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.repo.Create(ctx, u); err != nil {
		return views.Profile{}, repoErr(err, "username or email taken")
	}
	return views.NewProfile(u, 0, 0), nil
}

// Login checks the password and returns a signed access token. Unknown
// users and wrong passwords are indistinguishable to the caller.
func (s *userService) Login(ctx context.Context, req models.LoginRequest) (string, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
		}
		return "", fmt.Errorf("load user: %w", err)
	}
	if !utils.CheckPassword(u.PasswordHash, req.Password) {
		return "", fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}
	return s.tokens.Issue(u.ID)
}

func (s *userService) Profile(ctx context.Context, id int) (views.Profile, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return views.Profile{}, repoErr(err, fmt.Sprintf("user %d", id))
	}
	followers, following, err := s.repo.FollowCounts(ctx, id)
	if err != nil {
		return views.Profile{}, fmt.Errorf("follow counts: %w", err)
	}
	return views.NewProfile(u, followers, following), nil
}

// Follow subscribes followerID to followedID and notifies the followed user.
func (s *userService) Follow(ctx context.Context, followerID, followedID int) error {
	if followerID == followedID {
		return fmt.Errorf("cannot follow yourself: %w", ErrInvalid)
	}
	n, err := s.repo.Follow(ctx, followerID, followedID)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return fmt.Errorf("already following user %d: %w", followedID, ErrConflict)
		}
		return repoErr(err, fmt.Sprintf("user %d", followedID))
	}
	s.notifier.Notify(ctx, n)
	return nil
}

func (s *userService) Unfollow(ctx context.Context, followerID, followedID int) error {
	ok, err := s.repo.Unfollow(ctx, followerID, followedID)
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	if !ok {
		return fmt.Errorf("not following user %d: %w", followedID, ErrNotFound)
	}
	return nil
}
