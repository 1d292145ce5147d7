// Package repotest provides in-memory implementations of the repository
// interfaces for service and handler tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"meno/internal/models"
	"meno/internal/repositories"
)

type pair struct{ a, b int }

// Store holds every table. All repositories returned from one Store share it.
type Store struct {
	mu  sync.Mutex
	seq int
	now func() time.Time

	users         map[int]*models.User
	subscriptions map[pair]bool
	contents      map[int]*models.Content
	contentLikes  map[pair]bool
	reels         map[int]*models.Reel
	reelLikes     map[pair]bool
	stories       map[int]*models.Story
	comments      map[int]*models.Comment
	chats         map[int]*models.Chat
	messages      map[int]*models.ChatMessage
	shares        map[int]*models.SharedItem
	notifications map[int]*models.Notification
}

func NewStore() *Store {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := &Store{
		users:         make(map[int]*models.User),
		subscriptions: make(map[pair]bool),
		contents:      make(map[int]*models.Content),
		contentLikes:  make(map[pair]bool),
		reels:         make(map[int]*models.Reel),
		reelLikes:     make(map[pair]bool),
		stories:       make(map[int]*models.Story),
		comments:      make(map[int]*models.Comment),
		chats:         make(map[int]*models.Chat),
		messages:      make(map[int]*models.ChatMessage),
		shares:        make(map[int]*models.SharedItem),
		notifications: make(map[int]*models.Notification),
	}
	// Every row gets a strictly increasing timestamp so newest-first ordering is deterministic.
	s.now = func() time.Time { return base.Add(time.Duration(s.seq) * time.Second) }
	return s
}

func (s *Store) nextID() int {
	s.seq++
	return s.seq
}

func (s *Store) Users() repositories.UserRepository                 { return &userRepo{s} }
func (s *Store) Chats() repositories.ChatRepository                 { return &chatRepo{s} }
func (s *Store) Contents() repositories.ContentRepository           { return &contentRepo{s} }
func (s *Store) Reels() repositories.ReelRepository                 { return &reelRepo{s} }
func (s *Store) Notifications() repositories.NotificationRepository { return &notificationRepo{s} }
func (s *Store) Stories() repositories.StoryRepository              { return &storyRepo{s} }
func (s *Store) Comments() repositories.CommentRepository           { return &commentRepo{s} }

// AddUser inserts a user directly and returns it.
func (s *Store) AddUser(username string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{ID: s.nextID(), Username: username, Email: username + "@example.com"}
	u.CreatedAt = s.now()
	s.users[u.ID] = u
	return u
}

// MessageCount reports how many messages exist for chatID.
func (s *Store) MessageCount(chatID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.messages {
		if m.ChatID == chatID {
			n++
		}
	}
	return n
}

// ShareCount reports how many shared items exist for chatID.
func (s *Store) ShareCount(chatID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.shares {
		if it.ChatID == chatID {
			n++
		}
	}
	return n
}

// NotificationCount reports how many notifications are addressed to userID.
func (s *Store) NotificationCount(userID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.notifications {
		if it.UserID == userID {
			n++
		}
	}
	return n
}

func (s *Store) summary(id int) models.UserSummary {
	if u, ok := s.users[id]; ok {
		return u.Summary()
	}
	return models.UserSummary{ID: id}
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	user.ID = r.s.nextID()
	user.CreatedAt = r.s.now()
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *userRepo) ExistingIDs(_ context.Context, ids []int) ([]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := map[int]bool{}
	var out []int
	for _, id := range ids {
		if _, ok := r.s.users[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (r *userRepo) Follow(_ context.Context, followerID, followedID int) (*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[followedID]; !ok {
		return nil, repositories.ErrNotFound
	}
	key := pair{followerID, followedID}
	if r.s.subscriptions[key] {
		return nil, repositories.ErrDuplicate
	}
	r.s.subscriptions[key] = true
	n := &models.Notification{ID: r.s.nextID(), UserID: followedID, SenderID: followerID, Type: models.NotificationFollow}
	n.CreatedAt = r.s.now()
	r.s.notifications[n.ID] = n
	cp := *n
	return &cp, nil
}

func (r *userRepo) Unfollow(_ context.Context, followerID, followedID int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := pair{followerID, followedID}
	if !r.s.subscriptions[key] {
		return false, nil
	}
	delete(r.s.subscriptions, key)
	return true, nil
}

func (r *userRepo) FollowCounts(_ context.Context, userID int) (followers, following int, err error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k := range r.s.subscriptions {
		if k.b == userID {
			followers++
		}
		if k.a == userID {
			following++
		}
	}
	return followers, following, nil
}
