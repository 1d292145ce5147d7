package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"meno/internal/log"
	"meno/internal/media"
	"meno/internal/metrics"
	"meno/internal/models"
	"meno/internal/realtime"
	"meno/internal/repositories"
	"meno/internal/views"
)

// ImageSaver stores an uploaded image and returns its public path.
// RemoveImage undoes a save whose row never made it to the database.
type ImageSaver interface {
	SaveImage(r io.Reader) (string, error)
	RemoveImage(path string) error
}

// ChatService owns chat membership rules, persistence of messages and
// shares, and the broadcasts that follow a successful write.
type ChatService struct {
	chats    repositories.ChatRepository
	users    repositories.UserRepository
	contents repositories.ContentRepository
	reels    repositories.ReelRepository
	images   ImageSaver
	hub      Broadcaster
	log      zerolog.Logger
}

func NewChatService(
	chats repositories.ChatRepository,
	users repositories.UserRepository,
	contents repositories.ContentRepository,
	reels repositories.ReelRepository,
	images ImageSaver,
	hub Broadcaster,
) *ChatService {
	return &ChatService{
		chats:    chats,
		users:    users,
		contents: contents,
		reels:    reels,
		images:   images,
		hub:      hub,
		log:      log.WithComponent("chat"),
	}
}

// CreateChat opens a chat between requester and participantIDs. Any
// existing chat sharing a participant with the request is a conflict.
func (s *ChatService) CreateChat(ctx context.Context, requesterID int, participantIDs []int) (views.ChatSummary, error) {
	participants := dedupe(participantIDs)
	if len(participants) == 0 {
		return views.ChatSummary{}, fmt.Errorf("participants are required: %w", ErrInvalid)
	}

	members := dedupe(append(participants, requesterID))
	existing, err := s.users.ExistingIDs(ctx, members)
	if err != nil {
		return views.ChatSummary{}, fmt.Errorf("check participants: %w", err)
	}
	if len(existing) != len(members) {
		return views.ChatSummary{}, fmt.Errorf("participant %d: %w", firstMissing(members, existing), ErrNotFound)
	}

	chat, err := s.chats.Create(ctx, requesterID, members, participants)
	if err != nil {
		return views.ChatSummary{}, repoErr(err, "create chat")
	}
	s.log.Info().Int("chat_id", chat.ID).Ints("members", members).Msg("chat created")
	return views.NewChatSummary(chat), nil
}

// SendMessage persists a message from a chat member and broadcasts the
// stored record to the chat.
func (s *ChatService) SendMessage(ctx context.Context, chatID, requesterID int, text string, image io.Reader) (views.Message, error) {
	if err := s.EnsureMember(ctx, chatID, requesterID); err != nil {
		return views.Message{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" && image == nil {
		return views.Message{}, fmt.Errorf("message is empty: %w", ErrInvalid)
	}

	msg := &models.ChatMessage{ChatID: chatID, AuthorID: requesterID, Text: text}
	if image != nil {
		path, err := s.images.SaveImage(image)
		if err != nil {
			if errors.Is(err, media.ErrBadImage) {
				return views.Message{}, fmt.Errorf("%v: %w", err, ErrInvalid)
			}
			return views.Message{}, fmt.Errorf("save image: %w", err)
		}
		msg.ImageFile = &path
	}
	if err := s.chats.CreateMessage(ctx, msg); err != nil {
		if msg.ImageFile != nil {
			s.discardImage(*msg.ImageFile)
		}
		return views.Message{}, repoErr(err, "create message")
	}
	metrics.ChatMessagesTotal.Inc()

	v := views.NewMessage(msg)
	s.broadcast(chatID, v)
	return v, nil
}

// SendContent shares a non-archived content post into the chat.
func (s *ChatService) SendContent(ctx context.Context, chatID, requesterID, contentID int, message *string) (views.SharedContent, error) {
	if err := s.EnsureMember(ctx, chatID, requesterID); err != nil {
		return views.SharedContent{}, err
	}
	content, err := s.contents.Get(ctx, contentID)
	if err != nil {
		return views.SharedContent{}, repoErr(err, fmt.Sprintf("content %d", contentID))
	}
	if content.IsArchived {
		return views.SharedContent{}, fmt.Errorf("content %d is archived: %w", contentID, ErrNotFound)
	}

	item := &models.SharedItem{ChatID: chatID, SenderID: requesterID, Kind: models.ShareContent, TargetID: contentID, Message: message, Content: content}
	if err := s.share(ctx, item); err != nil {
		return views.SharedContent{}, err
	}
	return views.NewSharedContent(item), nil
}

// SendReel shares a non-archived reel into the chat.
func (s *ChatService) SendReel(ctx context.Context, chatID, requesterID, reelID int, message *string) (views.SharedReel, error) {
	if err := s.EnsureMember(ctx, chatID, requesterID); err != nil {
		return views.SharedReel{}, err
	}
	reel, err := s.reels.Get(ctx, reelID)
	if err != nil {
		return views.SharedReel{}, repoErr(err, fmt.Sprintf("reel %d", reelID))
	}
	if reel.IsArchived {
		return views.SharedReel{}, fmt.Errorf("reel %d is archived: %w", reelID, ErrNotFound)
	}

	item := &models.SharedItem{ChatID: chatID, SenderID: requesterID, Kind: models.ShareReel, TargetID: reelID, Message: message, Reel: reel}
	if err := s.share(ctx, item); err != nil {
		return views.SharedReel{}, err
	}
	return views.NewSharedReel(item), nil
}

// SendUser shares another user's profile into the chat.
func (s *ChatService) SendUser(ctx context.Context, chatID, requesterID, userID int) (views.SharedUser, error) {
	if err := s.EnsureMember(ctx, chatID, requesterID); err != nil {
		return views.SharedUser{}, err
	}
	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return views.SharedUser{}, repoErr(err, fmt.Sprintf("user %d", userID))
	}

	summary := target.Summary()
	item := &models.SharedItem{ChatID: chatID, SenderID: requesterID, Kind: models.ShareUser, TargetID: userID, User: &summary}
	if err := s.share(ctx, item); err != nil {
		return views.SharedUser{}, err
	}
	return views.NewSharedUser(item), nil
}

func (s *ChatService) share(ctx context.Context, item *models.SharedItem) error {
	sender, err := s.users.GetByID(ctx, item.SenderID)
	if err != nil {
		return repoErr(err, "load sender")
	}
	item.Sender = sender.Summary()
	if err := s.chats.CreateShare(ctx, item); err != nil {
		return repoErr(err, "create share")
	}
	s.broadcast(item.ChatID, views.Share(item))
	return nil
}

// DeleteMessage removes a message. Only its author may delete it.
func (s *ChatService) DeleteMessage(ctx context.Context, messageID, requesterID int) error {
	msg, err := s.chats.GetMessage(ctx, messageID)
	if err != nil {
		return repoErr(err, fmt.Sprintf("message %d", messageID))
	}
	if msg.AuthorID != requesterID {
		return fmt.Errorf("message %d belongs to another user: %w", messageID, ErrUnauthorized)
	}
	return repoErr(s.chats.DeleteMessage(ctx, messageID), fmt.Sprintf("message %d", messageID))
}

// DeleteShare removes a shared item. Items sent by someone else are
// reported as missing.
func (s *ChatService) DeleteShare(ctx context.Context, shareID, requesterID int) error {
	item, err := s.chats.GetShare(ctx, shareID)
	if err != nil {
		return repoErr(err, fmt.Sprintf("share %d", shareID))
	}
	if item.SenderID != requesterID {
		return fmt.Errorf("share %d: %w", shareID, ErrNotFound)
	}
	return repoErr(s.chats.DeleteShare(ctx, shareID), fmt.Sprintf("share %d", shareID))
}

// DeleteChat removes the chat with its memberships, messages and shares.
func (s *ChatService) DeleteChat(ctx context.Context, chatID, requesterID int) error {
	if err := s.EnsureMember(ctx, chatID, requesterID); err != nil {
		return err
	}
	if err := s.chats.Delete(ctx, chatID); err != nil {
		return repoErr(err, fmt.Sprintf("chat %d", chatID))
	}
	s.log.Info().Int("chat_id", chatID).Int("by", requesterID).Msg("chat deleted")
	return nil
}

// GetChat assembles a chat for one of its members.
func (s *ChatService) GetChat(ctx context.Context, chatID, requesterID int) (views.ChatDetail, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return views.ChatDetail{}, repoErr(err, fmt.Sprintf("chat %d", chatID))
	}
	if !contains(chat.Members, requesterID) {
		return views.ChatDetail{}, fmt.Errorf("chat %d: %w", chatID, ErrForbidden)
	}

	parts := views.ChatParts{Chat: chat}
	if parts.Participants, err = s.chats.Participants(ctx, chatID); err != nil {
		return views.ChatDetail{}, fmt.Errorf("load participants: %w", err)
	}
	if parts.Messages, err = s.chats.ListMessages(ctx, chatID); err != nil {
		return views.ChatDetail{}, fmt.Errorf("load messages: %w", err)
	}
	if parts.Contents, err = s.chats.ListSharedContents(ctx, chatID); err != nil {
		return views.ChatDetail{}, fmt.Errorf("load shared contents: %w", err)
	}
	if parts.Reels, err = s.chats.ListSharedReels(ctx, chatID); err != nil {
		return views.ChatDetail{}, fmt.Errorf("load shared reels: %w", err)
	}
	if parts.Users, err = s.chats.ListSharedUsers(ctx, chatID); err != nil {
		return views.ChatDetail{}, fmt.Errorf("load shared users: %w", err)
	}
	return views.NewChatDetail(parts), nil
}

func (s *ChatService) ListUserChats(ctx context.Context, requesterID int) ([]views.ChatSummary, error) {
	chats, err := s.chats.ListUserChats(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	out := make([]views.ChatSummary, 0, len(chats))
	for _, c := range chats {
		out = append(out, views.NewChatSummary(c))
	}
	return out, nil
}

// EnsureMember fails with ErrNotFound when the chat is absent and with
// ErrForbidden when userID is not one of its members.
func (s *ChatService) EnsureMember(ctx context.Context, chatID, userID int) error {
	ok, err := s.chats.IsMember(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if ok {
		return nil
	}
	if _, err := s.chats.Get(ctx, chatID); err != nil {
		return repoErr(err, fmt.Sprintf("chat %d", chatID))
	}
	return fmt.Errorf("chat %d: %w", chatID, ErrForbidden)
}

func (s *ChatService) discardImage(path string) {
	if err := s.images.RemoveImage(path); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("remove orphaned image")
	}
}

func (s *ChatService) broadcast(chatID int, payload any) {
	if _, err := s.hub.Send(realtime.ChatKey(chatID), payload); err != nil {
		s.log.Error().Err(err).Int("chat_id", chatID).Msg("broadcast")
	}
}

func dedupe(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func contains(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func firstMissing(want, have []int) int {
	for _, id := range want {
		if !contains(have, id) {
			return id
		}
	}
	return 0
}
