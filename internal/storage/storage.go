package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"fadechat/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Storage is everything the hub needs from the outside world: the profile
// lookup, the durable chat/message store and the short-TTL pending cache.
type Storage interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	CreateChat(ctx context.Context, memberIDs ...string) (*models.Chat, error)

	SaveMessage(ctx context.Context, msg *models.ChatMessage) error
	FindMessageByGuid(ctx context.Context, guid string) (*models.ChatMessage, error)
	UpdateMessageState(ctx context.Context, guid string, state models.MessageState) error
	UpdateChatSummary(ctx context.Context, chatID int, senderID, lastMessage string) error
	RecountUnread(ctx context.Context, chatID int, viewerID string) error

	StagePending(ctx context.Context, msg *models.ChatMessage) error
	GetPending(ctx context.Context, guid string) (*models.ChatMessage, error)
	EvictPending(ctx context.Context, guid string) error
}

type Service struct {
	DB         *gorm.DB
	Redis      *redis.Client
	PendingTTL time.Duration
	Log        *slog.Logger
}

func NewStorageService(db *gorm.DB, rdb *redis.Client, pendingTTL time.Duration, log *slog.Logger) *Service {
	return &Service{
		DB:         db,
		Redis:      rdb,
		PendingTTL: pendingTTL,
		Log:        log,
	}
}

// SaveUser upserts the profile row.
func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).Save(user).Error
}

// GetUserByID returns nil, nil when no profile exists for the id.
func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateChat inserts a new chat and attaches the given users as members.
// Member ids without a stored profile are skipped rather than failing the
// chat creation.
func (s *Service) CreateChat(ctx context.Context, memberIDs ...string) (*models.Chat, error) {
	chat := &models.Chat{}
	if err := s.DB.WithContext(ctx).Create(chat).Error; err != nil {
		return nil, err
	}

	var members []models.User
	if len(memberIDs) > 0 {
		if err := s.DB.WithContext(ctx).Where("id IN ?", memberIDs).Find(&members).Error; err != nil {
			return nil, err
		}
	}
	if len(members) > 0 {
		if err := s.DB.WithContext(ctx).Model(chat).Association("Users").Append(&members); err != nil {
			return nil, err
		}
	}
	chat.Users = members
	return chat, nil
}

func (s *Service) SaveMessage(ctx context.Context, msg *models.ChatMessage) error {
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		s.Log.Error("failed to save message", "guid", msg.Guid, "chat", msg.ChatID, "err", err)
		return err
	}
	return nil
}

// FindMessageByGuid returns nil, nil for an unknown guid.
func (s *Service) FindMessageByGuid(ctx context.Context, guid string) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	err := s.DB.WithContext(ctx).First(&msg, "guid = ?", guid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// UpdateMessageState writes the new delivery state for the message with the
// given guid. Missing rows are a no-op: the message may still be sitting in
// the pending cache and gets persisted with its final state later.
func (s *Service) UpdateMessageState(ctx context.Context, guid string, state models.MessageState) error {
	return s.DB.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("guid = ?", guid).
		Update("state", state).Error
}

// UpdateChatSummary refreshes the denormalized chat row after a send: the
// last-message snapshot and the count of messages the partner has not read.
func (s *Service) UpdateChatSummary(ctx context.Context, chatID int, senderID, lastMessage string) error {
	unread, err := s.countUnread(ctx, chatID, senderID)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Model(&models.Chat{}).
		Where("id = ?", chatID).
		Updates(map[string]interface{}{
			"unread_count":           unread,
			"last_message":           lastMessage,
			"last_message_sender_id": senderID,
		}).Error
}

// RecountUnread refreshes the unread counter from the viewer's perspective
// after messages were marked read.
func (s *Service) RecountUnread(ctx context.Context, chatID int, viewerID string) error {
	unread, err := s.countUnread(ctx, chatID, viewerID)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Model(&models.Chat{}).
		Where("id = ?", chatID).
		Update("unread_count", unread).Error
}

func (s *Service) countUnread(ctx context.Context, chatID int, viewerID string) (int64, error) {
	var unread int64
	err := s.DB.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("chat_id = ? AND state <> ? AND sender_id <> ?", chatID, models.StateRead, viewerID).
		Count(&unread).Error
	return unread, err
}
