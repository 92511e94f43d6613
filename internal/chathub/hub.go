package chathub

import (
	"context"
	"errors"
	"log/slog"

	"fadechat/backend/internal/models"
	"fadechat/backend/internal/storage"
	apperrors "fadechat/backend/pkg/errors"
)

const anonymousName = "Anonymous"

// Hub wires the presence registry, group manager, matcher, delivery service
// and fanout dispatcher together and routes client commands to them. Handlers
// run on each connection's own goroutine; the shared registries carry their
// own fine-grained locking, so there is no central loop serializing traffic.
type Hub struct {
	Presence   *PresenceRegistry
	Groups     *GroupManager
	Dispatcher *Dispatcher
	Matcher    *MatcherService
	Delivery   *DeliveryService
	Storage    storage.Storage
	Log        *slog.Logger
}

func NewHub(s storage.Storage, log *slog.Logger) *Hub {
	presence := NewPresenceRegistry()
	groups := NewGroupManager()
	dispatcher := NewDispatcher(groups, log)
	return &Hub{
		Presence:   presence,
		Groups:     groups,
		Dispatcher: dispatcher,
		Matcher:    NewMatcherService(presence, groups, s, log),
		Delivery:   NewDeliveryService(presence, dispatcher, s, log),
		Storage:    s,
		Log:        log,
	}
}

// Connect registers a new client connection. Authenticated connections join
// the presence registry, announce themselves to everyone else and get back a
// snapshot of all active user ids; anonymous connections are registered for
// delivery only.
func (h *Hub) Connect(ctx context.Context, c Client) {
	connID := c.GetConnectionID()
	h.Dispatcher.Register(c)

	userID := c.GetUserID()
	if userID == "" {
		h.Log.Debug("anonymous connection registered", "conn", connID)
		return
	}

	h.Presence.Join(connID, userID)

	h.Dispatcher.BroadcastToOthers(connID, models.Event{
		Event: models.EventUserConnected,
		Data:  models.UserPresence{UserID: userID, DisplayName: h.displayName(ctx, userID)},
	})
	h.Dispatcher.SendToConnection(connID, models.Event{
		Event: models.EventActiveUsers,
		Data:  h.Presence.ActiveUserIDs(""),
	})

	h.Log.Info("user connected", "conn", connID, "user", userID)
}

// Disconnect tears the connection down. Safe to run concurrently with
// in-flight sends and marks for the same connection: membership and presence
// are removed first and any fanout racing the removal simply misses the
// connection.
func (h *Hub) Disconnect(ctx context.Context, c Client) {
	connID := c.GetConnectionID()
	h.Dispatcher.Unregister(connID)
	h.Groups.LeaveAll(connID)

	if userID, ok := h.Presence.Leave(connID); ok {
		h.Dispatcher.BroadcastToOthers(connID, models.Event{
			Event: models.EventUserDisconnected,
			Data:  userID,
		})
		h.Log.Info("user disconnected", "conn", connID, "user", userID)
	}
}

// Dispatch routes one decoded command. Matchmaking failures are reported back
// to the calling connection as an Error event; send/mark operations without a
// resolved identity silently no-op instead. That asymmetry mirrors the
// product's observed behavior and is intentional until directed otherwise.
func (h *Hub) Dispatch(ctx context.Context, c Client, cmd Command) {
	connID := c.GetConnectionID()

	switch cmd := cmd.(type) {
	case JoinChatCommand:
		h.handleJoinChat(ctx, connID, cmd.ChatID)

	case LeaveChatCommand:
		h.handleLeaveChat(ctx, connID, cmd.ChatID)

	case SendMessageCommand:
		if err := h.Delivery.SendMessage(ctx, connID, cmd.Message); err != nil {
			h.Log.Error("send failed", "conn", connID, "guid", cmd.Message.Guid, "err", err)
		}

	case MarkMessageReceivedCommand:
		if err := h.Delivery.MarkReceived(ctx, connID, cmd.ChatID, cmd.Guid); err != nil {
			h.Log.Error("mark received failed", "conn", connID, "guid", cmd.Guid, "err", err)
		}

	case MarkMessageReadCommand:
		if err := h.Delivery.MarkRead(ctx, connID, cmd.ChatID, cmd.Guid); err != nil {
			h.Log.Error("mark read failed", "conn", connID, "guid", cmd.Guid, "err", err)
		}

	case FindRandomChatCommand:
		chatID, err := h.Matcher.FindRandomChatWithFilters(ctx, connID, cmd.Filters)
		if err != nil {
			h.replyError(c, err)
			return
		}
		h.Dispatcher.SendToConnection(connID, models.Event{
			Event: models.EventChatFound,
			Data:  models.ChatFound{ChatID: chatID},
		})

	default:
		h.replyError(c, apperrors.InvalidArg("unsupported command"))
	}
}

// handleJoinChat adds the connection to the chat group and announces the user
// to the group, named or anonymous.
func (h *Hub) handleJoinChat(ctx context.Context, connID string, chatID int) {
	h.Groups.JoinGroup(connID, chatID)

	userID := h.Presence.GetUserID(connID)
	name := anonymousName
	if userID != "" {
		name = h.displayName(ctx, userID)
	}
	h.Dispatcher.BroadcastToGroup(chatID, models.Event{
		Event: models.EventUserConnected,
		Data:  models.UserPresence{UserID: userID, DisplayName: name},
	})
}

func (h *Hub) handleLeaveChat(ctx context.Context, connID string, chatID int) {
	h.Groups.LeaveGroup(connID, chatID)

	h.Dispatcher.BroadcastToGroup(chatID, models.Event{
		Event: models.EventUserDisconnected,
		Data:  h.Presence.GetUserID(connID),
	})
}

// replyError surfaces a failure to the invoking connection only.
func (h *Hub) replyError(c Client, err error) {
	var appErr *apperrors.AppError
	payload := models.EventErrorPayload{Code: string(apperrors.CodeUnknown), Message: "internal error"}
	if errors.As(err, &appErr) {
		payload = models.EventErrorPayload{Code: string(appErr.Code), Message: appErr.Message}
	}
	h.Dispatcher.SendToConnection(c.GetConnectionID(), models.Event{
		Event: models.EventError,
		Data:  payload,
	})
}

func (h *Hub) displayName(ctx context.Context, userID string) string {
	user, err := h.Storage.GetUserByID(ctx, userID)
	if err != nil || user == nil || user.DisplayName == "" {
		return anonymousName
	}
	return user.DisplayName
}
