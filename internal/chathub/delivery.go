package chathub

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fadechat/backend/internal/models"
	"fadechat/backend/internal/storage"
)

// DeliveryService advances messages through the Sent -> Received -> Read
// lifecycle. A sent message is staged in the pending cache first, fanned out
// to the chat group, then persisted asynchronously; the cache entry bridges
// the gap so Mark* calls can resolve a guid before its durable row exists.
//
// The guid is the sole correlation key: transport retries of any operation
// land on the same entry and state never regresses.
type DeliveryService struct {
	Presence   *PresenceRegistry
	Dispatcher *Dispatcher
	Storage    storage.Storage
	Log        *slog.Logger

	persists sync.WaitGroup
}

func NewDeliveryService(presence *PresenceRegistry, dispatcher *Dispatcher, s storage.Storage, log *slog.Logger) *DeliveryService {
	return &DeliveryService{
		Presence:   presence,
		Dispatcher: dispatcher,
		Storage:    s,
		Log:        log,
	}
}

// SendMessage stages, fans out and persists a new message. Calls without an
// authenticated sender or with an empty body are silently dropped.
func (d *DeliveryService) SendMessage(ctx context.Context, connID string, msg models.ChatMessage) error {
	userID := d.Presence.GetUserID(connID)
	if userID == "" || strings.TrimSpace(msg.Body) == "" {
		return nil
	}

	msg.SenderID = userID
	msg.State = models.StateSent
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	if err := d.Storage.StagePending(ctx, &msg); err != nil {
		// The message still reaches the group and the durable store; only the
		// fast-path lookup for early Mark* calls is lost.
		d.Log.Error("failed to stage pending message", "guid", msg.Guid, "err", err)
	}

	d.Dispatcher.BroadcastExceptSender(msg.ChatID, connID, models.Event{
		Event: models.EventReceiveMessage,
		Data:  msg,
	})

	d.persists.Add(1)
	go d.persistSent(context.WithoutCancel(ctx), msg)
	return nil
}

// persistSent writes the message durably, refreshes the chat summary and
// evicts the cache entry. On a failed write the entry stays staged for later
// reconciliation; nothing is retried here.
func (d *DeliveryService) persistSent(ctx context.Context, msg models.ChatMessage) {
	defer d.persists.Done()

	// A Mark* call may have advanced the staged copy while this persist was
	// queued. The staged state is authoritative for the initial write.
	if staged, err := d.Storage.GetPending(ctx, msg.Guid); err == nil && staged != nil {
		msg.State = staged.State
	}

	if err := d.Storage.SaveMessage(ctx, &msg); err != nil {
		d.Log.Error("message persistence failed, entry kept in pending cache", "guid", msg.Guid, "chat", msg.ChatID, "err", err)
		// Flag the staged copy so anyone resolving the guid sees the failure;
		// Error is terminal and mark calls will not advance it.
		msg.State = models.StateError
		if stageErr := d.Storage.StagePending(ctx, &msg); stageErr != nil {
			d.Log.Error("failed to flag staged message as errored", "guid", msg.Guid, "err", stageErr)
		}
		return
	}
	if err := d.Storage.UpdateChatSummary(ctx, msg.ChatID, msg.SenderID, msg.Body); err != nil {
		d.Log.Error("failed to update chat summary", "chat", msg.ChatID, "err", err)
	}

	// A mark that landed while SaveMessage was in flight updated zero rows and
	// advanced only the staged copy. Catch the row up before evicting; if the
	// catch-up write fails the entry stays staged so the state is not lost.
	if staged, err := d.Storage.GetPending(ctx, msg.Guid); err == nil && staged != nil && msg.State.CanAdvanceTo(staged.State) {
		if err := d.Storage.UpdateMessageState(ctx, msg.Guid, staged.State); err != nil {
			d.Log.Error("failed to catch message state up after persist", "guid", msg.Guid, "state", staged.State, "err", err)
			return
		}
	}

	if err := d.Storage.EvictPending(ctx, msg.Guid); err != nil {
		d.Log.Error("failed to evict pending entry", "guid", msg.Guid, "err", err)
	}
}

// MarkReceived advances the message to Received and notifies the rest of the
// group. Repeat calls are idempotent no-ops that still re-emit the
// confirmation event so a reconnecting sender can catch up.
func (d *DeliveryService) MarkReceived(ctx context.Context, connID string, chatID int, guid string) error {
	return d.mark(ctx, connID, chatID, guid, models.StateReceived, models.EventMessageReceived)
}

// MarkRead advances the message to Read, refreshes the caller's unread
// counter and notifies the rest of the group.
func (d *DeliveryService) MarkRead(ctx context.Context, connID string, chatID int, guid string) error {
	return d.mark(ctx, connID, chatID, guid, models.StateRead, models.EventMessageRead)
}

func (d *DeliveryService) mark(ctx context.Context, connID string, chatID int, guid string, target models.MessageState, eventName string) error {
	userID := d.Presence.GetUserID(connID)
	if userID == "" {
		return nil
	}

	msg, err := d.resolveMessage(ctx, guid)
	if err != nil {
		return err
	}
	if msg == nil {
		// Expired cache entry or cross-chat noise; deliberately not an error.
		d.Log.Debug("state advance for unknown guid ignored", "guid", guid, "chat", chatID)
		return nil
	}

	if msg.State.CanAdvanceTo(target) {
		msg.State = target
		if err := d.Storage.UpdateMessageState(ctx, guid, target); err != nil {
			d.Log.Error("failed to persist message state", "guid", guid, "state", target, "err", err)
			return err
		}
		// Keep any staged copy in step so a persist that races this call
		// writes the advanced state.
		if staged, err := d.Storage.GetPending(ctx, guid); err == nil && staged != nil {
			staged.State = target
			if err := d.Storage.StagePending(ctx, staged); err != nil {
				d.Log.Error("failed to refresh staged message state", "guid", guid, "err", err)
			}
		}
		if target == models.StateRead {
			if err := d.Storage.RecountUnread(ctx, msg.ChatID, userID); err != nil {
				d.Log.Error("failed to recount unread messages", "chat", msg.ChatID, "err", err)
			}
		}
	}

	// Re-emit even when the state was already at or past the target: the
	// sender may have missed the first confirmation while reconnecting.
	d.Dispatcher.BroadcastExceptSender(msg.ChatID, connID, models.Event{
		Event: eventName,
		Data:  *msg,
	})
	return nil
}

// resolveMessage looks the guid up in the pending cache first and falls back
// to the durable store. nil, nil means the guid is unknown to both.
func (d *DeliveryService) resolveMessage(ctx context.Context, guid string) (*models.ChatMessage, error) {
	msg, err := d.Storage.GetPending(ctx, guid)
	if err != nil {
		d.Log.Error("pending cache lookup failed", "guid", guid, "err", err)
	}
	if msg != nil {
		return msg, nil
	}
	return d.Storage.FindMessageByGuid(ctx, guid)
}

// Wait blocks until all in-flight persistence goroutines finish. Called on
// shutdown so staged messages are not abandoned mid-write.
func (d *DeliveryService) Wait() {
	d.persists.Wait()
}
