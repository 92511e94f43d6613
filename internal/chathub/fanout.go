package chathub

import (
	"log/slog"
	"sync"

	"fadechat/backend/internal/models"
)

// Dispatcher pushes events to client connections. It carries no state of its
// own beyond the connection directory; within one chat, events reach each
// member in the order they were committed, because every transition is fanned
// out by its committing goroutine before the call returns.
//
// Delivery is best effort per member: a slow or closed client is skipped and
// logged, never blocking or aborting delivery to the rest.
type Dispatcher struct {
	Groups *GroupManager
	Log    *slog.Logger

	clients sync.Map // connection id -> Client
}

func NewDispatcher(groups *GroupManager, log *slog.Logger) *Dispatcher {
	return &Dispatcher{Groups: groups, Log: log}
}

func (d *Dispatcher) Register(c Client) {
	d.clients.Store(c.GetConnectionID(), c)
}

func (d *Dispatcher) Unregister(connID string) {
	d.clients.Delete(connID)
}

func (d *Dispatcher) GetClient(connID string) (Client, bool) {
	v, ok := d.clients.Load(connID)
	if !ok {
		return nil, false
	}
	return v.(Client), true
}

// SendToConnection delivers one event to a single connection.
func (d *Dispatcher) SendToConnection(connID string, event models.Event) {
	if c, ok := d.GetClient(connID); ok {
		d.push(c, event)
	}
}

// BroadcastToGroup delivers the event to every member of the chat.
func (d *Dispatcher) BroadcastToGroup(chatID int, event models.Event) {
	for _, connID := range d.Groups.Members(chatID) {
		d.SendToConnection(connID, event)
	}
}

// BroadcastExceptSender delivers the event to every chat member but the
// sending connection; the sender is never echoed its own event.
func (d *Dispatcher) BroadcastExceptSender(chatID int, senderConnID string, event models.Event) {
	for _, connID := range d.Groups.Members(chatID) {
		if connID == senderConnID {
			continue
		}
		d.SendToConnection(connID, event)
	}
}

// BroadcastToOthers delivers the event to every registered connection except
// the given one. Used for process-wide presence notifications.
func (d *Dispatcher) BroadcastToOthers(exceptConn string, event models.Event) {
	d.clients.Range(func(key, value any) bool {
		if key.(string) != exceptConn {
			d.push(value.(Client), event)
		}
		return true
	})
}

// push hands the event to the client's write pump without blocking. Clients
// that cannot keep up lose events rather than stalling the committer; a
// disconnected client's channel simply stops being drained and the entry
// disappears on Unregister.
func (d *Dispatcher) push(c Client, event models.Event) {
	defer func() {
		// The send channel may close concurrently with an in-flight fanout
		// when the client disconnects mid-operation. That client just misses
		// the event.
		if r := recover(); r != nil {
			d.Log.Debug("dropped event for closed connection", "conn", c.GetConnectionID(), "event", event.Event)
		}
	}()
	select {
	case c.GetSendChannel() <- event:
	default:
		d.Log.Warn("client send buffer full, dropping event", "conn", c.GetConnectionID(), "event", event.Event)
	}
}
