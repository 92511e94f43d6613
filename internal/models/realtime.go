package models

// Outbound event names pushed to connected clients.
const (
	EventUserConnected    = "UserConnected"
	EventUserDisconnected = "UserDisconnected"
	EventActiveUsers      = "ActiveUsers"
	EventReceiveMessage   = "ReceiveMessage"
	EventMessageReceived  = "MessageReceived"
	EventMessageRead      = "MessageRead"
	EventChatFound        = "ChatFound"
	EventError            = "Error"
)

// Event is the envelope written to a client connection.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// UserPresence is the payload of UserConnected.
type UserPresence struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// ChatFound is the payload returned to a matchmaking caller.
type ChatFound struct {
	ChatID int `json:"chatId"`
}

// EventErrorPayload carries a failed operation back to the caller only.
type EventErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
