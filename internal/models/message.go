package models

import "time"

// MessageState is the delivery lifecycle stage of a message. States only move
// forward: Sent -> Received -> Read. Error is a separate terminal state for
// messages that failed validation or persistence.
type MessageState int

const (
	StateSent MessageState = iota
	StateReceived
	StateRead
	StateError
)

func (s MessageState) String() string {
	switch s {
	case StateSent:
		return "Sent"
	case StateReceived:
		return "Received"
	case StateRead:
		return "Read"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// CanAdvanceTo reports whether a transition from s to next is legal.
// Received is reachable only from Sent; Read from Sent or Received.
// Error never advances anywhere and is never reached via marking.
func (s MessageState) CanAdvanceTo(next MessageState) bool {
	switch next {
	case StateReceived:
		return s == StateSent
	case StateRead:
		return s == StateSent || s == StateReceived
	default:
		return false
	}
}

// ChatMessage is both the durable row and the wire payload. The client
// generates Guid once per message; it stays stable across transport retries
// and is the sole idempotency key for delivery-state transitions.
type ChatMessage struct {
	ID        uint         `gorm:"primaryKey" json:"-"`
	Guid      string       `gorm:"uniqueIndex;size:64;not null" json:"guid"`
	ChatID    int          `gorm:"index;not null" json:"chatId"`
	SenderID  string       `gorm:"index;not null" json:"senderId"`
	Body      string       `gorm:"type:text;not null" json:"body"`
	State     MessageState `json:"state"`
	Timestamp time.Time    `json:"timestamp"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
