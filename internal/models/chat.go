package models

import "time"

// Chat is a conversation between two or more users. The unread counter and
// last-message snapshot are denormalized here so chat lists render without
// touching the messages table.
type Chat struct {
	ID          int    `gorm:"primaryKey" json:"id"`
	UnreadCount int    `json:"unreadCount"`
	LastMessage string `gorm:"type:text" json:"lastMessage"`
	// LastMessageSenderID distinguishes "you: ..." previews from partner ones.
	LastMessageSenderID string `json:"lastMessageSenderId"`

	Users    []User        `gorm:"many2many:chat_users" json:"-"`
	Messages []ChatMessage `gorm:"foreignKey:ChatID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}
