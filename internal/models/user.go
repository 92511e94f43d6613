package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// User holds the profile data the matchmaker filters on. Identity issuance
// itself (tokens, sessions) lives outside this service; only the demographic
// profile is stored here.
type User struct {
	ID          string `gorm:"primaryKey" json:"id"` // anonymous UUID
	DisplayName string `gorm:"size:50" json:"displayName"`
	// Tag is a short discriminator shown next to the display name.
	Tag       string         `gorm:"size:4" json:"tag"`
	Age       *int           `json:"age,omitempty"` // nil until the user fills in their profile
	Gender    string         `json:"gender"`
	Interests pq.StringArray `gorm:"type:text[]" json:"interests"`

	Chats []Chat `gorm:"many2many:chat_users" json:"-"`
}

// BeforeCreate generates a new UUID for the user if the ID is not set yet.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
