package models

import "time"

// Message content types.
const (
	MessageTypeText   = "text"
	MessageTypeFile   = "file"
	MessageTypeImage  = "image"
	MessageTypeSystem = "system"
)

// MaxMessageContentLength bounds API-submitted message content.
const MaxMessageContentLength = 5000

// Message is a chat message. A nil SenderID marks a system message.
// SenderName and SenderEmail are denormalized from the users table when
// messages are read back.
type Message struct {
	ID          int       `db:"id" json:"id"`
	RoomID      int       `db:"room_id" json:"room_id"`
	SenderID    *int      `db:"sender_id" json:"sender_id,omitempty"`
	Content     string    `db:"content" json:"content"`
	MessageType string    `db:"message_type" json:"message_type"`
	FilePath    *string   `db:"file_path" json:"file_path,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	SenderName  *string `db:"sender_name" json:"sender_name,omitempty"`
	SenderEmail *string `db:"sender_email" json:"sender_email,omitempty"`
}

// IsSystem reports whether the message has no sender.
func (m Message) IsSystem() bool {
	return m.SenderID == nil
}

// SentBy reports whether the message was authored by userID.
func (m Message) SentBy(userID int) bool {
	return m.SenderID != nil && *m.SenderID == userID
}

// ValidMessageType reports whether t is a recognized message content type.
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeFile, MessageTypeImage, MessageTypeSystem:
		return true
	}
	return false
}

// MessageRead records that a user has read a message. One row per
// (message, user) pair; readers never record their own messages.
type MessageRead struct {
	ID        int       `db:"id" json:"id"`
	MessageID int       `db:"message_id" json:"message_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	ReadAt    time.Time `db:"read_at" json:"read_at"`
}
