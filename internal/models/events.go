package models

import "time"

// Bus event types. Chat room groups carry the first five; the notification
// side-channel carries the last one. EventError is only ever delivered
// locally to the connection that caused it, never published to a group.
const (
	EventChatMessage            = "chat_message"
	EventTypingIndicator        = "typing_indicator"
	EventMessagesRead           = "messages_read"
	EventUserJoin               = "user_join"
	EventUserLeave              = "user_leave"
	EventError                  = "error"
	EventNewMessageNotification = "new_message_notification"
)

// ChatMessageEvent is published to a room group after a message has been
// persisted. CreatedAt is the authoritative order for history reads; live
// delivery order is advisory only.
type ChatMessageEvent struct {
	MessageID   int       `json:"message_id"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	SenderID    int       `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	SenderEmail string    `json:"sender_email"`
	CreatedAt   time.Time `json:"created_at"`
}

// TypingIndicatorEvent signals that a user started or stopped typing.
type TypingIndicatorEvent struct {
	UserID   int    `json:"user_id"`
	UserName string `json:"user_name"`
	IsTyping bool   `json:"is_typing"`
}

// MessagesReadEvent signals that a user recorded read receipts.
type MessagesReadEvent struct {
	UserID     int   `json:"user_id"`
	MessageIDs []int `json:"message_ids"`
}

// PresenceEvent signals a user joining or leaving a room.
type PresenceEvent struct {
	UserID   int    `json:"user_id"`
	UserName string `json:"user_name"`
}

// ErrorEvent is delivered only to the connection whose input caused it.
type ErrorEvent struct {
	Message string `json:"message"`
}

// NotificationEvent is published to a user's notification group when a
// message lands in one of their rooms. ContentPreview is truncated by the
// publisher; subscribers forward it verbatim.
type NotificationEvent struct {
	RoomID         int    `json:"room_id"`
	RoomName       string `json:"room_name"`
	SenderName     string `json:"sender_name"`
	ContentPreview string `json:"content_preview"`
}
