package ws

import (
	"encoding/json"
	"time"

	"collab-chat-service/internal/auth"
	"collab-chat-service/internal/bus"
	"collab-chat-service/internal/models"
)

// inboundEnvelope is the superset of fields a client may send. The type
// discriminator selects which of them are read.
type inboundEnvelope struct {
	Type        string `json:"type"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	IsTyping    bool   `json:"is_typing"`
	MessageIDs  []int  `json:"message_ids"`
}

type wireSender struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type chatMessageFrame struct {
	Type         string     `json:"type"`
	MessageID    int        `json:"message_id"`
	Content      string     `json:"content"`
	MessageType  string     `json:"message_type"`
	Sender       wireSender `json:"sender"`
	CreatedAt    time.Time  `json:"created_at"`
	IsOwnMessage bool       `json:"is_own_message"`
}

type typingFrame struct {
	Type     string `json:"type"`
	UserID   int    `json:"user_id"`
	UserName string `json:"user_name"`
	IsTyping bool   `json:"is_typing"`
}

type messagesReadFrame struct {
	Type       string `json:"type"`
	UserID     int    `json:"user_id"`
	MessageIDs []int  `json:"message_ids"`
}

type presenceFrame struct {
	Type     string `json:"type"`
	UserID   int    `json:"user_id"`
	UserName string `json:"user_name"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type notificationFrame struct {
	Type           string `json:"type"`
	RoomID         int    `json:"room_id"`
	RoomName       string `json:"room_name"`
	SenderName     string `json:"sender_name"`
	ContentPreview string `json:"content_preview"`
}

func newErrorEvent(message string) bus.Event {
	return bus.NewEvent(models.EventError, models.ErrorEvent{Message: message})
}

// forwardFrame translates a bus event into the wire frame for one
// recipient. The bool result is false when nothing should be sent: unknown
// event types, undecodable payloads, and self-echoes of typing and
// presence events. The is_own_message flag on chat messages is the one
// piece of per-recipient state and is computed here, at forward time.
func forwardFrame(evt bus.Event, self auth.Identity) ([]byte, bool) {
	switch evt.Type {
	case models.EventChatMessage:
		var p models.ChatMessageEvent
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			return nil, false
		}
		return marshalFrame(chatMessageFrame{
			Type:         models.EventChatMessage,
			MessageID:    p.MessageID,
			Content:      p.Content,
			MessageType:  p.MessageType,
			Sender:       wireSender{ID: p.SenderID, Name: p.SenderName, Email: p.SenderEmail},
			CreatedAt:    p.CreatedAt,
			IsOwnMessage: p.SenderID == self.UserID,
		})

	case models.EventTypingIndicator:
		var p models.TypingIndicatorEvent
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			return nil, false
		}
		// Identity comparison, not connection comparison: every tab of the
		// typing user suppresses the echo.
		if p.UserID == self.UserID {
			return nil, false
		}
		return marshalFrame(typingFrame{Type: "typing", UserID: p.UserID, UserName: p.UserName, IsTyping: p.IsTyping})

	case models.EventMessagesRead:
		var p models.MessagesReadEvent
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			return nil, false
		}
		return marshalFrame(messagesReadFrame{Type: models.EventMessagesRead, UserID: p.UserID, MessageIDs: p.MessageIDs})

	case models.EventUserJoin, models.EventUserLeave:
		var p models.PresenceEvent
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			return nil, false
		}
		if p.UserID == self.UserID {
			return nil, false
		}
		return marshalFrame(presenceFrame{Type: evt.Type, UserID: p.UserID, UserName: p.UserName})

	case models.EventError:
		var p models.ErrorEvent
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			return nil, false
		}
		return marshalFrame(errorFrame{Type: models.EventError, Message: p.Message})

	case models.EventNewMessageNotification:
		var p models.NotificationEvent
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			return nil, false
		}
		return marshalFrame(notificationFrame{
			Type:           models.EventNewMessageNotification,
			RoomID:         p.RoomID,
			RoomName:       p.RoomName,
			SenderName:     p.SenderName,
			ContentPreview: p.ContentPreview,
		})

	default:
		return nil, false
	}
}

func marshalFrame(v any) ([]byte, bool) {
	data, err := json.Marshal(v)
	return data, err == nil
}
