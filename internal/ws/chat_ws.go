package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"collab-chat-service/internal/auth"
	"collab-chat-service/internal/authz"
	"collab-chat-service/internal/bus"
	"collab-chat-service/internal/middleware"
	"collab-chat-service/internal/models"
	"collab-chat-service/internal/observability"
	"collab-chat-service/internal/repositories"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ChatSocketHandler runs the per-connection chat state machine: handshake,
// authorization, group membership, inbound dispatch and event forwarding.
type ChatSocketHandler struct {
	bus        bus.Bus
	validator  *auth.Validator
	authorizer *authz.Authorizer
	rooms      repositories.RoomRepository
	messages   repositories.MessageRepository
}

// NewChatSocketHandler constructs a ChatSocketHandler.
func NewChatSocketHandler(b bus.Bus, validator *auth.Validator, authorizer *authz.Authorizer, rooms repositories.RoomRepository, messages repositories.MessageRepository) *ChatSocketHandler {
	return &ChatSocketHandler{bus: b, validator: validator, authorizer: authorizer, rooms: rooms, messages: messages}
}

// Handle performs the handshake and, on success, joins the room group and
// starts the connection's pumps. Rejections happen before the upgrade, so a
// failed handshake never produces a user_join broadcast.
func (h *ChatSocketHandler) Handle(c *gin.Context) {
	roomID, err := strconv.Atoi(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	ctx, span := otel.Tracer("collab-chat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	identity := h.validator.Resolve(ctx, middleware.TokenFromRequest(c))
	if identity.IsAnonymous() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	room, err := h.rooms.GetRoom(ctx, roomID)
	if err != nil || !h.authorizer.AuthorizeRoom(ctx, identity.UserID, room) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for room"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      identity.UserID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	sess := newSession(conn, identity, roomID, room.Name, info)

	h.bus.Join(bus.RoomGroup(roomID), sess)
	h.publishRoom(ctx, roomID, bus.NewEvent(models.EventUserJoin, models.PresenceEvent{
		UserID:   identity.UserID,
		UserName: identity.Name,
	}))

	observability.IncWSActive("chat")
	observability.IncWSEvent("chat", "ws_connect")
	publishLifecycleEvent(ctx, "chat", roomID, info, "ws_connect", "")

	go sess.writePump()
	go h.readLoop(sess)
}

// readLoop drives the active state. Its deferred block is the guaranteed
// cleanup scope: user_leave, group removal and connection close run on
// every exit path once the session has joined.
func (h *ChatSocketHandler) readLoop(sess *session) {
	// The request context dies with the HTTP handler; the connection
	// outlives it.
	ctx := context.Background()
	group := bus.RoomGroup(sess.roomID)

	var closeReason string
	defer func() {
		h.publishRoom(ctx, sess.roomID, bus.NewEvent(models.EventUserLeave, models.PresenceEvent{
			UserID:   sess.identity.UserID,
			UserName: sess.identity.Name,
		}))
		h.bus.Leave(group, sess)
		sess.close()

		observability.DecWSActive("chat")
		observability.IncWSEvent("chat", "ws_disconnect")
		publishLifecycleEvent(ctx, "chat", sess.roomID, sess.info, "ws_disconnect", closeReason)
	}()

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("chat", "ws_error")
				publishLifecycleEvent(ctx, "chat", sess.roomID, sess.info, "ws_error", closeReason)
			}
			return
		}
		h.dispatch(ctx, sess, data)
	}
}

// dispatch parses one inbound frame and routes it by type. Malformed input
// earns a local error event; unknown types are ignored on purpose so newer
// clients can talk to older servers.
func (h *ChatSocketHandler) dispatch(ctx context.Context, sess *session, data []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		sess.deliverError("invalid message format")
		return
	}

	switch env.Type {
	case "chat_message":
		h.handleChatMessage(ctx, sess, env)
	case "typing":
		h.publishRoom(ctx, sess.roomID, bus.NewEvent(models.EventTypingIndicator, models.TypingIndicatorEvent{
			UserID:   sess.identity.UserID,
			UserName: sess.identity.Name,
			IsTyping: env.IsTyping,
		}))
	case "mark_read":
		h.handleMarkRead(ctx, sess, env.MessageIDs)
	default:
	}
}

func (h *ChatSocketHandler) handleChatMessage(ctx context.Context, sess *session, env inboundEnvelope) {
	content := strings.TrimSpace(env.Content)
	if content == "" {
		return
	}
	if len(content) > models.MaxMessageContentLength {
		sess.deliverError("message too long")
		return
	}
	msgType := env.MessageType
	if !models.ValidMessageType(msgType) {
		msgType = models.MessageTypeText
	}

	senderID := sess.identity.UserID
	msg, err := h.messages.CreateMessage(ctx, sess.roomID, &senderID, content, msgType)
	if err != nil {
		log.Printf("ws: store message failed room=%d user=%d: %v", sess.roomID, senderID, err)
		sess.deliverError("failed to store message")
		return
	}

	h.publishRoom(ctx, sess.roomID, bus.NewEvent(models.EventChatMessage, models.ChatMessageEvent{
		MessageID:   msg.ID,
		Content:     msg.Content,
		MessageType: msg.MessageType,
		SenderID:    senderID,
		SenderName:  sess.identity.Name,
		SenderEmail: sess.identity.Email,
		CreatedAt:   msg.CreatedAt,
	}))

	NotifyParticipants(ctx, h.bus, h.rooms, sess.roomID, sess.roomName, sess.identity, content)
}

func (h *ChatSocketHandler) handleMarkRead(ctx context.Context, sess *session, messageIDs []int) {
	if len(messageIDs) == 0 {
		return
	}
	if err := h.messages.MarkMessagesRead(ctx, sess.roomID, sess.identity.UserID, messageIDs); err != nil {
		log.Printf("ws: mark read failed room=%d user=%d: %v", sess.roomID, sess.identity.UserID, err)
		sess.deliverError("failed to mark messages read")
		return
	}

	h.publishRoom(ctx, sess.roomID, bus.NewEvent(models.EventMessagesRead, models.MessagesReadEvent{
		UserID:     sess.identity.UserID,
		MessageIDs: messageIDs,
	}))
}

func (h *ChatSocketHandler) publishRoom(ctx context.Context, roomID int, evt bus.Event) {
	if err := h.bus.Publish(ctx, bus.RoomGroup(roomID), evt); err != nil {
		log.Printf("ws: publish %s failed room=%d: %v", evt.Type, roomID, err)
		return
	}
	observability.IncBusPublish(evt.Type)
}

// NotifyParticipants pushes a new-message notification to every room
// participant except the sender, on their personal notification groups.
// Shared with the REST send path.
func NotifyParticipants(ctx context.Context, b bus.Bus, rooms repositories.RoomRepository, roomID int, roomName string, sender auth.Identity, content string) {
	ids, err := rooms.ParticipantIDs(ctx, roomID)
	if err != nil {
		log.Printf("ws: participant lookup failed room=%d: %v", roomID, err)
		return
	}

	evt := bus.NewEvent(models.EventNewMessageNotification, models.NotificationEvent{
		RoomID:         roomID,
		RoomName:       roomName,
		SenderName:     sender.Name,
		ContentPreview: preview(content, 100),
	})
	for _, id := range ids {
		if id == sender.UserID {
			continue
		}
		if err := b.Publish(ctx, bus.NotificationGroup(id), evt); err == nil {
			observability.IncBusPublish(evt.Type)
		}
	}
}
