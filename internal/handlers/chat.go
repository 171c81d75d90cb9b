package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"collab-chat-service/internal/auth"
	"collab-chat-service/internal/authz"
	"collab-chat-service/internal/bus"
	"collab-chat-service/internal/middleware"
	"collab-chat-service/internal/models"
	"collab-chat-service/internal/repositories"
	"collab-chat-service/internal/telemetry"
	"collab-chat-service/internal/ws"
)

const defaultPageSize = 50

// ChatHandler serves the REST fallback surface: room listing, history,
// offline send and read receipts. Live traffic goes over the websocket
// handlers; both paths share the persistence and the bus.
type ChatHandler struct {
	rooms      repositories.RoomRepository
	messages   repositories.MessageRepository
	projects   repositories.ProjectRepository
	users      repositories.UserRepository
	authorizer *authz.Authorizer
	bus        bus.Bus
	audit      *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(rooms repositories.RoomRepository, messages repositories.MessageRepository, projects repositories.ProjectRepository, users repositories.UserRepository, authorizer *authz.Authorizer, b bus.Bus, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		rooms:      rooms,
		messages:   messages,
		projects:   projects,
		users:      users,
		authorizer: authorizer,
		bus:        b,
		audit:      audit,
	}
}

type lastMessageResponse struct {
	ID          int       `json:"id"`
	Content     string    `json:"content"`
	SenderName  string    `json:"sender_name"`
	MessageType string    `json:"message_type"`
	CreatedAt   time.Time `json:"created_at"`
}

type roomResponse struct {
	ID           int                  `json:"id"`
	Name         string               `json:"name"`
	RoomType     string               `json:"room_type"`
	ProjectID    int                  `json:"project_id"`
	Participants []models.User        `json:"participants,omitempty"`
	LastMessage  *lastMessageResponse `json:"last_message,omitempty"`
	UnreadCount  int                  `json:"unread_count"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

type messageResponse struct {
	models.Message
	IsOwnMessage bool `json:"is_own_message"`
}

// ListRooms returns every room visible to the caller, most recent activity
// first: group rooms of their projects plus their private rooms.
func (h *ChatHandler) ListRooms(c *gin.Context) {
	userID := c.GetInt("userID")

	rooms, err := h.rooms.ListRoomsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
		return
	}

	responses := make([]roomResponse, 0, len(rooms))
	for _, room := range rooms {
		resp, err := h.buildRoomSummary(c, room, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
			return
		}
		responses = append(responses, resp)
	}

	c.JSON(http.StatusOK, gin.H{"rooms": responses})
}

// RoomsByProject returns a project's rooms for the caller, lazily creating
// the group room on first access.
func (h *ChatHandler) RoomsByProject(c *gin.Context) {
	projectID, err := strconv.Atoi(c.Query("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_id is required"})
		return
	}

	userID := c.GetInt("userID")
	project, err := h.projects.GetProject(c.Request.Context(), projectID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrProjectNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "project not found"})
		return
	}

	member, err := h.projects.IsMember(c.Request.Context(), projectID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a project member"})
		return
	}

	groupRoom, created, err := h.rooms.GetOrCreateGroupRoom(c.Request.Context(), projectID, fmt.Sprintf("Group chat - %s", project.Title))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load group room"})
		return
	}
	if created {
		h.emitAudit(c, "INFO", "Group room created")
	}

	privateRooms, err := h.rooms.ListProjectPrivateRooms(c.Request.Context(), projectID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load private rooms"})
		return
	}

	responses := make([]roomResponse, 0, len(privateRooms)+1)
	for _, room := range append([]models.ChatRoom{groupRoom}, privateRooms...) {
		resp, err := h.buildRoomSummary(c, room, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
			return
		}
		responses = append(responses, resp)
	}

	c.JSON(http.StatusOK, gin.H{"rooms": responses})
}

// GetRoom returns a room with its 50 most recent messages.
func (h *ChatHandler) GetRoom(c *gin.Context) {
	room, userID, ok := h.roomForCaller(c)
	if !ok {
		return
	}

	summary, err := h.buildRoomSummary(c, room, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}

	msgs, err := h.messages.ListRoomMessages(c.Request.Context(), room.ID, defaultPageSize, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room":     summary,
		"messages": h.wrapMessages(msgs, userID),
	})
}

// GetRoomMessages returns a page of room history, newest first.
func (h *ChatHandler) GetRoomMessages(c *gin.Context) {
	room, userID, ok := h.roomForCaller(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 || pageSize > 200 {
		pageSize = defaultPageSize
	}

	count, err := h.messages.CountRoomMessages(c.Request.Context(), room.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	msgs, err := h.messages.ListRoomMessages(c.Request.Context(), room.ID, pageSize, (page-1)*pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":     count,
		"page":      page,
		"page_size": pageSize,
		"results":   h.wrapMessages(msgs, userID),
	})
}

// PostRoomMessage is the offline send path: persist, broadcast to the room
// group, notify the other participants.
func (h *ChatHandler) PostRoomMessage(c *gin.Context) {
	room, userID, ok := h.roomForCaller(c)
	if !ok {
		return
	}

	var req struct {
		Content     string `json:"content" binding:"required"`
		MessageType string `json:"message_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	if len(content) > models.MaxMessageContentLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content exceeds maximum length"})
		return
	}
	if req.MessageType != "" && !models.ValidMessageType(req.MessageType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message type"})
		return
	}
	msgType := req.MessageType
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	msg, err := h.messages.CreateMessage(c.Request.Context(), room.ID, &userID, content, msgType)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	identity := identityFromContext(c)
	if err := h.bus.Publish(c.Request.Context(), bus.RoomGroup(room.ID), bus.NewEvent(models.EventChatMessage, models.ChatMessageEvent{
		MessageID:   msg.ID,
		Content:     msg.Content,
		MessageType: msg.MessageType,
		SenderID:    userID,
		SenderName:  identity.Name,
		SenderEmail: identity.Email,
		CreatedAt:   msg.CreatedAt,
	})); err != nil {
		log.Printf("handlers: broadcast failed room=%d: %v", room.ID, err)
	}
	ws.NotifyParticipants(c.Request.Context(), h.bus, h.rooms, room.ID, room.Name, identity, content)

	h.emitAudit(c, "INFO", "Message sent")
	c.JSON(http.StatusCreated, messageResponse{Message: msg, IsOwnMessage: true})
}

// MarkRoomRead records read receipts for every unread message in the room.
func (h *ChatHandler) MarkRoomRead(c *gin.Context) {
	room, userID, ok := h.roomForCaller(c)
	if !ok {
		return
	}

	if err := h.messages.MarkAllRead(c.Request.Context(), room.ID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark messages read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "messages marked as read"})
}

// CreatePrivateRoom creates (or returns) the private room between the
// caller and another member of the same project.
func (h *ChatHandler) CreatePrivateRoom(c *gin.Context) {
	var req struct {
		OtherUserID int `json:"other_user_id" binding:"required"`
		ProjectID   int `json:"project_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if req.OtherUserID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot create a chat with yourself"})
		return
	}

	if _, err := h.users.GetUser(c.Request.Context(), req.OtherUserID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "user not found"})
		return
	}

	member, err := h.projects.IsMember(c.Request.Context(), req.ProjectID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a project member"})
		return
	}

	otherMember, err := h.projects.IsMember(c.Request.Context(), req.ProjectID, req.OtherUserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !otherMember {
		c.JSON(http.StatusBadRequest, gin.H{"error": "other user is not a project member"})
		return
	}

	room, created, err := h.rooms.GetOrCreatePrivateRoom(c.Request.Context(), req.ProjectID, userID, req.OtherUserID, "Private chat")
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	summary, err := h.buildRoomSummary(c, room, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.emitAudit(c, "INFO", "Private room created")
	}
	c.JSON(status, summary)
}

// ListChatMembers lists a project's other members with a flag for whether
// the caller already has a private room with each.
func (h *ChatHandler) ListChatMembers(c *gin.Context) {
	projectID, err := strconv.Atoi(c.Query("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_id is required"})
		return
	}

	userID := c.GetInt("userID")
	member, err := h.projects.IsMember(c.Request.Context(), projectID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a project member"})
		return
	}

	members, err := h.projects.ListMembers(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}

	type memberResponse struct {
		models.ProjectMember
		HasPrivateChat bool `json:"has_private_chat"`
		ChatRoomID     *int `json:"chat_room_id,omitempty"`
	}

	responses := make([]memberResponse, 0, len(members))
	for _, m := range members {
		if m.UserID == userID {
			continue
		}
		resp := memberResponse{ProjectMember: m}
		room, err := h.rooms.GetPrivateRoom(c.Request.Context(), projectID, userID, m.UserID)
		switch {
		case err == nil:
			resp.HasPrivateChat = true
			roomID := room.ID
			resp.ChatRoomID = &roomID
		case !errors.Is(err, repositories.ErrRoomNotFound):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
			return
		}
		responses = append(responses, resp)
	}

	c.JSON(http.StatusOK, gin.H{"members": responses})
}

// roomForCaller parses the room id, loads the room and enforces access.
func (h *ChatHandler) roomForCaller(c *gin.Context) (models.ChatRoom, int, bool) {
	roomID, err := strconv.Atoi(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return models.ChatRoom{}, 0, false
	}

	userID := c.GetInt("userID")
	room, err := h.rooms.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "room not found"})
		return models.ChatRoom{}, 0, false
	}

	if !h.authorizer.AuthorizeRoom(c.Request.Context(), userID, room) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for room"})
		return models.ChatRoom{}, 0, false
	}
	return room, userID, true
}

func (h *ChatHandler) buildRoomSummary(c *gin.Context, room models.ChatRoom, userID int) (roomResponse, error) {
	resp := roomResponse{
		ID:        room.ID,
		Name:      room.Name,
		RoomType:  room.RoomType,
		ProjectID: room.ProjectID,
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}

	if !room.IsGroup() && room.User1ID != nil && room.User2ID != nil {
		users, err := h.users.BulkUsers(c.Request.Context(), []int{*room.User1ID, *room.User2ID})
		if err != nil {
			return roomResponse{}, err
		}
		resp.Participants = users
	}

	last, err := h.messages.LastMessage(c.Request.Context(), room.ID)
	if err == nil {
		senderName := "System"
		if last.SenderName != nil {
			senderName = *last.SenderName
		}
		content := last.Content
		if len(content) > 100 {
			content = content[:100]
		}
		resp.LastMessage = &lastMessageResponse{
			ID:          last.ID,
			Content:     content,
			SenderName:  senderName,
			MessageType: last.MessageType,
			CreatedAt:   last.CreatedAt,
		}
	} else if !errors.Is(err, repositories.ErrMessageNotFound) {
		return roomResponse{}, err
	}

	unread, err := h.messages.UnreadCount(c.Request.Context(), room.ID, userID)
	if err != nil {
		return roomResponse{}, err
	}
	resp.UnreadCount = unread
	return resp, nil
}

func (h *ChatHandler) wrapMessages(msgs []models.Message, userID int) []messageResponse {
	responses := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		responses = append(responses, messageResponse{Message: m, IsOwnMessage: m.SentBy(userID)})
	}
	return responses
}

func (h *ChatHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

func identityFromContext(c *gin.Context) auth.Identity {
	if val, ok := c.Get(middleware.IdentityKey); ok {
		if identity, ok := val.(auth.Identity); ok {
			return identity
		}
	}
	return auth.Identity{UserID: c.GetInt("userID")}
}
