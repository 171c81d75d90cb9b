package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collab-chat-service/internal/auth"
	"collab-chat-service/internal/authz"
	"collab-chat-service/internal/bus"
	"collab-chat-service/internal/mocks"
	"collab-chat-service/internal/models"
)

func intPtr(v int) *int { return &v }

func testSession(userID int, roomID int) *session {
	identity := auth.Identity{UserID: userID, Name: "Ada", Email: "ada@example.com"}
	return newSession(nil, identity, roomID, "Group chat", ConnInfo{ConnID: "c1", UserID: userID})
}

func drainEvents(s *session) []bus.Event {
	var evts []bus.Event
	for {
		select {
		case evt := <-s.send:
			evts = append(evts, evt)
		default:
			return evts
		}
	}
}

func eventOfType(eventType string) interface{} {
	return mock.MatchedBy(func(evt bus.Event) bool { return evt.Type == eventType })
}

func TestDispatchMalformedFrame(t *testing.T) {
	b := new(mocks.BusMock)
	messages := new(mocks.MessageRepositoryMock)
	h := NewChatSocketHandler(b, nil, nil, new(mocks.RoomRepositoryMock), messages)
	sess := testSession(1, 5)

	for _, payload := range []string{`not json`, `{"content":"hi"}`} {
		h.dispatch(context.Background(), sess, []byte(payload))
	}

	evts := drainEvents(sess)
	require.Len(t, evts, 2)
	for _, evt := range evts {
		assert.Equal(t, models.EventError, evt.Type)
	}
	b.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchUnknownTypeIgnored(t *testing.T) {
	b := new(mocks.BusMock)
	h := NewChatSocketHandler(b, nil, nil, new(mocks.RoomRepositoryMock), new(mocks.MessageRepositoryMock))
	sess := testSession(1, 5)

	h.dispatch(context.Background(), sess, []byte(`{"type":"presence_probe"}`))

	assert.Empty(t, drainEvents(sess))
	b.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchEmptyContentIsSilentlyDropped(t *testing.T) {
	b := new(mocks.BusMock)
	messages := new(mocks.MessageRepositoryMock)
	h := NewChatSocketHandler(b, nil, nil, new(mocks.RoomRepositoryMock), messages)
	sess := testSession(1, 5)

	for _, content := range []string{"", "   ", "\n\t"} {
		env, err := json.Marshal(map[string]string{"type": "chat_message", "content": content})
		require.NoError(t, err)
		h.dispatch(context.Background(), sess, env)
	}

	assert.Empty(t, drainEvents(sess))
	messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	b.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchOversizeContentRejected(t *testing.T) {
	b := new(mocks.BusMock)
	messages := new(mocks.MessageRepositoryMock)
	h := NewChatSocketHandler(b, nil, nil, new(mocks.RoomRepositoryMock), messages)
	sess := testSession(1, 5)

	env, err := json.Marshal(map[string]string{
		"type":    "chat_message",
		"content": strings.Repeat("a", models.MaxMessageContentLength+1),
	})
	require.NoError(t, err)
	h.dispatch(context.Background(), sess, env)

	evts := drainEvents(sess)
	require.Len(t, evts, 1)
	assert.Equal(t, models.EventError, evts[0].Type)
	messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchChatMessagePersistsThenBroadcasts(t *testing.T) {
	b := new(mocks.BusMock)
	rooms := new(mocks.RoomRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	h := NewChatSocketHandler(b, nil, nil, rooms, messages)
	sess := testSession(1, 5)

	stored := models.Message{ID: 7, RoomID: 5, SenderID: intPtr(1), Content: "hi", MessageType: "text", CreatedAt: time.Now()}
	messages.On("CreateMessage", mock.Anything, 5, mock.Anything, "hi", "text").Return(stored, nil).Once()
	b.On("Publish", mock.Anything, "room:5", eventOfType(models.EventChatMessage)).Return(nil).Once()

	rooms.On("ParticipantIDs", mock.Anything, 5).Return([]int{1, 2}, nil).Once()
	b.On("Publish", mock.Anything, "notifications:2", eventOfType(models.EventNewMessageNotification)).Return(nil).Once()

	// Unknown message types are coerced to text, not rejected.
	env, err := json.Marshal(map[string]string{"type": "chat_message", "content": " hi ", "message_type": "exotic"})
	require.NoError(t, err)
	h.dispatch(context.Background(), sess, env)

	messages.AssertExpectations(t)
	rooms.AssertExpectations(t)
	b.AssertExpectations(t)
	b.AssertNotCalled(t, "Publish", mock.Anything, "notifications:1", mock.Anything)
}

func TestDispatchChatMessageStoreFailureSkipsBroadcast(t *testing.T) {
	b := new(mocks.BusMock)
	messages := new(mocks.MessageRepositoryMock)
	h := NewChatSocketHandler(b, nil, nil, new(mocks.RoomRepositoryMock), messages)
	sess := testSession(1, 5)

	messages.On("CreateMessage", mock.Anything, 5, mock.Anything, "hi", "text").Return(models.Message{}, assert.AnError).Once()

	h.dispatch(context.Background(), sess, []byte(`{"type":"chat_message","content":"hi"}`))

	evts := drainEvents(sess)
	require.Len(t, evts, 1)
	assert.Equal(t, models.EventError, evts[0].Type)
	b.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchTypingBroadcasts(t *testing.T) {
	b := new(mocks.BusMock)
	h := NewChatSocketHandler(b, nil, nil, new(mocks.RoomRepositoryMock), new(mocks.MessageRepositoryMock))
	sess := testSession(1, 5)

	b.On("Publish", mock.Anything, "room:5", eventOfType(models.EventTypingIndicator)).Return(nil).Once()

	h.dispatch(context.Background(), sess, []byte(`{"type":"typing","is_typing":true}`))
	b.AssertExpectations(t)
}

func TestDispatchMarkRead(t *testing.T) {
	b := new(mocks.BusMock)
	messages := new(mocks.MessageRepositoryMock)
	h := NewChatSocketHandler(b, nil, nil, new(mocks.RoomRepositoryMock), messages)
	sess := testSession(1, 5)

	messages.On("MarkMessagesRead", mock.Anything, 5, 1, []int{3, 4}).Return(nil).Once()
	b.On("Publish", mock.Anything, "room:5", eventOfType(models.EventMessagesRead)).Return(nil).Once()

	h.dispatch(context.Background(), sess, []byte(`{"type":"mark_read","message_ids":[3,4]}`))

	messages.AssertExpectations(t)
	b.AssertExpectations(t)
}

func TestDispatchMarkReadEmptyIDs(t *testing.T) {
	b := new(mocks.BusMock)
	messages := new(mocks.MessageRepositoryMock)
	h := NewChatSocketHandler(b, nil, nil, new(mocks.RoomRepositoryMock), messages)
	sess := testSession(1, 5)

	h.dispatch(context.Background(), sess, []byte(`{"type":"mark_read","message_ids":[]}`))

	messages.AssertNotCalled(t, "MarkMessagesRead", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	b.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func setupHandshakeRouter(h *ChatSocketHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws/chat/:room_id", h.Handle)
	return r
}

func TestHandshakeRejectsAnonymousBeforeJoin(t *testing.T) {
	b := new(mocks.BusMock)
	validator := auth.NewValidator("secret", new(mocks.UserRepositoryMock))
	h := NewChatSocketHandler(b, validator, nil, new(mocks.RoomRepositoryMock), new(mocks.MessageRepositoryMock))
	router := setupHandshakeRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/ws/chat/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	b.AssertNotCalled(t, "Join", mock.Anything, mock.Anything)
}

func TestHandshakeRejectsUnauthorizedBeforeJoin(t *testing.T) {
	b := new(mocks.BusMock)
	rooms := new(mocks.RoomRepositoryMock)
	projects := new(mocks.ProjectRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	validator := auth.NewValidator("secret", users)
	authorizer := authz.NewAuthorizer(rooms, projects)
	h := NewChatSocketHandler(b, validator, authorizer, rooms, new(mocks.MessageRepositoryMock))
	router := setupHandshakeRouter(h)

	users.On("GetUser", mock.Anything, 9).Return(models.User{ID: 9, FullName: "Eve"}, nil).Once()
	rooms.On("GetRoom", mock.Anything, 5).Return(models.ChatRoom{
		ID: 5, RoomType: models.RoomTypePrivate, ProjectID: 3, User1ID: intPtr(1), User2ID: intPtr(2),
	}, nil).Once()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 9,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ws/chat/5?token="+token, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	b.AssertNotCalled(t, "Join", mock.Anything, mock.Anything)
}

func TestHandshakeRejectsBadRoomID(t *testing.T) {
	h := NewChatSocketHandler(new(mocks.BusMock), nil, nil, new(mocks.RoomRepositoryMock), new(mocks.MessageRepositoryMock))
	router := setupHandshakeRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/ws/chat/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionDeliverClosesDeadSink(t *testing.T) {
	sess := testSession(1, 5)
	evt := bus.NewEvent(models.EventChatMessage, models.ChatMessageEvent{MessageID: 1})

	for i := 0; i < sendBuffer; i++ {
		sess.Deliver(evt)
	}

	select {
	case <-sess.done:
		t.Fatal("session closed before the queue was full")
	default:
	}

	sess.Deliver(evt)

	select {
	case <-sess.done:
	default:
		t.Fatal("session not closed on overflow")
	}
}
