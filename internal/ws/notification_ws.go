package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"collab-chat-service/internal/auth"
	"collab-chat-service/internal/bus"
	"collab-chat-service/internal/middleware"
	"collab-chat-service/internal/observability"
)

// NotificationSocketHandler serves the per-user notification side-channel.
// It is receive-only: inbound frames are drained and ignored, and the only
// events a subscriber sees are new-message notifications for its user.
type NotificationSocketHandler struct {
	bus       bus.Bus
	validator *auth.Validator
}

// NewNotificationSocketHandler constructs a NotificationSocketHandler.
func NewNotificationSocketHandler(b bus.Bus, validator *auth.Validator) *NotificationSocketHandler {
	return &NotificationSocketHandler{bus: b, validator: validator}
}

// Handle authenticates and subscribes the connection to the caller's
// notification group. No authorization step beyond identity: the group is
// the user's own.
func (h *NotificationSocketHandler) Handle(c *gin.Context) {
	identity := h.validator.Resolve(c.Request.Context(), middleware.TokenFromRequest(c))
	if identity.IsAnonymous() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
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
		ConnectedAt: time.Now(),
	}
	sess := newSession(conn, identity, 0, "", info)

	group := bus.NotificationGroup(identity.UserID)
	h.bus.Join(group, sess)

	observability.IncWSActive("notification")
	observability.IncWSEvent("notification", "ws_connect")
	publishLifecycleEvent(c.Request.Context(), "notification", identity.UserID, info, "ws_connect", "")

	go sess.writePump()
	go h.drainLoop(sess, group)
}

func (h *NotificationSocketHandler) drainLoop(sess *session, group string) {
	ctx := context.Background()

	var closeReason string
	defer func() {
		h.bus.Leave(group, sess)
		sess.close()

		observability.DecWSActive("notification")
		observability.IncWSEvent("notification", "ws_disconnect")
		publishLifecycleEvent(ctx, "notification", sess.identity.UserID, sess.info, "ws_disconnect", closeReason)
	}()

	for {
		if _, _, err := sess.conn.ReadMessage(); err != nil {
			closeReason = err.Error()
			return
		}
	}
}
