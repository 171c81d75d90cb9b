package ws

import (
	"context"
	"time"

	"collab-chat-service/internal/observability"
)

// publishLifecycleEvent emits a ws_connect/ws_disconnect/ws_error ops event
// for one connection to the AMQP event stream.
func publishLifecycleEvent(ctx context.Context, kind string, resourceID int, info ConnInfo, event string, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"resource_id": resourceID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(ctx, wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, headers)
}

func wsRoutingKey(kind string) string {
	if kind == "notification" {
		return "ws_events.notifications"
	}
	return "ws_events.rooms"
}
