// Package bus provides the named-group publish/subscribe primitive the
// websocket layer is built on. Subscribers join a group, publishers fan an
// event out to every current member, and groups are independent broadcast
// domains. Two implementations exist: an in-process registry for
// single-instance deployments and a Redis-backed one for multi-instance.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
)

// Event is the envelope carried across a group. Data is JSON so the same
// payload crosses process boundaries unchanged.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEvent marshals a payload into an Event.
func NewEvent(eventType string, payload any) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		// Payloads are service-owned structs; a marshal failure is a bug.
		panic(fmt.Sprintf("bus: marshal %s event: %v", eventType, err))
	}
	return Event{Type: eventType, Data: data}
}

// Subscriber receives events published to groups it has joined. Deliver
// must not block; slow consumers are the subscriber's problem to solve.
type Subscriber interface {
	Deliver(evt Event)
}

// Bus is the group-send primitive. Join and Leave are idempotent with
// respect to membership; Publish reaches every member joined at publish
// time and no one else.
type Bus interface {
	Join(group string, sub Subscriber)
	Leave(group string, sub Subscriber)
	Publish(ctx context.Context, group string, evt Event) error
}

// RoomGroup names the broadcast group for a chat room.
func RoomGroup(roomID int) string {
	return fmt.Sprintf("room:%d", roomID)
}

// NotificationGroup names a user's personal notification group.
func NotificationGroup(userID int) string {
	return fmt.Sprintf("notifications:%d", userID)
}
