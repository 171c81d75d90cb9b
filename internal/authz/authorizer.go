package authz

import (
	"context"
	"log"

	"collab-chat-service/internal/models"
	"collab-chat-service/internal/repositories"
)

// Authorizer decides whether a user may enter a chat room. It fails closed:
// unknown rooms and store errors both deny access, and no error ever
// reaches the caller.
type Authorizer struct {
	rooms    repositories.RoomRepository
	projects repositories.ProjectRepository
}

// NewAuthorizer constructs an Authorizer.
func NewAuthorizer(rooms repositories.RoomRepository, projects repositories.ProjectRepository) *Authorizer {
	return &Authorizer{rooms: rooms, projects: projects}
}

// Authorize looks up the room and checks access for the user.
func (a *Authorizer) Authorize(ctx context.Context, userID int, roomID int) bool {
	room, err := a.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return false
	}
	return a.AuthorizeRoom(ctx, userID, room)
}

// AuthorizeRoom checks access against an already-fetched room: project
// membership for group rooms, the participant pair for private rooms.
func (a *Authorizer) AuthorizeRoom(ctx context.Context, userID int, room models.ChatRoom) bool {
	if room.IsGroup() {
		member, err := a.projects.IsMember(ctx, room.ProjectID, userID)
		if err != nil {
			log.Printf("authz: membership check failed for user=%d project=%d: %v", userID, room.ProjectID, err)
			return false
		}
		return member
	}
	return room.HasParticipant(userID)
}
