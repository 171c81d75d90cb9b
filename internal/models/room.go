package models

import "time"

// Room kinds.
const (
	RoomTypeGroup   = "group"
	RoomTypePrivate = "private"
)

// ChatRoom is a chat channel scoped to a project. A group room belongs to
// every project member; a private room belongs to exactly two of them,
// stored as a normalized pair (User1ID < User2ID).
type ChatRoom struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	RoomType  string    `db:"room_type" json:"room_type"`
	ProjectID int       `db:"project_id" json:"project_id"`
	User1ID   *int      `db:"user1_id" json:"user1_id,omitempty"`
	User2ID   *int      `db:"user2_id" json:"user2_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsGroup reports whether the room is the project-wide group room.
func (r ChatRoom) IsGroup() bool {
	return r.RoomType == RoomTypeGroup
}

// HasParticipant reports whether userID is one of a private room's pair.
// Always false for group rooms, whose membership lives in the project.
func (r ChatRoom) HasParticipant(userID int) bool {
	if r.User1ID != nil && *r.User1ID == userID {
		return true
	}
	return r.User2ID != nil && *r.User2ID == userID
}
