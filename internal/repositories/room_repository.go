package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"collab-chat-service/internal/models"
)

var ErrRoomNotFound = errors.New("room not found")

const roomColumns = `id, name, room_type, project_id, user1_id, user2_id, created_at, updated_at`

// RoomRepository abstracts chat room persistence.
type RoomRepository interface {
	GetRoom(ctx context.Context, roomID int) (models.ChatRoom, error)
	GetOrCreateGroupRoom(ctx context.Context, projectID int, name string) (models.ChatRoom, bool, error)
	GetOrCreatePrivateRoom(ctx context.Context, projectID int, userID int, otherID int, name string) (models.ChatRoom, bool, error)
	GetPrivateRoom(ctx context.Context, projectID int, userID int, otherID int) (models.ChatRoom, error)
	IsParticipant(ctx context.Context, roomID int, userID int) (bool, error)
	ListRoomsForUser(ctx context.Context, userID int) ([]models.ChatRoom, error)
	ListProjectPrivateRooms(ctx context.Context, projectID int, userID int) ([]models.ChatRoom, error)
	ParticipantIDs(ctx context.Context, roomID int) ([]int, error)
	TouchRoom(ctx context.Context, roomID int) error
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// GetRoom fetches a room by id.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID int) (models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM chat_rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatRoom{}, ErrRoomNotFound
	}
	return room, err
}

// GetOrCreateGroupRoom returns the project's group room, creating it on first
// access. The partial unique index on (project_id) makes concurrent first
// accesses converge on one row; the losing insert falls through to a select.
func (r *RoomRepo) GetOrCreateGroupRoom(ctx context.Context, projectID int, name string) (models.ChatRoom, bool, error) {
	var room models.ChatRoom
	err := r.db.QueryRowxContext(ctx, `INSERT INTO chat_rooms (name, room_type, project_id)
        VALUES ($1, 'group', $2)
        ON CONFLICT (project_id) WHERE room_type = 'group' DO NOTHING
        RETURNING `+roomColumns, name, projectID).StructScan(&room)
	if err == nil {
		return room, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.ChatRoom{}, false, err
	}

	err = r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM chat_rooms
        WHERE room_type='group' AND project_id=$1`, projectID)
	return room, false, err
}

// GetOrCreatePrivateRoom returns the private room between two project
// co-members, creating it on first contact. The pair is normalized so both
// argument orders resolve to the same row.
func (r *RoomRepo) GetOrCreatePrivateRoom(ctx context.Context, projectID int, userID int, otherID int, name string) (models.ChatRoom, bool, error) {
	if userID == otherID {
		return models.ChatRoom{}, false, errors.New("cannot create private room with self")
	}
	user1, user2 := normalizePair(userID, otherID)

	var room models.ChatRoom
	err := r.db.QueryRowxContext(ctx, `INSERT INTO chat_rooms (name, room_type, project_id, user1_id, user2_id)
        VALUES ($1, 'private', $2, $3, $4)
        ON CONFLICT (project_id, user1_id, user2_id) WHERE room_type = 'private' DO NOTHING
        RETURNING `+roomColumns, name, projectID, user1, user2).StructScan(&room)
	if err == nil {
		return room, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.ChatRoom{}, false, err
	}

	room, err = r.GetPrivateRoom(ctx, projectID, userID, otherID)
	return room, false, err
}

// GetPrivateRoom fetches an existing private room between two users.
func (r *RoomRepo) GetPrivateRoom(ctx context.Context, projectID int, userID int, otherID int) (models.ChatRoom, error) {
	user1, user2 := normalizePair(userID, otherID)
	var room models.ChatRoom
	err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM chat_rooms
        WHERE room_type='private' AND project_id=$1 AND user1_id=$2 AND user2_id=$3`, projectID, user1, user2)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatRoom{}, ErrRoomNotFound
	}
	return room, err
}

// IsParticipant checks whether a user is one of a private room's pair.
func (r *RoomRepo) IsParticipant(ctx context.Context, roomID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM chat_rooms
        WHERE id=$1 AND room_type='private' AND (user1_id=$2 OR user2_id=$2))`, roomID, userID)
	return exists, err
}

// ListRoomsForUser returns group rooms of the user's projects plus private
// rooms the user participates in, most recent activity first.
func (r *RoomRepo) ListRoomsForUser(ctx context.Context, userID int) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.SelectContext(ctx, &rooms, `SELECT `+roomColumns+` FROM chat_rooms
        WHERE (room_type='group' AND project_id IN (SELECT project_id FROM memberships WHERE user_id=$1))
           OR (room_type='private' AND (user1_id=$1 OR user2_id=$1))
        ORDER BY updated_at DESC`, userID)
	return rooms, err
}

// ListProjectPrivateRooms returns the user's private rooms within a project.
func (r *RoomRepo) ListProjectPrivateRooms(ctx context.Context, projectID int, userID int) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.SelectContext(ctx, &rooms, `SELECT `+roomColumns+` FROM chat_rooms
        WHERE room_type='private' AND project_id=$1 AND (user1_id=$2 OR user2_id=$2)
        ORDER BY updated_at DESC`, projectID, userID)
	return rooms, err
}

// ParticipantIDs returns the user ids a room fans out to: project members
// for group rooms, the stored pair for private rooms.
func (r *RoomRepo) ParticipantIDs(ctx context.Context, roomID int) ([]int, error) {
	room, err := r.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if room.IsGroup() {
		var ids []int
		err := r.db.SelectContext(ctx, &ids, `SELECT user_id FROM memberships WHERE project_id=$1 ORDER BY user_id`, room.ProjectID)
		return ids, err
	}

	ids := make([]int, 0, 2)
	if room.User1ID != nil {
		ids = append(ids, *room.User1ID)
	}
	if room.User2ID != nil {
		ids = append(ids, *room.User2ID)
	}
	return ids, nil
}

// TouchRoom bumps the room's last-activity timestamp.
func (r *RoomRepo) TouchRoom(ctx context.Context, roomID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE chat_rooms SET updated_at = NOW() WHERE id=$1`, roomID)
	return err
}

func normalizePair(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}
