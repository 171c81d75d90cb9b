package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"collab-chat-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `m.id, m.room_id, m.sender_id, m.content, m.message_type, m.file_path, m.created_at,
        u.full_name AS sender_name, u.email AS sender_email`

// MessageRepository defines interactions for chat messages and read receipts.
type MessageRepository interface {
	CreateMessage(ctx context.Context, roomID int, senderID *int, content string, messageType string) (models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	ListRoomMessages(ctx context.Context, roomID int, limit int, offset int) ([]models.Message, error)
	CountRoomMessages(ctx context.Context, roomID int) (int, error)
	MarkMessagesRead(ctx context.Context, roomID int, readerID int, messageIDs []int) error
	MarkAllRead(ctx context.Context, roomID int, readerID int) error
	UnreadCount(ctx context.Context, roomID int, userID int) (int, error)
	LastMessage(ctx context.Context, roomID int) (models.Message, error)
}

// MessageRepo is a sqlx-backed implementation.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage persists a message and bumps the room's last-activity
// timestamp in the same transaction.
func (r *MessageRepo) CreateMessage(ctx context.Context, roomID int, senderID *int, content string, messageType string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var msg models.Message
	if err = tx.QueryRowxContext(ctx, `INSERT INTO messages (room_id, sender_id, content, message_type)
        VALUES ($1, $2, $3, $4)
        RETURNING id, room_id, sender_id, content, message_type, file_path, created_at`,
		roomID, senderID, content, messageType).
		Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.Content, &msg.MessageType, &msg.FilePath, &msg.CreatedAt); err != nil {
		return models.Message{}, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE chat_rooms SET updated_at = NOW() WHERE id=$1`, roomID); err != nil {
		return models.Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// GetMessage fetches a single message with its sender identity.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages m
        LEFT JOIN users u ON u.id = m.sender_id WHERE m.id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListRoomMessages returns a page of room messages, newest first. Callers
// re-sort by created_at on the client side; the persisted timestamp is the
// authoritative order.
func (r *MessageRepo) ListRoomMessages(ctx context.Context, roomID int, limit int, offset int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages m
        LEFT JOIN users u ON u.id = m.sender_id
        WHERE m.room_id=$1
        ORDER BY m.created_at DESC, m.id DESC
        LIMIT $2 OFFSET $3`, roomID, limit, offset)
	return msgs, err
}

// CountRoomMessages returns the room's total message count.
func (r *MessageRepo) CountRoomMessages(ctx context.Context, roomID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages WHERE room_id=$1`, roomID)
	return count, err
}

// MarkMessagesRead records read receipts for the given message ids. Messages
// outside the room and the reader's own messages are skipped; re-reads are
// absorbed by the (message_id, user_id) uniqueness constraint.
func (r *MessageRepo) MarkMessagesRead(ctx context.Context, roomID int, readerID int, messageIDs []int) error {
	if len(messageIDs) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO message_reads (message_id, user_id)
        SELECT m.id, $2 FROM messages m
        WHERE m.id = ANY($3) AND m.room_id=$1 AND (m.sender_id IS NULL OR m.sender_id <> $2)
        ON CONFLICT (message_id, user_id) DO NOTHING`, roomID, readerID, pq.Array(messageIDs))
	return err
}

// MarkAllRead records read receipts for every unread message in the room.
func (r *MessageRepo) MarkAllRead(ctx context.Context, roomID int, readerID int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO message_reads (message_id, user_id)
        SELECT m.id, $2 FROM messages m
        WHERE m.room_id=$1 AND (m.sender_id IS NULL OR m.sender_id <> $2)
        ON CONFLICT (message_id, user_id) DO NOTHING`, roomID, readerID)
	return err
}

// UnreadCount counts room messages the user has neither sent nor read.
func (r *MessageRepo) UnreadCount(ctx context.Context, roomID int, userID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages m
        WHERE m.room_id=$1 AND (m.sender_id IS NULL OR m.sender_id <> $2)
        AND NOT EXISTS (SELECT 1 FROM message_reads mr WHERE mr.message_id = m.id AND mr.user_id=$2)`,
		roomID, userID)
	return count, err
}

// LastMessage returns the room's most recent message.
func (r *MessageRepo) LastMessage(ctx context.Context, roomID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages m
        LEFT JOIN users u ON u.id = m.sender_id
        WHERE m.room_id=$1
        ORDER BY m.created_at DESC, m.id DESC LIMIT 1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}
