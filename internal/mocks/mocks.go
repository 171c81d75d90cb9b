package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"collab-chat-service/internal/bus"
	"collab-chat-service/internal/models"
	"collab-chat-service/internal/repositories"
)

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) GetRoom(ctx context.Context, roomID int) (models.ChatRoom, error) {
	args := m.Called(ctx, roomID)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) GetOrCreateGroupRoom(ctx context.Context, projectID int, name string) (models.ChatRoom, bool, error) {
	args := m.Called(ctx, projectID, name)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Bool(1), args.Error(2)
}

func (m *RoomRepositoryMock) GetOrCreatePrivateRoom(ctx context.Context, projectID int, userID int, otherID int, name string) (models.ChatRoom, bool, error) {
	args := m.Called(ctx, projectID, userID, otherID, name)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Bool(1), args.Error(2)
}

func (m *RoomRepositoryMock) GetPrivateRoom(ctx context.Context, projectID int, userID int, otherID int) (models.ChatRoom, error) {
	args := m.Called(ctx, projectID, userID, otherID)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) IsParticipant(ctx context.Context, roomID int, userID int) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *RoomRepositoryMock) ListRoomsForUser(ctx context.Context, userID int) ([]models.ChatRoom, error) {
	args := m.Called(ctx, userID)
	var rooms []models.ChatRoom
	if val := args.Get(0); val != nil {
		rooms = val.([]models.ChatRoom)
	}
	return rooms, args.Error(1)
}

func (m *RoomRepositoryMock) ListProjectPrivateRooms(ctx context.Context, projectID int, userID int) ([]models.ChatRoom, error) {
	args := m.Called(ctx, projectID, userID)
	var rooms []models.ChatRoom
	if val := args.Get(0); val != nil {
		rooms = val.([]models.ChatRoom)
	}
	return rooms, args.Error(1)
}

func (m *RoomRepositoryMock) ParticipantIDs(ctx context.Context, roomID int) ([]int, error) {
	args := m.Called(ctx, roomID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *RoomRepositoryMock) TouchRoom(ctx context.Context, roomID int) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, roomID int, senderID *int, content string, messageType string) (models.Message, error) {
	args := m.Called(ctx, roomID, senderID, content, messageType)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListRoomMessages(ctx context.Context, roomID int, limit int, offset int) ([]models.Message, error) {
	args := m.Called(ctx, roomID, limit, offset)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) CountRoomMessages(ctx context.Context, roomID int) (int, error) {
	args := m.Called(ctx, roomID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) MarkMessagesRead(ctx context.Context, roomID int, readerID int, messageIDs []int) error {
	args := m.Called(ctx, roomID, readerID, messageIDs)
	return args.Error(0)
}

func (m *MessageRepositoryMock) MarkAllRead(ctx context.Context, roomID int, readerID int) error {
	args := m.Called(ctx, roomID, readerID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) UnreadCount(ctx context.Context, roomID int, userID int) (int, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) LastMessage(ctx context.Context, roomID int) (models.Message, error) {
	args := m.Called(ctx, roomID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type ProjectRepositoryMock struct {
	mock.Mock
}

func (m *ProjectRepositoryMock) GetProject(ctx context.Context, projectID int) (models.Project, error) {
	args := m.Called(ctx, projectID)
	var project models.Project
	if val := args.Get(0); val != nil {
		project = val.(models.Project)
	}
	return project, args.Error(1)
}

func (m *ProjectRepositoryMock) IsMember(ctx context.Context, projectID int, userID int) (bool, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ProjectRepositoryMock) ListMembers(ctx context.Context, projectID int) ([]models.ProjectMember, error) {
	args := m.Called(ctx, projectID)
	var members []models.ProjectMember
	if val := args.Get(0); val != nil {
		members = val.([]models.ProjectMember)
	}
	return members, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) BulkUsers(ctx context.Context, ids []int) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

type BusMock struct {
	mock.Mock
}

func (m *BusMock) Join(group string, sub bus.Subscriber) {
	m.Called(group, sub)
}

func (m *BusMock) Leave(group string, sub bus.Subscriber) {
	m.Called(group, sub)
}

func (m *BusMock) Publish(ctx context.Context, group string, evt bus.Event) error {
	args := m.Called(ctx, group, evt)
	return args.Error(0)
}

var _ repositories.RoomRepository = (*RoomRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.ProjectRepository = (*ProjectRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ bus.Bus = (*BusMock)(nil)
