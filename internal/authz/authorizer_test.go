package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"collab-chat-service/internal/mocks"
	"collab-chat-service/internal/models"
	"collab-chat-service/internal/repositories"
)

func intPtr(v int) *int { return &v }

func TestAuthorizeGroupRoomMember(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	projects := new(mocks.ProjectRepositoryMock)
	a := NewAuthorizer(rooms, projects)

	rooms.On("GetRoom", mock.Anything, 5).Return(models.ChatRoom{ID: 5, RoomType: models.RoomTypeGroup, ProjectID: 3}, nil).Once()
	projects.On("IsMember", mock.Anything, 3, 1).Return(true, nil).Once()

	assert.True(t, a.Authorize(context.Background(), 1, 5))
	rooms.AssertExpectations(t)
	projects.AssertExpectations(t)
}

func TestAuthorizeGroupRoomNonMember(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	projects := new(mocks.ProjectRepositoryMock)
	a := NewAuthorizer(rooms, projects)

	rooms.On("GetRoom", mock.Anything, 5).Return(models.ChatRoom{ID: 5, RoomType: models.RoomTypeGroup, ProjectID: 3}, nil).Once()
	projects.On("IsMember", mock.Anything, 3, 9).Return(false, nil).Once()

	assert.False(t, a.Authorize(context.Background(), 9, 5))
}

func TestAuthorizePrivateRoomParticipants(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	a := NewAuthorizer(rooms, new(mocks.ProjectRepositoryMock))

	room := models.ChatRoom{ID: 8, RoomType: models.RoomTypePrivate, ProjectID: 3, User1ID: intPtr(1), User2ID: intPtr(2)}

	assert.True(t, a.AuthorizeRoom(context.Background(), 1, room))
	assert.True(t, a.AuthorizeRoom(context.Background(), 2, room))
	assert.False(t, a.AuthorizeRoom(context.Background(), 3, room))
}

func TestAuthorizeRoomNotFound(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	a := NewAuthorizer(rooms, new(mocks.ProjectRepositoryMock))

	rooms.On("GetRoom", mock.Anything, 77).Return(models.ChatRoom{}, repositories.ErrRoomNotFound).Once()

	assert.False(t, a.Authorize(context.Background(), 1, 77))
}

func TestAuthorizeMembershipCheckErrorDenies(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	projects := new(mocks.ProjectRepositoryMock)
	a := NewAuthorizer(rooms, projects)

	projects.On("IsMember", mock.Anything, 3, 1).Return(false, assert.AnError).Once()

	room := models.ChatRoom{ID: 5, RoomType: models.RoomTypeGroup, ProjectID: 3}
	assert.False(t, a.AuthorizeRoom(context.Background(), 1, room))
}
