package database

import (
	"time"

	"github.com/mfyhq/collabchat/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockChatRepository) CreateUser(params CreateUserParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockChatRepository) GetUserById(id int64) (User, error) {
	args := m.Called(id)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockChatRepository) GetUserByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockChatRepository) GetUsersByIds(ids []int64) ([]types.User, error) {
	args := m.Called(ids)
	return args.Get(0).([]types.User), args.Error(1)
}

func (m *MockChatRepository) UpdateLastOnline(userId int64, lastOnline time.Time) error {
	args := m.Called(userId, lastOnline)
	return args.Error(0)
}

func (m *MockChatRepository) CreateProject(params CreateProjectParams) (types.Project, error) {
	args := m.Called(params)
	return args.Get(0).(types.Project), args.Error(1)
}

func (m *MockChatRepository) GetProjectById(id int64) (types.Project, error) {
	args := m.Called(id)
	return args.Get(0).(types.Project), args.Error(1)
}

func (m *MockChatRepository) GetProjectsByIds(ids []int64) ([]types.Project, error) {
	args := m.Called(ids)
	return args.Get(0).([]types.Project), args.Error(1)
}

func (m *MockChatRepository) AddTranslator(projectId, userId int64) error {
	args := m.Called(projectId, userId)
	return args.Error(0)
}

func (m *MockChatRepository) IsTranslator(projectId, userId int64) bool {
	args := m.Called(projectId, userId)
	return args.Bool(0)
}

func (m *MockChatRepository) ProjectIdsForUser(userId int64) ([]int64, error) {
	args := m.Called(userId)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockChatRepository) ProjectsForUser(userId int64) ([]types.Project, error) {
	args := m.Called(userId)
	return args.Get(0).([]types.Project), args.Error(1)
}

func (m *MockChatRepository) CreateSystemMessage(msg *types.SystemMessage) (*types.SystemMessage, error) {
	args := m.Called(msg)
	if res, ok := args.Get(0).(*types.SystemMessage); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatRepository) CreateGlobalMessage(msg *types.GlobalMessage) (*types.GlobalMessage, error) {
	args := m.Called(msg)
	if res, ok := args.Get(0).(*types.GlobalMessage); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatRepository) CreatePrivateMessage(msg *types.PrivateMessage) (*types.PrivateMessage, error) {
	args := m.Called(msg)
	if res, ok := args.Get(0).(*types.PrivateMessage); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatRepository) CreateProjectMessage(msg *types.ProjectMessage) (*types.ProjectMessage, error) {
	args := m.Called(msg)
	if res, ok := args.Get(0).(*types.ProjectMessage); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatRepository) GetSystemMessage(id int64) (*types.SystemMessage, error) {
	args := m.Called(id)
	if res, ok := args.Get(0).(*types.SystemMessage); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatRepository) GetGlobalMessage(id int64) (*types.GlobalMessage, error) {
	args := m.Called(id)
	if res, ok := args.Get(0).(*types.GlobalMessage); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatRepository) GetPrivateMessage(id int64) (*types.PrivateMessage, error) {
	args := m.Called(id)
	if res, ok := args.Get(0).(*types.PrivateMessage); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatRepository) GetProjectMessage(id int64) (*types.ProjectMessage, error) {
	args := m.Called(id)
	if res, ok := args.Get(0).(*types.ProjectMessage); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatRepository) UpdateAttachments(kind types.MessageKind, messageId int64, attachments []types.Attachment) error {
	args := m.Called(kind, messageId, attachments)
	return args.Error(0)
}

func (m *MockChatRepository) ListSystemMessages(offset, limit int) ([]*types.SystemMessage, error) {
	args := m.Called(offset, limit)
	return args.Get(0).([]*types.SystemMessage), args.Error(1)
}

func (m *MockChatRepository) CountSystemMessages() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *MockChatRepository) ListGlobalMessages(offset, limit int) ([]*types.GlobalMessage, error) {
	args := m.Called(offset, limit)
	return args.Get(0).([]*types.GlobalMessage), args.Error(1)
}

func (m *MockChatRepository) CountGlobalMessages() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *MockChatRepository) ListPrivateMessages(pairId int64, offset, limit int) ([]*types.PrivateMessage, error) {
	args := m.Called(pairId, offset, limit)
	return args.Get(0).([]*types.PrivateMessage), args.Error(1)
}

func (m *MockChatRepository) CountPrivateMessages(pairId int64) (int, error) {
	args := m.Called(pairId)
	return args.Int(0), args.Error(1)
}

func (m *MockChatRepository) ListProjectMessages(projectId int64, offset, limit int) ([]*types.ProjectMessage, error) {
	args := m.Called(projectId, offset, limit)
	return args.Get(0).([]*types.ProjectMessage), args.Error(1)
}

func (m *MockChatRepository) CountProjectMessages(projectId int64) (int, error) {
	args := m.Called(projectId)
	return args.Int(0), args.Error(1)
}

func (m *MockChatRepository) ListNotifications(recipientId int64, offset, limit int) ([]*types.Notification, error) {
	args := m.Called(recipientId, offset, limit)
	return args.Get(0).([]*types.Notification), args.Error(1)
}

func (m *MockChatRepository) CountNotifications(recipientId int64) (int, error) {
	args := m.Called(recipientId)
	return args.Int(0), args.Error(1)
}

func (m *MockChatRepository) MarkNotificationsRead(recipientId int64, ids []int64) error {
	args := m.Called(recipientId, ids)
	return args.Error(0)
}

func (m *MockChatRepository) DeleteNotifications(recipientId int64) error {
	args := m.Called(recipientId)
	return args.Error(0)
}

func (m *MockChatRepository) AddConversation(userId int64, recipientId, projectId *int64) error {
	args := m.Called(userId, recipientId, projectId)
	return args.Error(0)
}

func (m *MockChatRepository) ConversationsForUser(userId int64) ([]types.Conversation, error) {
	args := m.Called(userId)
	return args.Get(0).([]types.Conversation), args.Error(1)
}

func (m *MockChatRepository) SystemMessagesSince(since time.Time) ([]*types.SystemMessage, error) {
	args := m.Called(since)
	return args.Get(0).([]*types.SystemMessage), args.Error(1)
}

func (m *MockChatRepository) GlobalMessagesSince(since time.Time) ([]*types.GlobalMessage, error) {
	args := m.Called(since)
	return args.Get(0).([]*types.GlobalMessage), args.Error(1)
}

func (m *MockChatRepository) PrivateMessagesFor(recipientId int64, since time.Time) ([]*types.PrivateMessage, error) {
	args := m.Called(recipientId, since)
	return args.Get(0).([]*types.PrivateMessage), args.Error(1)
}

func (m *MockChatRepository) ProjectMessagesSince(projectIds []int64, since time.Time) ([]*types.ProjectMessage, error) {
	args := m.Called(projectIds, since)
	return args.Get(0).([]*types.ProjectMessage), args.Error(1)
}
