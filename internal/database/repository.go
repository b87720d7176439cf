package database

import (
	"time"

	"github.com/mfyhq/collabchat/internal/types"
)

type ChatRepository interface {
	Ping() error

	CreateUser(params CreateUserParams) (User, error)
	GetUserById(id int64) (User, error)
	GetUserByEmail(email string) (User, error)
	GetUsersByIds(ids []int64) ([]types.User, error)
	UpdateLastOnline(userId int64, lastOnline time.Time) error

	CreateProject(params CreateProjectParams) (types.Project, error)
	GetProjectById(id int64) (types.Project, error)
	GetProjectsByIds(ids []int64) ([]types.Project, error)
	AddTranslator(projectId, userId int64) error
	IsTranslator(projectId, userId int64) bool
	ProjectIdsForUser(userId int64) ([]int64, error)
	ProjectsForUser(userId int64) ([]types.Project, error)

	CreateSystemMessage(msg *types.SystemMessage) (*types.SystemMessage, error)
	CreateGlobalMessage(msg *types.GlobalMessage) (*types.GlobalMessage, error)
	CreatePrivateMessage(msg *types.PrivateMessage) (*types.PrivateMessage, error)
	CreateProjectMessage(msg *types.ProjectMessage) (*types.ProjectMessage, error)

	GetSystemMessage(id int64) (*types.SystemMessage, error)
	GetGlobalMessage(id int64) (*types.GlobalMessage, error)
	GetPrivateMessage(id int64) (*types.PrivateMessage, error)
	GetProjectMessage(id int64) (*types.ProjectMessage, error)

	UpdateAttachments(kind types.MessageKind, messageId int64, attachments []types.Attachment) error

	ListSystemMessages(offset, limit int) ([]*types.SystemMessage, error)
	CountSystemMessages() (int, error)
	ListGlobalMessages(offset, limit int) ([]*types.GlobalMessage, error)
	CountGlobalMessages() (int, error)
	ListPrivateMessages(pairId int64, offset, limit int) ([]*types.PrivateMessage, error)
	CountPrivateMessages(pairId int64) (int, error)
	ListProjectMessages(projectId int64, offset, limit int) ([]*types.ProjectMessage, error)
	CountProjectMessages(projectId int64) (int, error)

	ListNotifications(recipientId int64, offset, limit int) ([]*types.Notification, error)
	CountNotifications(recipientId int64) (int, error)
	MarkNotificationsRead(recipientId int64, ids []int64) error
	DeleteNotifications(recipientId int64) error

	AddConversation(userId int64, recipientId, projectId *int64) error
	ConversationsForUser(userId int64) ([]types.Conversation, error)

	SystemMessagesSince(since time.Time) ([]*types.SystemMessage, error)
	GlobalMessagesSince(since time.Time) ([]*types.GlobalMessage, error)
	PrivateMessagesFor(recipientId int64, since time.Time) ([]*types.PrivateMessage, error)
	ProjectMessagesSince(projectIds []int64, since time.Time) ([]*types.ProjectMessage, error)
}
