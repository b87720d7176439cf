package message

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mfyhq/collabchat/internal/cache"
	"github.com/mfyhq/collabchat/internal/chat"
	"github.com/mfyhq/collabchat/internal/database"
	"github.com/mfyhq/collabchat/internal/pubsub"
	"github.com/mfyhq/collabchat/internal/stats"
	"github.com/mfyhq/collabchat/internal/storage"
	"github.com/mfyhq/collabchat/internal/testutil"
	"github.com/mfyhq/collabchat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type testService struct {
	svc    *Service
	db     *database.MockChatRepository
	cache  *cache.MockPageCache
	store  *storage.MockObjectStore
	broker *pubsub.MockBroker
}

func newTestService(t *testing.T) *testService {
	db := &database.MockChatRepository{}
	pageCache := &cache.MockPageCache{}
	store := &storage.MockObjectStore{}
	broker := &pubsub.MockBroker{}
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything)
	su.On("Incr", mock.Anything)

	logger := testutil.TestLogger(t)
	tracker := chat.NewTracker(logger, db, broker, su)
	router := chat.NewRouter(logger, broker, tracker, su)

	return &testService{
		svc:    NewService(logger, db, pageCache, store, router),
		db:     db,
		cache:  pageCache,
		store:  store,
		broker: broker,
	}
}

func admin() types.User {
	return types.User{Id: 1, Email: "admin@example.com", Role: types.RoleAdmin}
}

func member() types.User {
	return types.User{Id: 2, Email: "bob@example.com", Role: types.RoleUser}
}

func TestValidateAttachments(t *testing.T) {
	const mib = 1024 * 1024

	tcases := []struct {
		name        string
		attachments []AttachmentRequest
		err         error
	}{
		{
			name: "valid",
			attachments: []AttachmentRequest{
				{Name: "a.png", Type: "image/png", Size: mib},
			},
		},
		{
			name: "more than five rejected",
			attachments: []AttachmentRequest{
				{Name: "a", Type: "image/png", Size: 1},
				{Name: "b", Type: "image/png", Size: 1},
				{Name: "c", Type: "image/png", Size: 1},
				{Name: "d", Type: "image/png", Size: 1},
				{Name: "e", Type: "image/png", Size: 1},
				{Name: "f", Type: "image/png", Size: 1},
			},
			err: ErrTooManyAttachments,
		},
		{
			name: "unsupported type rejected",
			attachments: []AttachmentRequest{
				{Name: "x.exe", Type: "application/x-msdownload", Size: 1},
			},
			err: ErrUnsupportedAttachmentType,
		},
		{
			name: "single file over ten mib rejected",
			attachments: []AttachmentRequest{
				{Name: "big.pdf", Type: "application/pdf", Size: 10*mib + 1},
			},
			err: ErrAttachmentTooLarge,
		},
		{
			name: "total over fifteen mib rejected",
			attachments: []AttachmentRequest{
				{Name: "a.pdf", Type: "application/pdf", Size: 8 * mib},
				{Name: "b.pdf", Type: "application/pdf", Size: 8 * mib},
			},
			err: ErrAttachmentsTooLarge,
		},
		{
			name: "exactly fifteen mib accepted",
			attachments: []AttachmentRequest{
				{Name: "a.pdf", Type: "application/pdf", Size: 3 * mib},
				{Name: "b.pdf", Type: "application/pdf", Size: 3 * mib},
				{Name: "c.pdf", Type: "application/pdf", Size: 3 * mib},
				{Name: "d.pdf", Type: "application/pdf", Size: 3 * mib},
				{Name: "e.pdf", Type: "application/pdf", Size: 3 * mib},
			},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateAttachments(tc.attachments)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSendSystem(t *testing.T) {
	t.Run("requires admin", func(t *testing.T) {
		ts := newTestService(t)

		_, err := ts.svc.SendSystem(context.Background(), member(), SendRequest{Content: "hi"})
		assert.ErrorIs(t, err, ErrForbidden)
		ts.db.AssertNotCalled(t, "CreateSystemMessage", mock.Anything)
	})

	t.Run("persists, evicts today window and broadcasts", func(t *testing.T) {
		ts := newTestService(t)
		defer ts.db.AssertExpectations(t)
		defer ts.cache.AssertExpectations(t)
		defer ts.broker.AssertExpectations(t)

		stored := &types.SystemMessage{
			MessageBase: types.MessageBase{Id: 7, Content: "maintenance"},
			IsLasting:   true,
		}
		ts.db.On("CreateSystemMessage", mock.Anything).Return(stored, nil).Once()
		ts.cache.On("Delete", mock.Anything, todaySystemKey).Once()
		ts.broker.On("PublishToTopic", mock.Anything, chat.TopicSystem, mock.Anything).Return(nil).Once()

		msg, err := ts.svc.SendSystem(context.Background(), admin(), SendRequest{Content: "maintenance", IsLasting: true})
		assert.NoError(t, err)
		assert.Equal(t, int64(7), msg.Id)
	})

	t.Run("does not route when persistence fails", func(t *testing.T) {
		ts := newTestService(t)

		ts.db.On("CreateSystemMessage", mock.Anything).Return(nil, errors.New("db down")).Once()

		_, err := ts.svc.SendSystem(context.Background(), admin(), SendRequest{Content: "x"})
		assert.Error(t, err)
		ts.broker.AssertNotCalled(t, "PublishToTopic", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSendGlobal(t *testing.T) {
	ts := newTestService(t)
	defer ts.db.AssertExpectations(t)
	defer ts.broker.AssertExpectations(t)

	sender := member()
	stored := &types.GlobalMessage{
		MessageBase: types.MessageBase{Id: 8, Content: "hello all"},
		SenderId:    sender.Id,
	}
	ts.db.On("CreateGlobalMessage", mock.MatchedBy(func(m *types.GlobalMessage) bool {
		return m.SenderId == sender.Id && m.Content == "hello all"
	})).Return(stored, nil).Once()
	ts.broker.On("PublishToTopic", mock.Anything, chat.TopicGlobal, mock.Anything).Return(nil).Once()

	msg, err := ts.svc.SendGlobal(context.Background(), sender, SendRequest{Content: "hello all"})
	assert.NoError(t, err)
	assert.Equal(t, int64(8), msg.Id)
}

func TestSendPrivate(t *testing.T) {
	sender := types.User{Id: 3, Email: "carol@example.com"}

	t.Run("unknown recipient", func(t *testing.T) {
		ts := newTestService(t)

		ts.db.On("GetUserById", int64(99)).Return(database.User{}, sql.ErrNoRows).Once()

		_, err := ts.svc.SendPrivate(context.Background(), sender, 99, SendRequest{Content: "hi"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("persists with pair id and delivers to both sides", func(t *testing.T) {
		ts := newTestService(t)
		defer ts.db.AssertExpectations(t)
		defer ts.broker.AssertExpectations(t)

		recipient := database.User{Id: 12, Email: "dave@example.com"}
		ts.db.On("GetUserById", recipient.Id).Return(recipient, nil).Once()

		stored := &types.PrivateMessage{
			MessageBase: types.MessageBase{Id: 9, Content: "psst"},
			SenderId:    sender.Id,
			RecipientId: recipient.Id,
			PairId:      types.PairId(sender.Id, recipient.Id),
		}
		ts.db.On("CreatePrivateMessage", mock.MatchedBy(func(m *types.PrivateMessage) bool {
			return m.PairId == types.PairId(sender.Id, recipient.Id)
		})).Return(stored, nil).Once()

		ts.broker.On("PublishToUser", mock.Anything, recipient.Email, chat.DestPrivate, mock.Anything).Return(nil).Once()
		ts.broker.On("PublishToUser", mock.Anything, sender.Email, chat.DestPrivate, mock.Anything).Return(nil).Once()

		msg, err := ts.svc.SendPrivate(context.Background(), sender, recipient.Id, SendRequest{Content: "psst"})
		assert.NoError(t, err)
		assert.Equal(t, int64(312), msg.PairId)
	})
}

func TestSendProject(t *testing.T) {
	sender := member()
	project := types.Project{Id: 10, Name: "subs"}

	t.Run("unknown project", func(t *testing.T) {
		ts := newTestService(t)

		ts.db.On("GetProjectById", project.Id).Return(types.Project{}, sql.ErrNoRows).Once()

		_, err := ts.svc.SendProject(context.Background(), sender, project.Id, SendRequest{Content: "hi"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("requires membership", func(t *testing.T) {
		ts := newTestService(t)

		ts.db.On("GetProjectById", project.Id).Return(project, nil).Once()
		ts.db.On("IsTranslator", project.Id, sender.Id).Return(false).Once()

		_, err := ts.svc.SendProject(context.Background(), sender, project.Id, SendRequest{Content: "hi"})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("persists even when no member is connected", func(t *testing.T) {
		ts := newTestService(t)
		defer ts.db.AssertExpectations(t)

		ts.db.On("GetProjectById", project.Id).Return(project, nil).Once()
		ts.db.On("IsTranslator", project.Id, sender.Id).Return(true).Once()

		stored := &types.ProjectMessage{
			MessageBase: types.MessageBase{Id: 11, Content: "done with ep 3"},
			SenderId:    sender.Id,
			ProjectId:   project.Id,
		}
		ts.db.On("CreateProjectMessage", mock.Anything).Return(stored, nil).Once()

		msg, err := ts.svc.SendProject(context.Background(), sender, project.Id, SendRequest{Content: "done with ep 3"})
		assert.NoError(t, err)
		assert.Equal(t, int64(11), msg.Id)
		// an empty room means no fan-out at all
		ts.broker.AssertNotCalled(t, "PublishToUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPresignAttachments(t *testing.T) {
	t.Run("presigns every declared attachment", func(t *testing.T) {
		ts := newTestService(t)
		defer ts.store.AssertExpectations(t)

		ts.store.On("PresignPut", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "attachments/") && strings.HasSuffix(key, "-a.png")
		})).Return("https://s3/a", nil).Once()

		attachments, err := ts.svc.presignAttachments(context.Background(), []AttachmentRequest{
			{Name: "a.png", Type: "image/png", Size: 100},
		})
		assert.NoError(t, err)
		assert.Len(t, attachments, 1)
		assert.Equal(t, "https://s3/a", attachments[0].UploadUrl)
		assert.False(t, attachments[0].IsSuccess, "expected upload not yet confirmed")
	})

	t.Run("a failed presign skips only that attachment", func(t *testing.T) {
		ts := newTestService(t)

		ts.store.On("PresignPut", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasSuffix(key, "-a.png")
		})).Return("", errors.New("s3 down")).Once()
		ts.store.On("PresignPut", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasSuffix(key, "-b.png")
		})).Return("https://s3/b", nil).Once()

		attachments, err := ts.svc.presignAttachments(context.Background(), []AttachmentRequest{
			{Name: "a.png", Type: "image/png", Size: 100},
			{Name: "b.png", Type: "image/png", Size: 100},
		})
		assert.NoError(t, err)
		assert.Len(t, attachments, 1)
		assert.Equal(t, "b.png", attachments[0].Name)
	})

	t.Run("validation failure rejects the whole request", func(t *testing.T) {
		ts := newTestService(t)

		_, err := ts.svc.presignAttachments(context.Background(), []AttachmentRequest{
			{Name: "x.exe", Type: "application/x-msdownload", Size: 1},
		})
		assert.ErrorIs(t, err, ErrUnsupportedAttachmentType)
		ts.store.AssertNotCalled(t, "PresignPut", mock.Anything, mock.Anything)
	})
}

func TestSystemPage(t *testing.T) {
	t.Run("cache hit skips the database", func(t *testing.T) {
		ts := newTestService(t)

		cached := []byte(`{"page":0,"total_pages":2}`)
		ts.cache.On("Get", mock.Anything, "messages:SYSTEM:1").Return(cached, true).Once()

		raw, err := ts.svc.SystemPage(context.Background(), 1)
		assert.NoError(t, err)
		assert.Equal(t, cached, raw)
		ts.db.AssertNotCalled(t, "ListSystemMessages", mock.Anything, mock.Anything)
	})

	t.Run("completed page is cached", func(t *testing.T) {
		ts := newTestService(t)
		defer ts.cache.AssertExpectations(t)

		ts.cache.On("Get", mock.Anything, "messages:SYSTEM:1").Return(nil, false).Once()
		ts.db.On("CountSystemMessages").Return(15, nil).Once()
		ts.db.On("ListSystemMessages", 0, PageSize).Return([]*types.SystemMessage{
			{MessageBase: types.MessageBase{Id: 1}},
		}, nil).Once()
		ts.cache.On("Set", mock.Anything, "messages:SYSTEM:1", mock.Anything).Once()

		raw, err := ts.svc.SystemPage(context.Background(), 1)
		assert.NoError(t, err)

		var page Page
		assert.NoError(t, json.Unmarshal(raw, &page))
		assert.Equal(t, 0, page.Page)
		assert.Equal(t, 2, page.TotalPages)
	})

	t.Run("last page is never cached", func(t *testing.T) {
		ts := newTestService(t)

		ts.cache.On("Get", mock.Anything, "messages:SYSTEM:2").Return(nil, false).Once()
		ts.db.On("CountSystemMessages").Return(15, nil).Once()
		ts.db.On("ListSystemMessages", PageSize, PageSize).Return([]*types.SystemMessage{
			{MessageBase: types.MessageBase{Id: 11}},
		}, nil).Once()

		_, err := ts.svc.SystemPage(context.Background(), 2)
		assert.NoError(t, err)
		ts.cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("page zero is clamped to the first page", func(t *testing.T) {
		ts := newTestService(t)

		ts.cache.On("Get", mock.Anything, "messages:SYSTEM:0").Return(nil, false).Once()
		ts.db.On("CountSystemMessages").Return(25, nil).Once()
		ts.db.On("ListSystemMessages", 0, PageSize).Return([]*types.SystemMessage{}, nil).Once()
		ts.cache.On("Set", mock.Anything, "messages:SYSTEM:0", mock.Anything).Once()

		_, err := ts.svc.SystemPage(context.Background(), 0)
		assert.NoError(t, err)
	})
}

func TestGlobalPageResolvesSenders(t *testing.T) {
	ts := newTestService(t)
	defer ts.db.AssertExpectations(t)

	ts.cache.On("Get", mock.Anything, mock.Anything).Return(nil, false).Once()
	ts.db.On("CountGlobalMessages").Return(2, nil).Once()
	ts.db.On("ListGlobalMessages", 0, PageSize).Return([]*types.GlobalMessage{
		{MessageBase: types.MessageBase{Id: 1}, SenderId: 5},
		{MessageBase: types.MessageBase{Id: 2}, SenderId: 5},
	}, nil).Once()
	// the duplicate sender collapses into one batched lookup
	ts.db.On("GetUsersByIds", []int64{5}).Return([]types.User{{Id: 5, Nickname: "eve"}}, nil).Once()

	raw, err := ts.svc.GlobalPage(context.Background(), 1)
	assert.NoError(t, err)

	var page Page
	assert.NoError(t, json.Unmarshal(raw, &page))
	assert.Len(t, page.Users, 1)
	assert.Equal(t, "eve", page.Users[0].Nickname)
}

func TestPrivatePageUsesPairId(t *testing.T) {
	ts := newTestService(t)
	defer ts.db.AssertExpectations(t)

	pairId := types.PairId(3, 12)
	key := fmt.Sprintf("messages:PRIVATE:%d:1", pairId)

	ts.cache.On("Get", mock.Anything, key).Return(nil, false).Once()
	ts.db.On("CountPrivateMessages", pairId).Return(0, nil).Once()
	ts.db.On("ListPrivateMessages", pairId, 0, PageSize).Return([]*types.PrivateMessage{}, nil).Once()

	_, err := ts.svc.PrivatePage(context.Background(), 12, 3, 1)
	assert.NoError(t, err)
}

func TestProjectPage(t *testing.T) {
	t.Run("unknown project", func(t *testing.T) {
		ts := newTestService(t)

		ts.db.On("GetProjectById", int64(99)).Return(types.Project{}, sql.ErrNoRows).Once()

		_, err := ts.svc.ProjectPage(context.Background(), 99, 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("returns project page", func(t *testing.T) {
		ts := newTestService(t)
		defer ts.db.AssertExpectations(t)

		project := types.Project{Id: 10, Name: "subs"}
		ts.db.On("GetProjectById", project.Id).Return(project, nil).Once()
		ts.cache.On("Get", mock.Anything, "messages:PROJECT:10:1").Return(nil, false).Once()
		ts.db.On("CountProjectMessages", project.Id).Return(1, nil).Once()
		ts.db.On("ListProjectMessages", project.Id, 0, PageSize).Return([]*types.ProjectMessage{
			{MessageBase: types.MessageBase{Id: 1}, SenderId: 2, ProjectId: project.Id},
		}, nil).Once()
		ts.db.On("GetUsersByIds", []int64{2}).Return([]types.User{{Id: 2}}, nil).Once()
		ts.db.On("GetProjectsByIds", []int64{10}).Return([]types.Project{project}, nil).Once()

		raw, err := ts.svc.ProjectPage(context.Background(), project.Id, 1)
		assert.NoError(t, err)

		var page Page
		assert.NoError(t, json.Unmarshal(raw, &page))
		assert.Len(t, page.Projects, 1)
	})
}

func TestTodaySystem(t *testing.T) {
	t.Run("cache hit", func(t *testing.T) {
		ts := newTestService(t)

		cached := []byte(`[]`)
		ts.cache.On("Get", mock.Anything, todaySystemKey).Return(cached, true).Once()

		raw, err := ts.svc.TodaySystem(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, cached, raw)
		ts.db.AssertNotCalled(t, "SystemMessagesSince", mock.Anything)
	})

	t.Run("queries the last day and caches the result", func(t *testing.T) {
		ts := newTestService(t)
		defer ts.cache.AssertExpectations(t)

		ts.cache.On("Get", mock.Anything, todaySystemKey).Return(nil, false).Once()
		ts.db.On("SystemMessagesSince", mock.MatchedBy(func(since time.Time) bool {
			return time.Since(since) > 23*time.Hour && time.Since(since) < 25*time.Hour
		})).Return([]*types.SystemMessage{
			{MessageBase: types.MessageBase{Id: 1}, IsLasting: true},
		}, nil).Once()
		ts.cache.On("Set", mock.Anything, todaySystemKey, mock.Anything).Once()

		raw, err := ts.svc.TodaySystem(context.Background())
		assert.NoError(t, err)

		var msgs []types.SystemMessage
		assert.NoError(t, json.Unmarshal(raw, &msgs))
		assert.Len(t, msgs, 1)
	})
}

func TestUnread(t *testing.T) {
	ts := newTestService(t)
	defer ts.db.AssertExpectations(t)

	lastOnline := time.Now().UTC().Add(-2 * time.Hour)
	user := types.User{Id: 2, Email: "bob@example.com", LastOnline: lastOnline}

	ts.db.On("SystemMessagesSince", lastOnline).Return([]*types.SystemMessage{
		{MessageBase: types.MessageBase{Id: 1}},
	}, nil).Once()
	ts.db.On("GlobalMessagesSince", lastOnline).Return([]*types.GlobalMessage{
		{MessageBase: types.MessageBase{Id: 2}, SenderId: 5},
	}, nil).Once()
	ts.db.On("PrivateMessagesFor", user.Id, lastOnline).Return([]*types.PrivateMessage{
		{MessageBase: types.MessageBase{Id: 3}, SenderId: 5, RecipientId: user.Id},
	}, nil).Once()
	ts.db.On("ProjectIdsForUser", user.Id).Return([]int64{10}, nil).Once()
	ts.db.On("ProjectMessagesSince", []int64{10}, lastOnline).Return([]*types.ProjectMessage{
		{MessageBase: types.MessageBase{Id: 4}, SenderId: 6, ProjectId: 10},
	}, nil).Once()
	ts.db.On("GetUsersByIds", []int64{2, 5, 6}).Return([]types.User{{Id: 2}, {Id: 5}, {Id: 6}}, nil).Once()
	ts.db.On("GetProjectsByIds", []int64{10}).Return([]types.Project{{Id: 10}}, nil).Once()
	ts.db.On("UpdateLastOnline", user.Id, mock.Anything).Return(nil).Once()

	page, err := ts.svc.Unread(context.Background(), user)
	assert.NoError(t, err)
	assert.Len(t, page.Messages, 4, "expected all four kinds aggregated")
	assert.Len(t, page.Users, 3)
	assert.Len(t, page.Projects, 1)
}

func TestUnreadLastOnlineFailureIsNonFatal(t *testing.T) {
	ts := newTestService(t)

	lastOnline := time.Now().UTC().Add(-time.Hour)
	user := types.User{Id: 2, LastOnline: lastOnline}

	ts.db.On("SystemMessagesSince", lastOnline).Return([]*types.SystemMessage{}, nil).Once()
	ts.db.On("GlobalMessagesSince", lastOnline).Return([]*types.GlobalMessage{}, nil).Once()
	ts.db.On("PrivateMessagesFor", user.Id, lastOnline).Return([]*types.PrivateMessage{}, nil).Once()
	ts.db.On("ProjectIdsForUser", user.Id).Return([]int64{}, nil).Once()
	ts.db.On("ProjectMessagesSince", []int64{}, lastOnline).Return([]*types.ProjectMessage{}, nil).Once()
	ts.db.On("UpdateLastOnline", user.Id, mock.Anything).Return(errors.New("db down")).Once()

	page, err := ts.svc.Unread(context.Background(), user)
	assert.NoError(t, err, "expected the read to succeed despite the stamp failure")
	assert.Empty(t, page.Messages)
}
