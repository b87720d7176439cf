package chat

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mfyhq/collabchat/internal/database"
	"github.com/mfyhq/collabchat/internal/pubsub"
	"github.com/mfyhq/collabchat/internal/stats"
	"github.com/mfyhq/collabchat/internal/testutil"
	"github.com/mfyhq/collabchat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestBroadcastSnapshot(t *testing.T) {
	db := &database.MockChatRepository{}
	broker := &pubsub.MockBroker{}
	defer broker.AssertExpectations(t)
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything)
	su.On("Incr", mock.Anything)

	tracker := NewTracker(testutil.TestLogger(t), db, broker, su)
	db.On("ProjectIdsForUser", mock.Anything).Return([]int64{}, nil)
	broker.On("PublishToTopic", mock.Anything, TopicPresence, mock.Anything).Return(nil).Once()
	tracker.Connect(context.Background(), types.User{Id: 1, Email: "alice@example.com"}, "session-1")

	b := NewBroadcaster(testutil.TestLogger(t), tracker, broker)

	broker.On("PublishToTopic", mock.Anything, TopicPresence, mock.MatchedBy(func(payload []byte) bool {
		var users []types.OnlineUser
		if err := json.Unmarshal(payload, &users); err != nil {
			return false
		}
		return len(users) == 1 && users[0].Id == 1
	})).Return(nil).Once()

	b.broadcastSnapshot(context.Background())
}

func TestBroadcasterRunAndStop(t *testing.T) {
	db := &database.MockChatRepository{}
	broker := &pubsub.MockBroker{}
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything)

	tracker := NewTracker(testutil.TestLogger(t), db, broker, su)
	b := NewBroadcaster(testutil.TestLogger(t), tracker, broker)
	b.interval = 10 * time.Millisecond

	published := make(chan struct{}, 16)
	broker.On("PublishToTopic", mock.Anything, TopicPresence, mock.Anything).
		Run(func(mock.Arguments) { published <- struct{}{} }).
		Return(nil)

	go b.Run()

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("expected a periodic presence snapshot")
	}

	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Stop to return after the run loop exits")
	}

	assert.NotPanics(t, func() {
		select {
		case <-b.done:
		default:
			t.Error("expected done channel to be closed")
		}
	})
}
