package chat

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/mfyhq/collabchat/internal/pubsub"
	"github.com/mfyhq/collabchat/internal/stats"
	"github.com/mfyhq/collabchat/internal/types"
)

// UserStore is the slice of the repository the tracker needs: resolving a
// user's project memberships and persisting the last-online timestamp.
type UserStore interface {
	ProjectIdsForUser(userId int64) ([]int64, error)
	UpdateLastOnline(userId int64, lastOnline time.Time) error
}

// Tracker is the presence registry. It tracks one OnlineUser entry per user
// id plus the set of live sessions behind it, and maintains the room index
// mapping each project id to the emails of its currently connected members.
//
// Entries are never deleted: a user who disconnects stays in the registry
// with IsOnline=false so clients can render recently-offline users.
type Tracker struct {
	log    *log.Logger
	db     UserStore
	broker pubsub.Broker
	stats  stats.StatsProvider

	mu       sync.RWMutex
	users    map[int64]*types.OnlineUser
	sessions map[int64]map[string]struct{}
	rooms    map[int64]map[string]struct{}
}

func NewTracker(logger *log.Logger, db UserStore, broker pubsub.Broker, su stats.StatsProvider) *Tracker {
	su.RegisterMetric(MetricOnlineUsers)

	return &Tracker{
		log:      logger,
		db:       db,
		broker:   broker,
		stats:    su,
		users:    make(map[int64]*types.OnlineUser),
		sessions: make(map[int64]map[string]struct{}),
		rooms:    make(map[int64]map[string]struct{}),
	}
}

// Connect registers a session for the user. The first session creates the
// OnlineUser snapshot; later sessions (or reconnects) only flip the online
// flag. The updated entry is broadcast on the presence topic, then the user
// is added to the room of every project they belong to.
func (t *Tracker) Connect(ctx context.Context, user types.User, sessionId string) *types.OnlineUser {
	t.mu.Lock()
	ou, ok := t.users[user.Id]
	if !ok {
		ou = types.NewOnlineUser(user)
		t.users[user.Id] = ou
		t.stats.Incr(MetricOnlineUsers)
	} else if !ou.IsOnline {
		ou.IsOnline = true
		t.stats.Incr(MetricOnlineUsers)
	}

	if t.sessions[user.Id] == nil {
		t.sessions[user.Id] = make(map[string]struct{})
	}
	t.sessions[user.Id][sessionId] = struct{}{}
	snapshot := *ou
	t.mu.Unlock()

	t.sendOnline(ctx, snapshot)
	t.addToRooms(user)

	return ou
}

func (t *Tracker) addToRooms(user types.User) {
	projectIds, err := t.db.ProjectIdsForUser(user.Id)
	if err != nil {
		t.log.Printf("tracker: resolve memberships for user %d: %v", user.Id, err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, projectId := range projectIds {
		members, ok := t.rooms[projectId]
		if !ok {
			members = make(map[string]struct{})
			t.rooms[projectId] = members
		}
		members[user.Email] = struct{}{}

		t.log.Printf("%s joined project chat %d (%d members)", user.Email, projectId, len(members))
	}
}

// Disconnect deregisters a session. Only when the user's last session closes
// is the user marked offline, last-online persisted and the presence update
// broadcast; the user is then removed from every room, and rooms left empty
// are pruned from the index.
func (t *Tracker) Disconnect(ctx context.Context, user types.User, sessionId string) {
	t.mu.Lock()
	if sessions, ok := t.sessions[user.Id]; ok {
		delete(sessions, sessionId)
		if len(sessions) > 0 {
			// another session is still live, the user stays online
			t.mu.Unlock()
			return
		}
		delete(t.sessions, user.Id)
	}

	ou, ok := t.users[user.Id]
	if !ok || !ou.IsOnline {
		// unknown user or already marked offline by an earlier disconnect
		t.mu.Unlock()
		return
	}

	ou.IsOnline = false
	ou.LastOnline = time.Now().UTC()
	snapshot := *ou
	t.mu.Unlock()

	t.stats.Decr(MetricOnlineUsers)
	if err := t.db.UpdateLastOnline(user.Id, snapshot.LastOnline); err != nil {
		t.log.Printf("tracker: persist last online for user %d: %v", user.Id, err)
	}
	t.sendOnline(ctx, snapshot)
	t.removeFromRooms(user)
}

func (t *Tracker) removeFromRooms(user types.User) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for projectId, members := range t.rooms {
		if _, ok := members[user.Email]; !ok {
			continue
		}
		delete(members, user.Email)
		if len(members) == 0 {
			delete(t.rooms, projectId)
		}
		t.log.Printf("%s left project chat %d", user.Email, projectId)
	}
}

// Online returns a point-in-time copy of all tracked entries, online and
// recently-offline alike.
func (t *Tracker) Online() []types.OnlineUser {
	t.mu.RLock()
	defer t.mu.RUnlock()

	users := make([]types.OnlineUser, 0, len(t.users))
	for _, ou := range t.users {
		users = append(users, *ou)
	}
	return users
}

// RoomMembers returns the emails of the project's currently connected
// members, or nil if the room has no live members.
func (t *Tracker) RoomMembers(projectId int64) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	members, ok := t.rooms[projectId]
	if !ok {
		return nil
	}

	emails := make([]string, 0, len(members))
	for email := range members {
		emails = append(emails, email)
	}
	return emails
}

// sendOnline broadcasts a single presence update as a one-element list, the
// same shape the periodic snapshot uses.
func (t *Tracker) sendOnline(ctx context.Context, ou types.OnlineUser) {
	payload, err := json.Marshal([]types.OnlineUser{ou})
	if err != nil {
		t.log.Printf("tracker: marshal presence update: %v", err)
		return
	}

	if err := t.broker.PublishToTopic(ctx, TopicPresence, payload); err != nil {
		t.log.Printf("tracker: publish presence update: %v", err)
	}
}
