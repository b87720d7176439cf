package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mfyhq/collabchat/internal/pubsub"
	"github.com/mfyhq/collabchat/internal/stats"
	"github.com/mfyhq/collabchat/internal/types"
)

// Router resolves the recipient set for a persisted message and dispatches it
// to the pub/sub transport. Delivery is best-effort and at-most-once per
// target: publish failures are logged, never surfaced to the sender, since
// persistence is the source of truth.
type Router struct {
	log     *log.Logger
	broker  pubsub.Broker
	tracker *Tracker
	stats   stats.StatsProvider
}

func NewRouter(logger *log.Logger, broker pubsub.Broker, tracker *Tracker, su stats.StatsProvider) *Router {
	su.RegisterMetric(MetricMessagesRouted)
	su.RegisterMetric(MetricFanoutDeliveries)

	return &Router{
		log:     logger,
		broker:  broker,
		tracker: tracker,
		stats:   su,
	}
}

func (r *Router) RouteSystem(ctx context.Context, msg *types.SystemMessage) {
	r.broadcast(ctx, TopicSystem, msg)
}

func (r *Router) RouteGlobal(ctx context.Context, msg *types.GlobalMessage) {
	r.broadcast(ctx, TopicGlobal, msg)
}

// RouteProject delivers to every member currently present in the project's
// room. A room with no connected members is a no-op.
func (r *Router) RouteProject(ctx context.Context, msg *types.ProjectMessage) {
	members := r.tracker.RoomMembers(msg.ProjectId)
	if len(members) == 0 {
		return
	}

	payload, err := marshalMessage(msg)
	if err != nil {
		r.log.Printf("router: %v", err)
		return
	}

	r.stats.Incr(MetricMessagesRouted)
	for _, member := range members {
		if err := r.broker.PublishToUser(ctx, member, DestProject, payload); err != nil {
			r.log.Printf("router: deliver project message %d to %q: %v", msg.Id, member, err)
			continue
		}
		r.stats.Incr(MetricFanoutDeliveries)
	}
}

// RouteToUser delivers a private message to the recipient's queue and, when
// the sender is a different user, to the sender's queue as well, so every
// session of both participants sees the conversation.
func (r *Router) RouteToUser(ctx context.Context, sender, recipient types.User, msg *types.PrivateMessage) {
	payload, err := marshalMessage(msg)
	if err != nil {
		r.log.Printf("router: %v", err)
		return
	}

	r.stats.Incr(MetricMessagesRouted)
	if err := r.broker.PublishToUser(ctx, recipient.Email, DestPrivate, payload); err != nil {
		r.log.Printf("router: deliver private message %d to %q: %v", msg.Id, recipient.Email, err)
	} else {
		r.stats.Incr(MetricFanoutDeliveries)
	}

	if sender.Email == recipient.Email {
		return
	}

	if err := r.broker.PublishToUser(ctx, sender.Email, DestPrivate, payload); err != nil {
		r.log.Printf("router: deliver private message %d to %q: %v", msg.Id, sender.Email, err)
		return
	}
	r.stats.Incr(MetricFanoutDeliveries)
}

func (r *Router) broadcast(ctx context.Context, topic string, msg types.Message) {
	payload, err := marshalMessage(msg)
	if err != nil {
		r.log.Printf("router: %v", err)
		return
	}

	r.stats.Incr(MetricMessagesRouted)
	if err := r.broker.PublishToTopic(ctx, topic, payload); err != nil {
		r.log.Printf("router: broadcast %s message %d: %v", msg.Kind(), msg.Base().Id, err)
		return
	}
	r.stats.Incr(MetricFanoutDeliveries)
}

// wireMessage tags the payload with its kind so clients can decode the
// variant without inspecting fields.
type wireMessage struct {
	Kind    types.MessageKind `json:"kind"`
	Message types.Message     `json:"message"`
}

func marshalMessage(msg types.Message) ([]byte, error) {
	payload, err := json.Marshal(wireMessage{Kind: msg.Kind(), Message: msg})
	if err != nil {
		return nil, fmt.Errorf("marshal %s message %d: %w", msg.Kind(), msg.Base().Id, err)
	}
	return payload, nil
}
