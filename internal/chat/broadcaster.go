package chat

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/mfyhq/collabchat/internal/pubsub"
)

const presenceInterval = 2 * time.Minute

// Broadcaster periodically pushes the full presence snapshot to the presence
// topic so clients that missed incremental updates reconcile on the next
// tick. Fire-and-forget, no acknowledgment.
type Broadcaster struct {
	log      *log.Logger
	tracker  *Tracker
	broker   pubsub.Broker
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewBroadcaster(logger *log.Logger, tracker *Tracker, broker pubsub.Broker) *Broadcaster {
	return &Broadcaster{
		log:      logger,
		tracker:  tracker,
		broker:   broker,
		interval: presenceInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (b *Broadcaster) Run() {
	ticker := time.NewTicker(b.interval)
	defer func() {
		ticker.Stop()
		close(b.done)
	}()

	for {
		select {
		case <-ticker.C:
			b.broadcastSnapshot(context.Background())
		case <-b.stop:
			return
		}
	}
}

func (b *Broadcaster) broadcastSnapshot(ctx context.Context) {
	users := b.tracker.Online()
	payload, err := json.Marshal(users)
	if err != nil {
		b.log.Printf("broadcaster: marshal presence snapshot: %v", err)
		return
	}

	if err := b.broker.PublishToTopic(ctx, TopicPresence, payload); err != nil {
		b.log.Printf("broadcaster: publish presence snapshot: %v", err)
	}
}

func (b *Broadcaster) Stop() {
	close(b.stop)
	<-b.done
}
