package api

import (
	"context"
	"encoding/json"
	"log"

	"github.com/mfyhq/collabchat/internal/chat"
	"github.com/mfyhq/collabchat/internal/pubsub"
	"github.com/mfyhq/collabchat/internal/stats"
)

// ServerFrame is the envelope pushed to websocket clients. Dest names the
// logical destination the payload was published to.
type ServerFrame struct {
	Dest string          `json:"dest"`
	Body json.RawMessage `json:"body"`
}

// Hub owns all live websocket clients and routes broker deliveries to them.
// Topic deliveries go to every client, user deliveries only to the sessions
// belonging to that user's email.
type Hub struct {
	log    *log.Logger
	broker pubsub.Broker
	stats  stats.StatsProvider

	registerChan   chan *Client
	deRegisterChan chan *Client
	clients        map[*Client]struct{}
	byEmail        map[string]map[*Client]struct{}
	done           chan struct{}
}

func NewHub(logger *log.Logger, broker pubsub.Broker, su stats.StatsProvider) *Hub {
	su.RegisterMetric(chat.MetricActiveSessions)

	return &Hub{
		log:            logger,
		broker:         broker,
		stats:          su,
		registerChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		clients:        make(map[*Client]struct{}),
		byEmail:        make(map[string]map[*Client]struct{}),
		done:           make(chan struct{}),
	}
}

// Run consumes broker deliveries until ctx is cancelled. It must be started
// before any client connects.
func (h *Hub) Run(ctx context.Context) error {
	deliveries, err := h.broker.Subscribe(ctx)
	if err != nil {
		return err
	}

	go func() {
		defer close(h.done)

		for {
			select {
			case client := <-h.registerChan:
				h.addClient(client)
			case client := <-h.deRegisterChan:
				h.removeClient(client)
			case d, ok := <-deliveries:
				if !ok {
					h.closeAll()
					return
				}
				h.dispatch(d)
			case <-ctx.Done():
				h.closeAll()
				return
			}
		}
	}()

	return nil
}

// Done is closed once the run loop has exited.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) register(c *Client) {
	select {
	case h.registerChan <- c:
	case <-h.done:
	}
}

func (h *Hub) deRegister(c *Client) {
	select {
	case h.deRegisterChan <- c:
	case <-h.done:
	}
}

func (h *Hub) addClient(c *Client) {
	h.clients[c] = struct{}{}

	sessions, ok := h.byEmail[c.user.Email]
	if !ok {
		sessions = make(map[*Client]struct{})
		h.byEmail[c.user.Email] = sessions
	}
	sessions[c] = struct{}{}

	h.stats.Incr(chat.MetricActiveSessions)
	h.log.Printf("registered session %s for %s", c.sessionId, c.user.Email)
}

func (h *Hub) removeClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	if sessions, ok := h.byEmail[c.user.Email]; ok {
		delete(sessions, c)
		if len(sessions) == 0 {
			delete(h.byEmail, c.user.Email)
		}
	}
	close(c.send)

	h.stats.Decr(chat.MetricActiveSessions)
	h.log.Printf("deregistered session %s for %s", c.sessionId, c.user.Email)
}

func (h *Hub) dispatch(d pubsub.Delivery) {
	if d.Topic != "" {
		frame := &ServerFrame{Dest: d.Topic, Body: d.Payload}
		for c := range h.clients {
			c.queueFrame(frame)
		}
		return
	}

	sessions, ok := h.byEmail[d.User]
	if !ok {
		return
	}

	frame := &ServerFrame{Dest: d.Dest, Body: d.Payload}
	for c := range sessions {
		c.queueFrame(frame)
	}
}

func (h *Hub) closeAll() {
	for c := range h.clients {
		h.removeClient(c)
	}
}
