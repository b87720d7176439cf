package api

import (
	"context"
	"testing"
	"time"

	"github.com/mfyhq/collabchat/internal/pubsub"
	"github.com/mfyhq/collabchat/internal/stats"
	"github.com/mfyhq/collabchat/internal/testutil"
	"github.com/mfyhq/collabchat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestHub(t *testing.T, deliveries chan pubsub.Delivery) (*Hub, context.CancelFunc) {
	broker := &pubsub.MockBroker{}
	broker.On("Subscribe", mock.Anything).Return(deliveries, nil)

	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything)
	su.On("Incr", mock.Anything)
	su.On("Decr", mock.Anything)

	hub := NewHub(testutil.TestLogger(t), broker, su)

	ctx, cancel := context.WithCancel(context.Background())
	if err := hub.Run(ctx); err != nil {
		cancel()
		t.Fatalf("failed to start hub: %v", err)
	}

	return hub, cancel
}

func newHubClient(t *testing.T, email, sessionId string) *Client {
	return &Client{
		user:      types.User{Email: email},
		sessionId: sessionId,
		send:      make(chan *ServerFrame, 4),
		log:       testutil.TestLogger(t),
	}
}

func recvFrame(t *testing.T, c *Client) *ServerFrame {
	t.Helper()
	select {
	case frame := <-c.send:
		return frame
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func TestHubDispatch(t *testing.T) {
	deliveries := make(chan pubsub.Delivery)
	hub, cancel := newTestHub(t, deliveries)
	defer cancel()

	alice := newHubClient(t, "alice@example.com", "s1")
	bob := newHubClient(t, "bob@example.com", "s2")
	hub.register(alice)
	hub.register(bob)

	t.Run("topic deliveries reach every client", func(t *testing.T) {
		deliveries <- pubsub.Delivery{Topic: "message/system", Payload: []byte(`{"id":1}`)}

		for _, c := range []*Client{alice, bob} {
			frame := recvFrame(t, c)
			assert.Equal(t, "message/system", frame.Dest)
			assert.JSONEq(t, `{"id":1}`, string(frame.Body))
		}
	})

	t.Run("user deliveries reach only that user's sessions", func(t *testing.T) {
		deliveries <- pubsub.Delivery{User: "alice@example.com", Dest: "queue/message/private", Payload: []byte(`{"id":2}`)}

		frame := recvFrame(t, alice)
		assert.Equal(t, "queue/message/private", frame.Dest)

		select {
		case <-bob.send:
			t.Error("expected no frame for the other user")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("deliveries for unknown users are dropped", func(t *testing.T) {
		deliveries <- pubsub.Delivery{User: "nobody@example.com", Dest: "queue/message/private", Payload: []byte(`{}`)}

		select {
		case <-alice.send:
			t.Error("expected no frame")
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestHubMultipleSessionsPerUser(t *testing.T) {
	deliveries := make(chan pubsub.Delivery)
	hub, cancel := newTestHub(t, deliveries)
	defer cancel()

	s1 := newHubClient(t, "alice@example.com", "s1")
	s2 := newHubClient(t, "alice@example.com", "s2")
	hub.register(s1)
	hub.register(s2)

	deliveries <- pubsub.Delivery{User: "alice@example.com", Dest: "queue/message/private", Payload: []byte(`{}`)}

	recvFrame(t, s1)
	recvFrame(t, s2)
}

func TestHubDeRegister(t *testing.T) {
	deliveries := make(chan pubsub.Delivery)
	hub, cancel := newTestHub(t, deliveries)
	defer cancel()

	alice := newHubClient(t, "alice@example.com", "s1")
	hub.register(alice)
	hub.deRegister(alice)

	_, ok := <-alice.send
	assert.False(t, ok, "expected send channel closed on deregister")

	// a second deregister of the same client is a no-op
	hub.deRegisterChan <- alice
}

func TestHubDeRegisterAfterShutdown(t *testing.T) {
	deliveries := make(chan pubsub.Delivery)
	hub, cancel := newTestHub(t, deliveries)

	alice := newHubClient(t, "alice@example.com", "s1")
	hub.register(alice)

	cancel()
	<-hub.Done()

	// a client tearing down after the run loop has exited must not block
	done := make(chan struct{})
	go func() {
		hub.deRegister(alice)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected deRegister to return after shutdown")
	}
}

func TestHubShutdown(t *testing.T) {
	deliveries := make(chan pubsub.Delivery)
	hub, cancel := newTestHub(t, deliveries)

	alice := newHubClient(t, "alice@example.com", "s1")
	hub.register(alice)

	cancel()

	select {
	case <-hub.Done():
	case <-time.After(time.Second):
		t.Fatal("expected run loop to exit on cancel")
	}

	_, ok := <-alice.send
	assert.False(t, ok, "expected client channels closed on shutdown")
}
