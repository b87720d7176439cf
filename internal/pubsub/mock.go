package pubsub

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) PublishToTopic(ctx context.Context, topic string, payload []byte) error {
	args := m.Called(ctx, topic, payload)
	return args.Error(0)
}

func (m *MockBroker) PublishToUser(ctx context.Context, user, dest string, payload []byte) error {
	args := m.Called(ctx, user, dest, payload)
	return args.Error(0)
}

func (m *MockBroker) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	args := m.Called(ctx)
	if ch, ok := args.Get(0).(chan Delivery); ok {
		return ch, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBroker) Close() error {
	args := m.Called()
	return args.Error(0)
}
