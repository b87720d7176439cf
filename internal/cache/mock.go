package cache

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockPageCache struct {
	mock.Mock
}

func (m *MockPageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	args := m.Called(ctx, key)
	if val, ok := args.Get(0).([]byte); ok {
		return val, args.Bool(1)
	}
	return nil, args.Bool(1)
}

func (m *MockPageCache) Set(ctx context.Context, key string, value []byte) {
	m.Called(ctx, key, value)
}

func (m *MockPageCache) Delete(ctx context.Context, key string) {
	m.Called(ctx, key)
}
