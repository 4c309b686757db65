package presence

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) MarkOnline(ctx context.Context, userId, peerId int) error {
	args := m.Called(ctx, userId, peerId)
	return args.Error(0)
}
func (m *MockStore) MarkOffline(ctx context.Context, userId int) error {
	args := m.Called(ctx, userId)
	return args.Error(0)
}
func (m *MockStore) IsOnline(ctx context.Context, userId, peerId int) (bool, error) {
	args := m.Called(ctx, userId, peerId)
	return args.Bool(0), args.Error(1)
}
func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
