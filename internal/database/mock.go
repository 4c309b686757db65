package database

import (
	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) GetConversation(userId, peerId, limit int) ([]Message, error) {
	args := m.Called(userId, peerId, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockChatRepository) ListRooms(userId int) ([]RoomSummary, error) {
	args := m.Called(userId)
	return args.Get(0).([]RoomSummary), args.Error(1)
}
func (m *MockChatRepository) UnreadCounts(userId int) ([]UnreadCount, error) {
	args := m.Called(userId)
	return args.Get(0).([]UnreadCount), args.Error(1)
}
func (m *MockChatRepository) MarkConversationRead(userId, peerId int) error {
	args := m.Called(userId, peerId)
	return args.Error(0)
}
