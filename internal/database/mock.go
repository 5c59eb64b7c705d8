package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) ListAccounts(excludeId int) ([]User, error) {
	args := m.Called(excludeId)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockRepository) SearchAccounts(query string, excludeId, limit int) ([]User, error) {
	args := m.Called(query, excludeId, limit)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockRepository) UpdateProfile(params UpdateProfileParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) UpdateAccountStatus(accountId int, status string, lastSeen time.Time) (User, error) {
	args := m.Called(accountId, status, lastSeen)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockRepository) GetRoomById(roomId int) (Room, error) {
	args := m.Called(roomId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockRepository) GetRoomByExternalId(externalId string) (Room, error) {
	args := m.Called(externalId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockRepository) GetRoomWithParticipants(roomId int) (Room, error) {
	args := m.Called(roomId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockRepository) ListRoomsForAccount(accountId int) ([]Room, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Room), args.Error(1)
}
func (m *MockRepository) UpdateRoom(params UpdateRoomParams) error {
	args := m.Called(params)
	return args.Error(0)
}
func (m *MockRepository) AddParticipants(roomId int, accountIds []int) error {
	args := m.Called(roomId, accountIds)
	return args.Error(0)
}
func (m *MockRepository) RemoveParticipant(roomId, accountId int) error {
	args := m.Called(roomId, accountId)
	return args.Error(0)
}
func (m *MockRepository) IsParticipant(roomId, accountId int) (bool, error) {
	args := m.Called(roomId, accountId)
	return args.Bool(0), args.Error(1)
}
func (m *MockRepository) IsAdmin(roomId, accountId int) (bool, error) {
	args := m.Called(roomId, accountId)
	return args.Bool(0), args.Error(1)
}
func (m *MockRepository) CountAdmins(roomId int) (int, error) {
	args := m.Called(roomId)
	return args.Int(0), args.Error(1)
}
func (m *MockRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockRepository) GetMessageById(messageId int) (Message, error) {
	args := m.Called(messageId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockRepository) GetRecentMessages(roomId, limit int) ([]Message, error) {
	args := m.Called(roomId, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockRepository) UpdateRoomLastMessage(roomId, messageId int) error {
	args := m.Called(roomId, messageId)
	return args.Error(0)
}
func (m *MockRepository) MarkMessagesRead(roomId, accountId int) error {
	args := m.Called(roomId, accountId)
	return args.Error(0)
}
func (m *MockRepository) CreateInvitation(params CreateInvitationParams) (Invitation, error) {
	args := m.Called(params)
	return args.Get(0).(Invitation), args.Error(1)
}
func (m *MockRepository) GetPendingInvitation(token string, now time.Time) (Invitation, error) {
	args := m.Called(token, now)
	return args.Get(0).(Invitation), args.Error(1)
}
func (m *MockRepository) AcceptInvitation(params AcceptInvitationParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
