package email

import (
	"github.com/stretchr/testify/mock"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendRoomInvitation(to, roomName, link string) error {
	args := m.Called(to, roomName, link)
	return args.Error(0)
}
