package database

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a row does not exist. ErrDuplicate is
// returned when an insert violates a unique constraint.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type Repository interface {
	Ping() error

	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	ListAccounts(excludeId int) ([]User, error)
	SearchAccounts(query string, excludeId, limit int) ([]User, error)
	UpdateProfile(params UpdateProfileParams) (User, error)
	UpdateAccountStatus(accountId int, status string, lastSeen time.Time) (User, error)

	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoomById(roomId int) (Room, error)
	GetRoomByExternalId(externalId string) (Room, error)
	GetRoomWithParticipants(roomId int) (Room, error)
	ListRoomsForAccount(accountId int) ([]Room, error)
	UpdateRoom(params UpdateRoomParams) error
	AddParticipants(roomId int, accountIds []int) error
	RemoveParticipant(roomId, accountId int) error
	IsParticipant(roomId, accountId int) (bool, error)
	IsAdmin(roomId, accountId int) (bool, error)
	CountAdmins(roomId int) (int, error)

	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessageById(messageId int) (Message, error)
	GetRecentMessages(roomId, limit int) ([]Message, error)
	UpdateRoomLastMessage(roomId, messageId int) error
	MarkMessagesRead(roomId, accountId int) error

	CreateInvitation(params CreateInvitationParams) (Invitation, error)
	GetPendingInvitation(token string, now time.Time) (Invitation, error)
	AcceptInvitation(params AcceptInvitationParams) (User, error)
}
