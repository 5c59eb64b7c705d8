package database

import "time"

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	Avatar       string
	Status       string
	LastSeen     time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Room struct {
	Id            int
	ExternalId    string
	Name          string
	Type          string
	Avatar        string
	Description   string
	IsActive      bool
	LastMessageId int
	Participants  []Participant
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Participant struct {
	AccountId int
	Username  string
	Avatar    string
	Status    string
	IsAdmin   bool
	CreatedAt time.Time
}

type Message struct {
	Id        int
	RoomId    int
	SenderId  int
	Sender    User
	Content   string
	Type      string
	FileUrl   string
	FileName  string
	FileSize  int64
	ReadBy    []int
	CreatedAt time.Time
}

type Invitation struct {
	Id        int
	RoomId    int
	RoomName  string
	RoomType  string
	InvitedBy int
	Email     string
	Token     string
	Status    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type UpdateProfileParams struct {
	UserId   int
	Username string
	Email    string
	Avatar   string
}

type CreateRoomParams struct {
	Name           string
	Type           string
	Description    string
	ExternalId     string
	CreatorId      int
	ParticipantIds []int
}

type UpdateRoomParams struct {
	RoomId      int
	Name        string
	Description string
	Avatar      string
}

type CreateMessageParams struct {
	RoomId   int
	SenderId int
	Content  string
	Type     string
	FileUrl  string
	FileName string
	FileSize int64
}

type CreateInvitationParams struct {
	RoomId    int
	InvitedBy int
	Email     string
	Token     string
	ExpiresAt time.Time
}

type AcceptInvitationParams struct {
	InvitationId int
	RoomId       int
	Username     string
	Email        string
	PasswordHash string
}
