package types

import (
	"time"
)

const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusOffline = "offline"
)

const (
	RoomTypePrivate = "private"
	RoomTypeGroup   = "group"
)

const (
	MessageTypeText = "text"
	MessageTypeFile = "file"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	Status       string    `json:"status,omitempty"`
	LastSeen     time.Time `json:"last_seen,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Participant is a room member's public profile projection plus
// their admin flag for the room.
type Participant struct {
	Id       int    `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Status   string `json:"status,omitempty"`
	Admin    bool   `json:"admin"`
}

type Room struct {
	Id           int           `json:"id"`
	ExternalId   string        `json:"external_id"`
	Name         string        `json:"name"`
	Type         string        `json:"type"`
	Avatar       string        `json:"avatar,omitempty"`
	Description  string        `json:"description,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
	LastMessage  *Message      `json:"last_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at,omitempty"`
	UpdatedAt    time.Time     `json:"updated_at,omitempty"`
}

type Message struct {
	Id        int       `json:"id"`
	RoomId    int       `json:"room_id"`
	Sender    User      `json:"sender"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	FileUrl   string    `json:"file_url,omitempty"`
	FileName  string    `json:"file_name,omitempty"`
	FileSize  int64     `json:"file_size,omitempty"`
	ReadBy    []int     `json:"read_by,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Invitation struct {
	Id        int       `json:"id"`
	RoomId    int       `json:"room_id"`
	RoomName  string    `json:"room_name"`
	RoomType  string    `json:"room_type"`
	InvitedBy int       `json:"invited_by"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

func ValidUserStatus(status string) bool {
	switch status {
	case StatusOnline, StatusAway, StatusOffline:
		return true
	}
	return false
}

func ValidRoomType(roomType string) bool {
	switch roomType {
	case RoomTypePrivate, RoomTypeGroup:
		return true
	}
	return false
}

func ValidMessageType(msgType string) bool {
	switch msgType {
	case MessageTypeText, MessageTypeFile:
		return true
	}
	return false
}
