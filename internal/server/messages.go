package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jdoherty/chatserver/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ClientMessage struct {
	BaseMessage
	Join    *Join    `json:"join,omitempty"`
	Leave   *Leave   `json:"leave,omitempty"`
	Publish *Publish `json:"publish,omitempty"`
	Typing  *Typing  `json:"typing,omitempty"`
	Status  *Status  `json:"status,omitempty"`
	client  *Client
}

type Join struct {
	RoomId string `json:"room_id"`
}

type Leave struct {
	RoomId string `json:"room_id"`
}

// Publish carries an already-persisted message for fan-out. The relay
// treats the payload as opaque; persistence happens over REST.
type Publish struct {
	RoomId  string          `json:"room_id"`
	Message json.RawMessage `json:"message"`
}

type Typing struct {
	RoomId string `json:"room_id"`
}

type Status struct {
	Status string `json:"status"`
}

type ServerMessage struct {
	BaseMessage
	Response     *Response           `json:"response,omitempty"`
	Message      *MessageEvent       `json:"message,omitempty"`
	Typing       *TypingNotification `json:"typing,omitempty"`
	StatusUpdate *StatusUpdate       `json:"status_update,omitempty"`
	SkipClient   *Client             `json:"-"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
}

type MessageEvent struct {
	RoomId  string          `json:"room_id"`
	Message json.RawMessage `json:"message"`
}

type TypingNotification struct {
	RoomId string     `json:"room_id"`
	User   types.User `json:"user"`
}

type StatusUpdate struct {
	User types.User `json:"user"`
}

func NoErrOK(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
		},
	}
}

func ErrRoomNotFound(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusNotFound,
			Error:        "room not found",
		},
	}
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusServiceUnavailable,
			Error:        "service unavailable",
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
