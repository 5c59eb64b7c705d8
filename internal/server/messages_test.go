package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientMessageUnmarshal(t *testing.T) {
	tcases := []struct {
		name  string
		raw   string
		check func(t *testing.T, msg ClientMessage)
	}{
		{
			name: "join",
			raw:  `{"id":1,"join":{"room_id":"abc123"}}`,
			check: func(t *testing.T, msg ClientMessage) {
				assert.Equal(t, 1, msg.Id)
				if assert.NotNil(t, msg.Join) {
					assert.Equal(t, "abc123", msg.Join.RoomId)
				}
			},
		},
		{
			name: "publish carries the payload verbatim",
			raw:  `{"id":2,"publish":{"room_id":"abc123","message":{"content":"hi"}}}`,
			check: func(t *testing.T, msg ClientMessage) {
				if assert.NotNil(t, msg.Publish) {
					assert.JSONEq(t, `{"content":"hi"}`, string(msg.Publish.Message))
				}
			},
		},
		{
			name: "status",
			raw:  `{"status":{"status":"away"}}`,
			check: func(t *testing.T, msg ClientMessage) {
				if assert.NotNil(t, msg.Status) {
					assert.Equal(t, "away", msg.Status.Status)
				}
			},
		},
		{
			name: "unknown event leaves all fields nil",
			raw:  `{"id":3,"subscribe":{"room_id":"abc123"}}`,
			check: func(t *testing.T, msg ClientMessage) {
				assert.Nil(t, msg.Join)
				assert.Nil(t, msg.Leave)
				assert.Nil(t, msg.Publish)
				assert.Nil(t, msg.Typing)
				assert.Nil(t, msg.Status)
			},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			var msg ClientMessage
			err := json.Unmarshal([]byte(tc.raw), &msg)
			assert.NoError(t, err)
			tc.check(t, msg)
		})
	}
}

func TestResponseHelpers(t *testing.T) {
	ok := NoErrOK(5)
	assert.Equal(t, 5, ok.Id)
	assert.Equal(t, 200, ok.Response.ResponseCode)
	assert.Empty(t, ok.Response.Error)

	notFound := ErrRoomNotFound(6)
	assert.Equal(t, 404, notFound.Response.ResponseCode)
	assert.NotEmpty(t, notFound.Response.Error)

	unavailable := ErrServiceUnavailable(7)
	assert.Equal(t, 503, unavailable.Response.ResponseCode)

	invalid := ErrInvalidMessage(-1)
	assert.Equal(t, 400, invalid.Response.ResponseCode)
	assert.Zero(t, invalid.Id, "negative correlation ids are not echoed")
}

func TestServerMessageMarshal_OmitsEmptyEvents(t *testing.T) {
	data, err := json.Marshal(NoErrOK(1))
	assert.NoError(t, err)

	var decoded map[string]any
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "response")
	assert.NotContains(t, decoded, "message")
	assert.NotContains(t, decoded, "typing")
	assert.NotContains(t, decoded, "status_update")
}
