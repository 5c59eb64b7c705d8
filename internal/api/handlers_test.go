package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jdoherty/chatserver/internal/config"
	"github.com/jdoherty/chatserver/internal/database"
	"github.com/jdoherty/chatserver/internal/email"
	"github.com/jdoherty/chatserver/internal/testutil"
	"github.com/jdoherty/chatserver/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func authedRequest(method, target string, body any, t *testing.T, userId int) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, jsonBody(t, body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(WithUserId(req.Context(), userId))
}

func memberRoom(participants ...database.Participant) database.Room {
	return database.Room{
		Id:           1,
		ExternalId:   "abc123",
		Name:         "general",
		Type:         types.RoomTypePrivate,
		Participants: participants,
	}
}

func Test_healthCheck(t *testing.T) {
	tcases := []struct {
		name    string
		mockErr error
	}{
		{
			name: "successful health check",
		},
		{
			name:    "failed health check",
			mockErr: errors.New("db error"),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockRepository{}
			defer mockRepo.AssertExpectations(t)
			app := newTestApp(t, mockRepo)

			mockRepo.On("Ping").Return(tc.mockErr).Once()

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			app.healthCheck(rr, req)

			if tc.mockErr != nil {
				assert.Equal(t, http.StatusInternalServerError, rr.Code)
			} else {
				assert.Equal(t, http.StatusOK, rr.Code)
				assert.Equal(t, "OK", rr.Body.String())
			}
		})
	}
}

func TestGetRoomHandler(t *testing.T) {
	dbRoom := memberRoom(database.Participant{AccountId: 1, Username: "alice", IsAdmin: true})

	tcases := []struct {
		name         string
		userId       int
		resolveErr   error
		expectedCode int
	}{
		{
			name:         "member gets the room",
			userId:       1,
			expectedCode: http.StatusOK,
		},
		{
			name:         "unknown external id is not found",
			userId:       1,
			resolveErr:   database.ErrNotFound,
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "non-member gets not found",
			userId:       99,
			expectedCode: http.StatusNotFound,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockRepository{}
			defer mockRepo.AssertExpectations(t)
			app := newTestApp(t, mockRepo)

			mockRepo.On("GetRoomByExternalId", "abc123").
				Return(dbRoom, tc.resolveErr).Once()
			if tc.resolveErr == nil {
				mockRepo.On("GetRoomWithParticipants", dbRoom.Id).Return(dbRoom, nil).Once()
			}

			rr := httptest.NewRecorder()
			req := authedRequest(http.MethodGet, "/api/rooms/abc123", nil, t, tc.userId)
			req.SetPathValue("id", "abc123")
			app.getRoom(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode == http.StatusOK {
				var room types.Room
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&room))
				assert.Equal(t, "abc123", room.ExternalId)
			}
		})
	}
}

func TestCreateRoomHandler(t *testing.T) {
	mockRepo := &database.MockRepository{}
	defer mockRepo.AssertExpectations(t)
	app := newTestApp(t, mockRepo)

	dbRoom := memberRoom(database.Participant{AccountId: 1, Username: "alice", IsAdmin: true})
	mockRepo.On("CreateRoom", mock.MatchedBy(func(p database.CreateRoomParams) bool {
		return p.Name == "general" && p.CreatorId == 1 && p.ExternalId != ""
	})).Return(dbRoom, nil).Once()
	mockRepo.On("GetRoomWithParticipants", dbRoom.Id).Return(dbRoom, nil).Once()

	rr := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/api/rooms", map[string]any{"name": "general"}, t, 1)
	app.createRoom(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var room types.Room
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&room))
	assert.Equal(t, "general", room.Name)
}

func TestCreateRoomHandler_InvalidBody(t *testing.T) {
	app := newTestApp(t, &database.MockRepository{})

	rr := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/api/rooms", "not json", t, 1)
	app.createRoom(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateRoomHandler_Forbidden(t *testing.T) {
	mockRepo := &database.MockRepository{}
	defer mockRepo.AssertExpectations(t)
	app := newTestApp(t, mockRepo)

	dbRoom := memberRoom(
		database.Participant{AccountId: 1, IsAdmin: true},
		database.Participant{AccountId: 2},
	)
	mockRepo.On("GetRoomByExternalId", "abc123").Return(dbRoom, nil).Once()
	mockRepo.On("GetRoomWithParticipants", dbRoom.Id).Return(dbRoom, nil).Once()

	rr := httptest.NewRecorder()
	req := authedRequest(http.MethodPut, "/api/rooms/abc123", map[string]any{"name": "renamed"}, t, 2)
	req.SetPathValue("id", "abc123")
	app.updateRoom(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRemoveParticipantHandler_InvalidUserId(t *testing.T) {
	mockRepo := &database.MockRepository{}
	defer mockRepo.AssertExpectations(t)
	app := newTestApp(t, mockRepo)

	dbRoom := memberRoom(database.Participant{AccountId: 1, IsAdmin: true})
	mockRepo.On("GetRoomByExternalId", "abc123").Return(dbRoom, nil).Once()

	rr := httptest.NewRecorder()
	req := authedRequest(http.MethodDelete, "/api/rooms/abc123/participants/abc", nil, t, 1)
	req.SetPathValue("id", "abc123")
	req.SetPathValue("userId", "abc")
	app.removeParticipant(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSendMessageHandler(t *testing.T) {
	mockRepo := &database.MockRepository{}
	defer mockRepo.AssertExpectations(t)
	app := newTestApp(t, mockRepo)

	dbRoom := memberRoom(database.Participant{AccountId: 1})
	saved := database.Message{
		Id:       10,
		RoomId:   dbRoom.Id,
		SenderId: 1,
		Sender:   database.User{Id: 1, Username: "alice"},
		Content:  "hello",
		Type:     types.MessageTypeText,
	}

	mockRepo.On("GetRoomByExternalId", "abc123").Return(dbRoom, nil).Once()
	mockRepo.On("GetRoomById", dbRoom.Id).Return(dbRoom, nil).Once()
	mockRepo.On("IsParticipant", dbRoom.Id, 1).Return(true, nil).Once()
	mockRepo.On("CreateMessage", database.CreateMessageParams{
		RoomId:   dbRoom.Id,
		SenderId: 1,
		Content:  "hello",
		Type:     types.MessageTypeText,
	}).Return(saved, nil).Once()
	mockRepo.On("UpdateRoomLastMessage", dbRoom.Id, saved.Id).Return(nil).Once()
	mockRepo.On("GetMessageById", saved.Id).Return(saved, nil).Once()

	rr := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/api/messages", SendMessageRequest{
		RoomId:  "abc123",
		Content: "hello",
	}, t, 1)
	app.sendMessage(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var msg types.Message
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&msg))
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "alice", msg.Sender.Username)
}

func TestGetMessagesHandler(t *testing.T) {
	mockRepo := &database.MockRepository{}
	defer mockRepo.AssertExpectations(t)
	app := newTestApp(t, mockRepo)

	dbRoom := memberRoom(database.Participant{AccountId: 1})
	mockRepo.On("GetRoomByExternalId", "abc123").Return(dbRoom, nil).Once()
	mockRepo.On("GetRoomById", dbRoom.Id).Return(dbRoom, nil).Once()
	mockRepo.On("IsParticipant", dbRoom.Id, 1).Return(true, nil).Once()
	mockRepo.On("GetRecentMessages", dbRoom.Id, 50).
		Return([]database.Message{
			{Id: 2, RoomId: dbRoom.Id, Content: "second", Type: types.MessageTypeText},
			{Id: 1, RoomId: dbRoom.Id, Content: "first", Type: types.MessageTypeText},
		}, nil).Once()

	rr := httptest.NewRecorder()
	req := authedRequest(http.MethodGet, "/api/messages/abc123", nil, t, 1)
	req.SetPathValue("roomId", "abc123")
	app.getMessages(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var messages []types.Message
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&messages))
	if assert.Len(t, messages, 2) {
		assert.Equal(t, "first", messages[0].Content)
		assert.Equal(t, "second", messages[1].Content)
	}
}

func TestMarkMessagesReadHandler(t *testing.T) {
	mockRepo := &database.MockRepository{}
	defer mockRepo.AssertExpectations(t)
	app := newTestApp(t, mockRepo)

	dbRoom := memberRoom(database.Participant{AccountId: 1})
	mockRepo.On("GetRoomByExternalId", "abc123").Return(dbRoom, nil).Once()
	mockRepo.On("GetRoomById", dbRoom.Id).Return(dbRoom, nil).Once()
	mockRepo.On("IsParticipant", dbRoom.Id, 1).Return(true, nil).Once()
	mockRepo.On("MarkMessagesRead", dbRoom.Id, 1).Return(nil).Once()

	rr := httptest.NewRecorder()
	req := authedRequest(http.MethodPut, "/api/messages/abc123/read", nil, t, 1)
	req.SetPathValue("roomId", "abc123")
	app.markMessagesRead(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGetInvitationHandler_IsPublic(t *testing.T) {
	mockRepo := &database.MockRepository{}
	defer mockRepo.AssertExpectations(t)
	app := newTestApp(t, mockRepo)

	inv := database.Invitation{
		Id:       1,
		RoomId:   1,
		RoomName: "general",
		Email:    "newcomer@example.com",
		Status:   "pending",
	}
	mockRepo.On("GetPendingInvitation", "token123", mock.AnythingOfType("time.Time")).
		Return(inv, nil).Once()

	rr := httptest.NewRecorder()
	// note: no authenticated user on the context
	req := httptest.NewRequest(http.MethodGet, "/api/invitations/token123", nil)
	req.SetPathValue("token", "token123")
	app.getInvitation(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var got types.Invitation
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, "general", got.RoomName)
}

func TestCreateInvitationHandler_EmailFailure(t *testing.T) {
	mockRepo := &database.MockRepository{}
	defer mockRepo.AssertExpectations(t)

	mailer := &email.MockSender{}
	defer mailer.AssertExpectations(t)
	mailer.On("SendRoomInvitation", "newcomer@example.com", "general", mock.AnythingOfType("string")).
		Return(errors.New("smtp unreachable")).Once()

	app := NewChatApp(http.NewServeMux(), testutil.TestLogger(t), nil, mockRepo, mailer, &config.Config{
		SigningKey:  []byte("test-signing-key"),
		FrontendURL: "http://localhost:3000",
	})

	dbRoom := memberRoom(database.Participant{AccountId: 1})
	mockRepo.On("GetRoomByExternalId", "abc123").Return(dbRoom, nil).Once()
	mockRepo.On("GetRoomWithParticipants", dbRoom.Id).Return(dbRoom, nil).Once()
	mockRepo.On("GetAccountByEmail", "newcomer@example.com").
		Return(database.User{}, database.ErrNotFound).Once()
	mockRepo.On("CreateInvitation", mock.AnythingOfType("database.CreateInvitationParams")).
		Return(database.Invitation{Id: 1, RoomId: dbRoom.Id, Email: "newcomer@example.com"}, nil).Once()

	rr := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/api/invitations", CreateInvitationRequest{
		RoomId: "abc123",
		Email:  "newcomer@example.com",
	}, t, 1)
	app.createInvitation(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestUpdateStatusHandler(t *testing.T) {
	tcases := []struct {
		name         string
		status       string
		expectUpdate bool
		expectedCode int
	}{
		{
			name:         "sets a valid status",
			status:       types.StatusAway,
			expectUpdate: true,
			expectedCode: http.StatusOK,
		},
		{
			name:         "rejects an unknown status",
			status:       "invisible",
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockRepository{}
			defer mockRepo.AssertExpectations(t)
			app := newTestApp(t, mockRepo)

			if tc.expectUpdate {
				mockRepo.On("UpdateAccountStatus", 1, tc.status, mock.AnythingOfType("time.Time")).
					Return(database.User{Id: 1, Username: "alice", Status: tc.status}, nil).Once()
			}

			rr := httptest.NewRecorder()
			req := authedRequest(http.MethodPut, "/api/users/status", UpdateStatusRequest{Status: tc.status}, t, 1)
			app.updateStatus(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
		})
	}
}

func TestSearchUsersHandler(t *testing.T) {
	mockRepo := &database.MockRepository{}
	defer mockRepo.AssertExpectations(t)
	app := newTestApp(t, mockRepo)

	mockRepo.On("SearchAccounts", "bo", 1, 10).
		Return([]database.User{{Id: 2, Username: "bob"}}, nil).Once()

	rr := httptest.NewRecorder()
	req := authedRequest(http.MethodGet, "/api/users/search?q=bo", nil, t, 1)
	app.searchUsers(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var users []types.User
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&users))
	if assert.Len(t, users, 1) {
		assert.Equal(t, "bob", users[0].Username)
	}
}

func TestGetUserHandler(t *testing.T) {
	tcases := []struct {
		name         string
		pathId       string
		mockErr      error
		expectFetch  bool
		expectedCode int
	}{
		{
			name:         "returns the user",
			pathId:       "2",
			expectFetch:  true,
			expectedCode: http.StatusOK,
		},
		{
			name:         "non-numeric id is a bad request",
			pathId:       "abc",
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "missing user is not found",
			pathId:       "2",
			mockErr:      database.ErrNotFound,
			expectFetch:  true,
			expectedCode: http.StatusNotFound,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockRepository{}
			defer mockRepo.AssertExpectations(t)
			app := newTestApp(t, mockRepo)

			if tc.expectFetch {
				mockRepo.On("GetAccountById", 2).
					Return(database.User{Id: 2, Username: "bob"}, tc.mockErr).Once()
			}

			rr := httptest.NewRecorder()
			req := authedRequest(http.MethodGet, "/api/users/"+tc.pathId, nil, t, 1)
			req.SetPathValue("id", tc.pathId)
			app.getUser(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
		})
	}
}
