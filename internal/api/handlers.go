package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/jdoherty/chatserver/internal/chat"
	"github.com/jdoherty/chatserver/internal/server"
	"github.com/jdoherty/chatserver/internal/types"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type AddParticipantsRequest struct {
	Participants []int `json:"participants"`
}

type InviteToRoomRequest struct {
	UserIds []int `json:"user_ids"`
}

type SendMessageRequest struct {
	RoomId   string `json:"room_id"`
	Content  string `json:"content"`
	Type     string `json:"type"`
	FileUrl  string `json:"file_url"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

type CreateInvitationRequest struct {
	RoomId string `json:"room_id"`
	Email  string `json:"email"`
}

type AcceptInvitationRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *ChatApp) writeServiceError(w http.ResponseWriter, err error) {
	errResp := fromServiceError(err)
	if errResp.StatusCode == http.StatusInternalServerError {
		s.log.Printf("internal error: %v", err)
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

func (s *ChatApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Printf("health check: %v", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// callerId pulls the authenticated user from the request context. The
// auth middleware guarantees it for every protected route.
func (s *ChatApp) callerId(w http.ResponseWriter, r *http.Request) (int, bool) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return 0, false
	}

	return userId, true
}

// roomIdFromPath resolves the external room id in the URL to the
// internal id used by the services.
func (s *ChatApp) roomIdFromPath(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	externalId := r.PathValue(name)
	if externalId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return 0, false
	}

	roomId, err := s.rooms.ResolveExternalId(externalId)
	if err != nil {
		s.writeServiceError(w, err)
		return 0, false
	}

	return roomId, true
}

func (s *ChatApp) getRooms(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	rooms, err := s.rooms.ListRooms(userId)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, rooms)
}

func (s *ChatApp) createRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	var req chat.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.rooms.CreateRoom(userId, req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, room)
}

func (s *ChatApp) getRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	roomId, ok := s.roomIdFromPath(w, r, "id")
	if !ok {
		return
	}

	room, err := s.rooms.GetRoom(userId, roomId)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, room)
}

func (s *ChatApp) updateRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	roomId, ok := s.roomIdFromPath(w, r, "id")
	if !ok {
		return
	}

	var req chat.UpdateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.rooms.UpdateRoom(userId, roomId, req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, room)
}

func (s *ChatApp) addParticipants(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	roomId, ok := s.roomIdFromPath(w, r, "id")
	if !ok {
		return
	}

	var req AddParticipantsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.rooms.AddParticipants(userId, roomId, req.Participants)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, room)
}

func (s *ChatApp) removeParticipant(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	roomId, ok := s.roomIdFromPath(w, r, "id")
	if !ok {
		return
	}

	targetId, err := strconv.Atoi(r.PathValue("userId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.rooms.RemoveParticipant(userId, roomId, targetId)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, room)
}

func (s *ChatApp) inviteToRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	roomId, ok := s.roomIdFromPath(w, r, "id")
	if !ok {
		return
	}

	var req InviteToRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.rooms.InviteToRoom(userId, roomId, req.UserIds)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, room)
}

func (s *ChatApp) getMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	roomId, ok := s.roomIdFromPath(w, r, "roomId")
	if !ok {
		return
	}

	messages, err := s.messages.ListMessages(userId, roomId)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, messages)
}

func (s *ChatApp) sendMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := s.rooms.ResolveExternalId(req.RoomId)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	msg, err := s.messages.SendMessage(userId, chat.SendMessageRequest{
		RoomId:   roomId,
		Content:  req.Content,
		Type:     req.Type,
		FileUrl:  req.FileUrl,
		FileName: req.FileName,
		FileSize: req.FileSize,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *ChatApp) markMessagesRead(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	roomId, ok := s.roomIdFromPath(w, r, "roomId")
	if !ok {
		return
	}

	if err := s.messages.MarkRead(userId, roomId); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"message": "messages marked as read"})
}

func (s *ChatApp) createInvitation(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	var req CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := s.rooms.ResolveExternalId(req.RoomId)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	inv, err := s.invitations.CreateInvitation(userId, roomId, req.Email)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, inv)
}

func (s *ChatApp) getInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := s.invitations.GetInvitation(r.PathValue("token"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, inv)
}

func (s *ChatApp) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req AcceptInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.invitations.AcceptInvitation(r.PathValue("token"), req.Username, req.Password)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, user)
}

func (s *ChatApp) getUsers(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	users, err := s.users.ListUsers(userId)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, users)
}

func (s *ChatApp) searchUsers(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	users, err := s.users.SearchUsers(userId, r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, users)
}

func (s *ChatApp) getUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.callerId(w, r); !ok {
		return
	}

	targetId, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.users.GetUser(targetId)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, user)
}

func (s *ChatApp) updateProfile(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	var req chat.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.users.UpdateProfile(userId, req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, user)
}

func (s *ChatApp) updateStatus(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.users.UpdateStatus(userId, req.Status)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, user)
}

func (s *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	user, err := s.users.GetUser(userId)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// non-browser clients send no origin header
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(types.User{
		Id:       user.Id,
		Username: user.Username,
		Avatar:   user.Avatar,
	}, conn, s.cs, s.log)

	s.cs.RegisterChan <- client
	go client.Write()
	go client.Read()
}
