package chat

import (
	"errors"
	"log"

	"github.com/jdoherty/chatserver/internal/database"
	"github.com/jdoherty/chatserver/internal/types"
	"github.com/teris-io/shortid"
)

type RoomService struct {
	log             *log.Logger
	db              database.Repository
	generateShortId func() (string, error)
}

func NewRoomService(logger *log.Logger, db database.Repository) *RoomService {
	return &RoomService{
		log:             logger,
		db:              db,
		generateShortId: shortid.Generate,
	}
}

type CreateRoomRequest struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Description    string `json:"description"`
	ParticipantIds []int  `json:"participants"`
}

type UpdateRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Avatar      string `json:"avatar"`
}

// resolveRoom loads the room with participant profiles and its last
// message, producing the API projection returned by every room operation.
func resolveRoom(db database.Repository, logger *log.Logger, roomId int) (types.Room, error) {
	dbRoom, err := db.GetRoomWithParticipants(roomId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return types.Room{}, NewNotFoundError("room not found")
		}
		return types.Room{}, err
	}

	return projectRoom(db, logger, dbRoom)
}

// projectRoom builds the API projection from an already-loaded row.
func projectRoom(db database.Repository, logger *log.Logger, dbRoom database.Room) (types.Room, error) {
	room := types.Room{
		Id:          dbRoom.Id,
		ExternalId:  dbRoom.ExternalId,
		Name:        dbRoom.Name,
		Type:        dbRoom.Type,
		Avatar:      dbRoom.Avatar,
		Description: dbRoom.Description,
		CreatedAt:   dbRoom.CreatedAt,
		UpdatedAt:   dbRoom.UpdatedAt,
	}

	room.Participants = make([]types.Participant, 0, len(dbRoom.Participants))
	for _, p := range dbRoom.Participants {
		room.Participants = append(room.Participants, types.Participant{
			Id:       p.AccountId,
			Username: p.Username,
			Avatar:   p.Avatar,
			Status:   p.Status,
			Admin:    p.IsAdmin,
		})
	}

	if dbRoom.LastMessageId != 0 {
		msg, err := db.GetMessageById(dbRoom.LastMessageId)
		if err != nil {
			// last message is a hint, not worth failing the request over
			logger.Printf("resolve last message %d: %v", dbRoom.LastMessageId, err)
		} else {
			lastMsg := toApiMessage(msg)
			room.LastMessage = &lastMsg
		}
	}

	return room, nil
}

func isParticipant(room database.Room, accountId int) bool {
	for _, p := range room.Participants {
		if p.AccountId == accountId {
			return true
		}
	}

	return false
}

func isAdmin(room database.Room, accountId int) bool {
	for _, p := range room.Participants {
		if p.AccountId == accountId {
			return p.IsAdmin
		}
	}

	return false
}

// ResolveExternalId maps a room's public identifier to its internal id.
func (s *RoomService) ResolveExternalId(externalId string) (int, error) {
	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return 0, NewNotFoundError("room not found")
		}
		return 0, err
	}

	return room.Id, nil
}

func (s *RoomService) ListRooms(userId int) ([]types.Room, error) {
	dbRooms, err := s.db.ListRoomsForAccount(userId)
	if err != nil {
		return nil, err
	}

	rooms := make([]types.Room, 0, len(dbRooms))
	for _, dbRoom := range dbRooms {
		room, err := resolveRoom(s.db, s.log, dbRoom.Id)
		if err != nil {
			return nil, err
		}

		rooms = append(rooms, room)
	}

	return rooms, nil
}

func (s *RoomService) CreateRoom(creatorId int, req CreateRoomRequest) (types.Room, error) {
	if req.Name == "" {
		return types.Room{}, NewValidationError("room name is required")
	}

	roomType := req.Type
	if roomType == "" {
		roomType = types.RoomTypePrivate
	}
	if !types.ValidRoomType(roomType) {
		return types.Room{}, NewValidationError("invalid room type")
	}

	sid, err := s.generateShortId()
	if err != nil {
		return types.Room{}, err
	}

	dbRoom, err := s.db.CreateRoom(database.CreateRoomParams{
		Name:           req.Name,
		Type:           roomType,
		Description:    req.Description,
		ExternalId:     sid,
		CreatorId:      creatorId,
		ParticipantIds: req.ParticipantIds,
	})
	if err != nil {
		return types.Room{}, err
	}

	return resolveRoom(s.db, s.log, dbRoom.Id)
}

func (s *RoomService) GetRoom(userId, roomId int) (types.Room, error) {
	dbRoom, err := s.db.GetRoomWithParticipants(roomId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return types.Room{}, NewNotFoundError("room not found")
		}
		return types.Room{}, err
	}

	// non-members get the same answer as for a missing room so that
	// room ids cannot be probed for existence
	if !isParticipant(dbRoom, userId) {
		return types.Room{}, NewNotFoundError("room not found")
	}

	return projectRoom(s.db, s.log, dbRoom)
}

// adminGate loads the room and verifies the caller may mutate it. A
// missing room and a non-member are both reported as not found; a member
// without the admin flag is reported as forbidden.
func (s *RoomService) adminGate(userId, roomId int) (database.Room, error) {
	dbRoom, err := s.db.GetRoomWithParticipants(roomId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return database.Room{}, NewNotFoundError("room not found")
		}
		return database.Room{}, err
	}

	if !isParticipant(dbRoom, userId) {
		return database.Room{}, NewNotFoundError("room not found")
	}

	if !isAdmin(dbRoom, userId) {
		return database.Room{}, NewForbiddenError("access denied")
	}

	return dbRoom, nil
}

func (s *RoomService) UpdateRoom(userId, roomId int, req UpdateRoomRequest) (types.Room, error) {
	dbRoom, err := s.adminGate(userId, roomId)
	if err != nil {
		return types.Room{}, err
	}

	// partial update: empty fields keep their current value
	params := database.UpdateRoomParams{
		RoomId:      roomId,
		Name:        dbRoom.Name,
		Description: dbRoom.Description,
		Avatar:      dbRoom.Avatar,
	}
	if req.Name != "" {
		params.Name = req.Name
	}
	if req.Description != "" {
		params.Description = req.Description
	}
	if req.Avatar != "" {
		params.Avatar = req.Avatar
	}

	if err := s.db.UpdateRoom(params); err != nil {
		return types.Room{}, err
	}

	return resolveRoom(s.db, s.log, roomId)
}

func (s *RoomService) AddParticipants(userId, roomId int, participantIds []int) (types.Room, error) {
	if _, err := s.adminGate(userId, roomId); err != nil {
		return types.Room{}, err
	}

	if len(participantIds) > 0 {
		if err := s.db.AddParticipants(roomId, participantIds); err != nil {
			return types.Room{}, err
		}
	}

	return resolveRoom(s.db, s.log, roomId)
}

func (s *RoomService) RemoveParticipant(userId, roomId, targetId int) (types.Room, error) {
	dbRoom, err := s.adminGate(userId, roomId)
	if err != nil {
		return types.Room{}, err
	}

	if !isParticipant(dbRoom, targetId) {
		// removing a non-member is a no-op
		return resolveRoom(s.db, s.log, roomId)
	}

	// a room with members must keep at least one admin; dropping the
	// participant row also drops the admin flag, so guard here
	if isAdmin(dbRoom, targetId) {
		adminCount, err := s.db.CountAdmins(roomId)
		if err != nil {
			return types.Room{}, err
		}

		if adminCount == 1 && len(dbRoom.Participants) > 1 {
			return types.Room{}, NewValidationError("cannot remove the last admin of a room")
		}
	}

	if err := s.db.RemoveParticipant(roomId, targetId); err != nil {
		return types.Room{}, err
	}

	return resolveRoom(s.db, s.log, roomId)
}

// InviteToRoom adds known users directly to the room. Unlike
// AddParticipants it is open to any member, not just admins.
func (s *RoomService) InviteToRoom(userId, roomId int, userIds []int) (types.Room, error) {
	dbRoom, err := s.db.GetRoomWithParticipants(roomId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return types.Room{}, NewNotFoundError("room not found")
		}
		return types.Room{}, err
	}

	if !isParticipant(dbRoom, userId) {
		return types.Room{}, NewNotFoundError("room not found")
	}

	if len(userIds) > 0 {
		if err := s.db.AddParticipants(roomId, userIds); err != nil {
			return types.Room{}, err
		}
	}

	return resolveRoom(s.db, s.log, roomId)
}
