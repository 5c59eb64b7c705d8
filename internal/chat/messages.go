package chat

import (
	"errors"
	"log"

	"github.com/jdoherty/chatserver/internal/database"
	"github.com/jdoherty/chatserver/internal/types"
)

const messageHistoryLimit = 50

type MessageService struct {
	log *log.Logger
	db  database.Repository
}

func NewMessageService(logger *log.Logger, db database.Repository) *MessageService {
	return &MessageService{log: logger, db: db}
}

type SendMessageRequest struct {
	RoomId   int    `json:"room_id"`
	Content  string `json:"content"`
	Type     string `json:"type"`
	FileUrl  string `json:"file_url"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

func toApiMessage(msg database.Message) types.Message {
	return types.Message{
		Id:     msg.Id,
		RoomId: msg.RoomId,
		Sender: types.User{
			Id:       msg.SenderId,
			Username: msg.Sender.Username,
			Avatar:   msg.Sender.Avatar,
		},
		Content:   msg.Content,
		Type:      msg.Type,
		FileUrl:   msg.FileUrl,
		FileName:  msg.FileName,
		FileSize:  msg.FileSize,
		ReadBy:    msg.ReadBy,
		Timestamp: msg.CreatedAt,
	}
}

// participantGate verifies the room exists and the caller belongs to it.
func (s *MessageService) participantGate(userId, roomId int) error {
	if _, err := s.db.GetRoomById(roomId); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return NewNotFoundError("room not found")
		}
		return err
	}

	member, err := s.db.IsParticipant(roomId, userId)
	if err != nil {
		return err
	}
	if !member {
		return NewForbiddenError("access denied")
	}

	return nil
}

// ListMessages returns the most recent messages in the room, oldest
// first. Membership is checked on every call, so a removed participant
// loses history access immediately.
func (s *MessageService) ListMessages(userId, roomId int) ([]types.Message, error) {
	if err := s.participantGate(userId, roomId); err != nil {
		return nil, err
	}

	dbMessages, err := s.db.GetRecentMessages(roomId, messageHistoryLimit)
	if err != nil {
		return nil, err
	}

	// fetched newest-first; reverse into chronological order
	messages := make([]types.Message, 0, len(dbMessages))
	for i := len(dbMessages) - 1; i >= 0; i-- {
		messages = append(messages, toApiMessage(dbMessages[i]))
	}

	return messages, nil
}

func (s *MessageService) SendMessage(userId int, req SendMessageRequest) (types.Message, error) {
	msgType := req.Type
	if msgType == "" {
		msgType = types.MessageTypeText
	}
	if !types.ValidMessageType(msgType) {
		return types.Message{}, NewValidationError("invalid message type")
	}

	if req.Content == "" && req.FileUrl == "" {
		return types.Message{}, NewValidationError("message content is required")
	}

	if err := s.participantGate(userId, req.RoomId); err != nil {
		return types.Message{}, err
	}

	msg, err := s.db.CreateMessage(database.CreateMessageParams{
		RoomId:   req.RoomId,
		SenderId: userId,
		Content:  req.Content,
		Type:     msgType,
		FileUrl:  req.FileUrl,
		FileName: req.FileName,
		FileSize: req.FileSize,
	})
	if err != nil {
		return types.Message{}, err
	}

	// the last-message pointer is best effort: a failure here leaves the
	// message saved but the room hint stale
	if err := s.db.UpdateRoomLastMessage(req.RoomId, msg.Id); err != nil {
		s.log.Printf("update last message for room %d: %v", req.RoomId, err)
	}

	saved, err := s.db.GetMessageById(msg.Id)
	if err != nil {
		return types.Message{}, err
	}

	return toApiMessage(saved), nil
}

// MarkRead records the caller as a reader of every message in the room
// they did not send themselves. Safe to repeat.
func (s *MessageService) MarkRead(userId, roomId int) error {
	if err := s.participantGate(userId, roomId); err != nil {
		return err
	}

	return s.db.MarkMessagesRead(roomId, userId)
}
