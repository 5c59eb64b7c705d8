package chat

import (
	"errors"
	"log"
	"time"

	"github.com/jdoherty/chatserver/internal/database"
	"github.com/jdoherty/chatserver/internal/types"
)

const searchResultLimit = 10

type UserService struct {
	log *log.Logger
	db  database.Repository
}

func NewUserService(logger *log.Logger, db database.Repository) *UserService {
	return &UserService{log: logger, db: db}
}

type UpdateProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

func toProfile(u database.User) types.User {
	return types.User{
		Id:           u.Id,
		Username:     u.Username,
		EmailAddress: u.EmailAddress,
		Avatar:       u.Avatar,
		Status:       u.Status,
		LastSeen:     u.LastSeen,
	}
}

func (s *UserService) ListUsers(callerId int) ([]types.User, error) {
	dbUsers, err := s.db.ListAccounts(callerId)
	if err != nil {
		return nil, err
	}

	users := make([]types.User, 0, len(dbUsers))
	for _, u := range dbUsers {
		users = append(users, toProfile(u))
	}

	return users, nil
}

func (s *UserService) GetUser(userId int) (types.User, error) {
	u, err := s.db.GetAccountById(userId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return types.User{}, NewNotFoundError("user not found")
		}
		return types.User{}, err
	}

	return toProfile(u), nil
}

func (s *UserService) UpdateProfile(userId int, req UpdateProfileRequest) (types.User, error) {
	cur, err := s.db.GetAccountById(userId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return types.User{}, NewNotFoundError("user not found")
		}
		return types.User{}, err
	}

	// partial update: empty fields keep their current value
	params := database.UpdateProfileParams{
		UserId:   userId,
		Username: cur.Username,
		Email:    cur.EmailAddress,
		Avatar:   cur.Avatar,
	}
	if req.Username != "" {
		params.Username = req.Username
	}
	if req.Email != "" {
		params.Email = req.Email
	}
	if req.Avatar != "" {
		params.Avatar = req.Avatar
	}

	u, err := s.db.UpdateProfile(params)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return types.User{}, NewConflictError("email already in use")
		}
		return types.User{}, err
	}

	return toProfile(u), nil
}

func (s *UserService) UpdateStatus(userId int, status string) (types.User, error) {
	if !types.ValidUserStatus(status) {
		return types.User{}, NewValidationError("invalid status")
	}

	u, err := s.db.UpdateAccountStatus(userId, status, time.Now().UTC())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return types.User{}, NewNotFoundError("user not found")
		}
		return types.User{}, err
	}

	return toProfile(u), nil
}

func (s *UserService) SearchUsers(callerId int, query string) ([]types.User, error) {
	if query == "" {
		return []types.User{}, nil
	}

	dbUsers, err := s.db.SearchAccounts(query, callerId, searchResultLimit)
	if err != nil {
		return nil, err
	}

	users := make([]types.User, 0, len(dbUsers))
	for _, u := range dbUsers {
		users = append(users, toProfile(u))
	}

	return users, nil
}
