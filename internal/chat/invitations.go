package chat

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jdoherty/chatserver/internal/database"
	"github.com/jdoherty/chatserver/internal/email"
	"github.com/jdoherty/chatserver/internal/types"
	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"
)

const (
	invitationTTL          = 7 * 24 * time.Hour
	invitationTokenBytes   = 32
	passwordMinEntropyBits = 30
)

type InvitationService struct {
	log         *log.Logger
	db          database.Repository
	mailer      email.Sender
	frontendURL string
}

func NewInvitationService(logger *log.Logger, db database.Repository, mailer email.Sender, frontendURL string) *InvitationService {
	return &InvitationService{
		log:         logger,
		db:          db,
		mailer:      mailer,
		frontendURL: frontendURL,
	}
}

func toApiInvitation(inv database.Invitation) types.Invitation {
	return types.Invitation{
		Id:        inv.Id,
		RoomId:    inv.RoomId,
		RoomName:  inv.RoomName,
		RoomType:  inv.RoomType,
		InvitedBy: inv.InvitedBy,
		Email:     inv.Email,
		Status:    inv.Status,
		ExpiresAt: inv.ExpiresAt,
		CreatedAt: inv.CreatedAt,
	}
}

func generateInvitationToken() (string, error) {
	buf := make([]byte, invitationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// CreateInvitation issues a single-use token binding an email address to
// a room and mails the accept link. Invitations are for onboarding new
// accounts only; existing users are added through RoomService.InviteToRoom.
func (s *InvitationService) CreateInvitation(userId, roomId int, emailAddr string) (types.Invitation, error) {
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		return types.Invitation{}, NewValidationError("a valid email address is required")
	}

	dbRoom, err := s.db.GetRoomWithParticipants(roomId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return types.Invitation{}, NewNotFoundError("room not found")
		}
		return types.Invitation{}, err
	}

	if !isParticipant(dbRoom, userId) {
		return types.Invitation{}, NewNotFoundError("room not found")
	}

	if _, err := s.db.GetAccountByEmail(emailAddr); err == nil {
		return types.Invitation{}, NewConflictError("user already exists")
	} else if !errors.Is(err, database.ErrNotFound) {
		return types.Invitation{}, err
	}

	token, err := generateInvitationToken()
	if err != nil {
		return types.Invitation{}, err
	}

	inv, err := s.db.CreateInvitation(database.CreateInvitationParams{
		RoomId:    roomId,
		InvitedBy: userId,
		Email:     emailAddr,
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(invitationTTL),
	})
	if err != nil {
		return types.Invitation{}, err
	}

	inv.RoomName = dbRoom.Name
	inv.RoomType = dbRoom.Type

	// the invitation is already durable at this point; a failed send is
	// reported to the caller rather than pretending delivery happened
	link := fmt.Sprintf("%s/invite/%s", s.frontendURL, token)
	if err := s.mailer.SendRoomInvitation(emailAddr, dbRoom.Name, link); err != nil {
		s.log.Printf("send invitation email to %s: %v", emailAddr, err)
		return toApiInvitation(inv), NewUnavailableError("invitation created but email delivery failed", err)
	}

	return toApiInvitation(inv), nil
}

// GetInvitation resolves a token to its pending invitation. Expired,
// accepted and unknown tokens are indistinguishable to the caller.
func (s *InvitationService) GetInvitation(token string) (types.Invitation, error) {
	inv, err := s.db.GetPendingInvitation(token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return types.Invitation{}, NewNotFoundError("invalid or expired invitation")
		}
		return types.Invitation{}, err
	}

	return toApiInvitation(inv), nil
}

// AcceptInvitation provisions an account for the invited email and adds
// it to the room. A token accepts exactly once.
func (s *InvitationService) AcceptInvitation(token, username, password string) (types.User, error) {
	if username == "" {
		return types.User{}, NewValidationError("username is required")
	}

	if err := passwordvalidator.Validate(password, passwordMinEntropyBits); err != nil {
		return types.User{}, NewValidationError(err.Error())
	}

	inv, err := s.db.GetPendingInvitation(token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return types.User{}, NewNotFoundError("invalid or expired invitation")
		}
		return types.User{}, err
	}

	pwdHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.db.AcceptInvitation(database.AcceptInvitationParams{
		InvitationId: inv.Id,
		RoomId:       inv.RoomId,
		Username:     username,
		Email:        inv.Email,
		PasswordHash: string(pwdHash),
	})
	if err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicate):
			return types.User{}, NewConflictError("user already exists")
		case errors.Is(err, database.ErrNotFound):
			return types.User{}, NewNotFoundError("invalid or expired invitation")
		}
		return types.User{}, err
	}

	return types.User{
		Id:           user.Id,
		Username:     user.Username,
		EmailAddress: user.EmailAddress,
		Avatar:       user.Avatar,
		Status:       user.Status,
		LastSeen:     user.LastSeen,
	}, nil
}
