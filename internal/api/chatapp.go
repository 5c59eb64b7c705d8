package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/jdoherty/chatserver/internal/chat"
	"github.com/jdoherty/chatserver/internal/config"
	"github.com/jdoherty/chatserver/internal/database"
	"github.com/jdoherty/chatserver/internal/email"
	"github.com/jdoherty/chatserver/internal/server"
)

type ChatApp struct {
	log            *log.Logger
	db             database.Repository
	rooms          *chat.RoomService
	messages       *chat.MessageService
	invitations    *chat.InvitationService
	users          *chat.UserService
	cs             *server.ChatServer
	mux            *http.Server
	signingKey     []byte
	allowedOrigins []string
}

func NewChatApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, db database.Repository, mailer email.Sender, cfg *config.Config) *ChatApp {
	s := &ChatApp{
		log:            logger,
		db:             db,
		rooms:          chat.NewRoomService(logger, db),
		messages:       chat.NewMessageService(logger, db),
		invitations:    chat.NewInvitationService(logger, db, mailer, cfg.FrontendURL),
		users:          chat.NewUserService(logger, db),
		cs:             cs,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.HandleFunc("GET /api/auth/logout", s.authMiddleware(s.logout))

	mux.HandleFunc("GET /api/rooms", s.authMiddleware(s.getRooms))
	mux.HandleFunc("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.HandleFunc("GET /api/rooms/{id}", s.authMiddleware(s.getRoom))
	mux.HandleFunc("PUT /api/rooms/{id}", s.authMiddleware(s.updateRoom))
	mux.HandleFunc("POST /api/rooms/{id}/participants", s.authMiddleware(s.addParticipants))
	mux.HandleFunc("DELETE /api/rooms/{id}/participants/{userId}", s.authMiddleware(s.removeParticipant))
	mux.HandleFunc("POST /api/rooms/{id}/invite", s.authMiddleware(s.inviteToRoom))

	mux.HandleFunc("GET /api/messages/{roomId}", s.authMiddleware(s.getMessages))
	mux.HandleFunc("POST /api/messages", s.authMiddleware(s.sendMessage))
	mux.HandleFunc("PUT /api/messages/{roomId}/read", s.authMiddleware(s.markMessagesRead))

	mux.HandleFunc("POST /api/invitations", s.authMiddleware(s.createInvitation))
	mux.HandleFunc("GET /api/invitations/{token}", s.getInvitation)
	mux.HandleFunc("POST /api/invitations/{token}/accept", s.acceptInvitation)

	mux.HandleFunc("GET /api/users", s.authMiddleware(s.getUsers))
	mux.HandleFunc("GET /api/users/search", s.authMiddleware(s.searchUsers))
	mux.HandleFunc("GET /api/users/{id}", s.authMiddleware(s.getUser))
	mux.HandleFunc("PUT /api/users/profile", s.authMiddleware(s.updateProfile))
	mux.HandleFunc("PUT /api/users/status", s.authMiddleware(s.updateStatus))

	mux.HandleFunc("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *ChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *ChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
