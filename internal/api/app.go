package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/bookitnow/chat-server/internal/config"
	"github.com/bookitnow/chat-server/internal/database"
	"github.com/bookitnow/chat-server/internal/presence"
	"github.com/bookitnow/chat-server/internal/server"
	"github.com/bookitnow/chat-server/internal/stats"
	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"
)

type ChatApp struct {
	log            *log.Logger
	db             database.ChatRepository
	presence       presence.Store
	mux            *http.Server
	cs             *server.ChatServer
	stats          stats.StatsProvider
	signingKey     []byte
	allowedOrigins []string
	sid            *shortid.Shortid
}

func NewChatApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, db database.ChatRepository,
	ps presence.Store, sp stats.StatsProvider, cfg *config.Config) *ChatApp {
	s := &ChatApp{
		log:            logger,
		db:             db,
		presence:       ps,
		cs:             cs,
		stats:          sp,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		sid:            shortid.GetDefault(),
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/chat/chat-with/{userId}/{peerId}", s.authMiddleware(s.requireSelf(s.getConversation)))
	mux.Handle("POST /api/chat/chat-with/{userId}/{peerId}", s.authMiddleware(s.requireSelf(s.sendMessage)))
	mux.Handle("GET /api/chat/rooms/{userId}", s.authMiddleware(s.requireSelf(s.listRooms)))
	mux.Handle("GET /api/chat/notifications/{userId}", s.authMiddleware(s.requireSelf(s.notifications)))
	mux.Handle("POST /api/chat/read/{userId}/{peerId}", s.authMiddleware(s.requireSelf(s.markRead)))
	mux.Handle("POST /api/chat/online/{userId}/{peerId}", s.authMiddleware(s.requireSelf(s.markOnline)))
	mux.Handle("POST /api/chat/offline/{userId}", s.authMiddleware(s.requireSelf(s.markOffline)))
	mux.Handle("GET /api/chat/online/{userId}/{peerId}", s.authMiddleware(s.requireSelf(s.checkOnline)))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))
	mux.HandleFunc("GET /healthz", s.healthCheck)

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
