package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/mfyhq/collabchat/internal/chat"
	"github.com/mfyhq/collabchat/internal/config"
	"github.com/mfyhq/collabchat/internal/database"
	"github.com/mfyhq/collabchat/internal/message"
)

type CollabChatApp struct {
	log        *log.Logger
	db         database.ChatRepository
	mux        *http.Server
	tracker    *chat.Tracker
	messages   *message.Service
	hub        *Hub
	signingKey []byte
}

func NewCollabChatApp(mux *http.ServeMux, logger *log.Logger, db database.ChatRepository, tracker *chat.Tracker, messages *message.Service, hub *Hub, cfg *config.Config) *CollabChatApp {
	s := &CollabChatApp{
		log:        logger,
		db:         db,
		tracker:    tracker,
		messages:   messages,
		hub:        hub,
		signingKey: cfg.SigningKey,
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("POST /api/projects", s.authMiddleware(s.createProject))
	mux.Handle("GET /api/projects", s.authMiddleware(s.getUsersProjects))
	mux.Handle("POST /api/projects/join", s.authMiddleware(s.joinProject))
	mux.Handle("GET /api/messages/online", s.authMiddleware(s.getOnlineUsers))
	mux.Handle("GET /api/messages/system", s.authMiddleware(s.getSystemMessages))
	mux.Handle("GET /api/messages/system/today", s.authMiddleware(s.getTodaySystemMessages))
	mux.Handle("GET /api/messages/global", s.authMiddleware(s.getGlobalMessages))
	mux.Handle("GET /api/messages/private", s.authMiddleware(s.getPrivateMessages))
	mux.Handle("GET /api/messages/project", s.authMiddleware(s.getProjectMessages))
	mux.Handle("GET /api/messages/unread", s.authMiddleware(s.getUnreadMessages))
	mux.Handle("GET /api/notifications", s.authMiddleware(s.getNotifications))
	mux.Handle("PUT /api/notifications/read", s.authMiddleware(s.markNotificationsRead))
	mux.Handle("DELETE /api/notifications", s.authMiddleware(s.clearNotifications))
	mux.Handle("POST /api/conversations", s.authMiddleware(s.addConversation))
	mux.Handle("GET /api/conversations", s.authMiddleware(s.getConversations))
	mux.Handle("POST /api/messages", s.authMiddleware(s.sendMessage))
	mux.Handle("PUT /api/messages/attachments", s.authMiddleware(s.updateAttachments))
	mux.Handle("GET /api/messages/attachments/download", s.authMiddleware(s.downloadAttachment))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
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

func (s *CollabChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *CollabChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

func (s *CollabChatApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Printf("panic: %v", panicError)
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *CollabChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *CollabChatApp) writeRawJson(w http.ResponseWriter, statusCode int, raw []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(raw); err != nil {
		s.log.Printf("write response: %v", err)
	}
}
