package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/contest-engine/internal/chat"
)

// upgrader returns a websocket upgrader honouring the configured CORS origins
func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.config.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// handleChatHistory handles GET /api/v1/chat/messages
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "chat_unavailable", "chat is not enabled")
		return
	}

	msgs, err := s.hub.History(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"messages": msgs,
		"total":    len(msgs),
	})
}

// handleChatSocket handles GET /api/v1/chat/ws. The connection is bound to
// the authenticated user for its whole lifetime.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "chat_unavailable", "chat is not enabled")
		return
	}

	user := UserFromContext(r.Context())

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "user_id", user.ID, "error", err)
		return
	}
	defer conn.Close()

	slog.Info("chat websocket connected", "user_id", user.ID, "role", user.Role)

	chat.NewClient(s.hub, conn, user).Serve(r.Context())

	slog.Info("chat websocket closed", "user_id", user.ID)
}
