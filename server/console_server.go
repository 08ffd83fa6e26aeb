package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/room4-2/frontdesk/config"
	"github.com/room4-2/frontdesk/dialogue"
	"github.com/room4-2/frontdesk/messages"
	"github.com/room4-2/frontdesk/session"
)

const (
	consoleReadLimit = 16 * 1024
	consoleWriteWait = 10 * time.Second
)

// Console is the local development chat: a WebSocket that runs the same
// orchestrator path as production, minus the platform.
type Console struct {
	httpServer *http.Server
	upgrader   websocket.Upgrader
	orch       *dialogue.Orchestrator
	store      *session.Store
	profile    *config.Profile
}

func NewConsole(cfg *config.Config, profile *config.Profile, orch *dialogue.Orchestrator, store *session.Store) *Console {
	s := &Console{
		orch:    orch,
		store:   store,
		profile: profile,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    4 * 1024,
			WriteBufferSize:   4 * 1024,
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				// Check allowed origins
				origin := r.Header.Get("Origin")
				for _, allowed := range cfg.AllowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	// Standalone console takes the main port.
	port := cfg.ConsolePort
	if cfg.ServerType == "console" {
		port = cfg.Port
	}

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
		// No ReadTimeout/WriteTimeout — these interfere with long-lived WebSocket connections.
		// The WebSocket layer handles its own timeouts via SetWriteDeadline/SetReadDeadline.
	}
	return s
}

// Start begins listening for console connections
func (s *Console) Start() error {
	log.Printf("🚀 Console server starting on %s", s.httpServer.Addr)
	log.Printf("📡 Console endpoint: ws://localhost%s/ws", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Console) Shutdown(ctx context.Context) error {
	log.Println("🛑 Shutting down console server...")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Console) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Console) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.New().String()[:8]
	userID := "console-" + sessionID
	conn.SetReadLimit(consoleReadLimit)

	log.Printf("✅ Console session %s connected", sessionID)
	s.write(conn, messages.NewStatusMessage(sessionID, "connected",
		fmt.Sprintf("Chatting with %s. Type /clear to start over.", s.profile.BotName)))

	for {
		var in messages.ClientMessage
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("🔌 Console session %s read error: %v", sessionID, err)
			}
			break
		}

		switch in.Type {
		case messages.TypeText:
			var p messages.TextPayload
			if err := sonic.Unmarshal(in.Payload, &p); err != nil {
				s.write(conn, messages.NewErrorMessage(sessionID, messages.ErrCodeInvalidMessage, "bad text payload"))
				continue
			}
			s.respond(conn, sessionID, userID, p.Text)
		case messages.TypeControl:
			var p messages.ControlPayload
			if err := sonic.Unmarshal(in.Payload, &p); err != nil || p.Action != "ping" {
				s.write(conn, messages.NewErrorMessage(sessionID, messages.ErrCodeInvalidMessage, "unknown control action"))
				continue
			}
			s.write(conn, messages.NewStatusMessage(sessionID, "pong", ""))
		default:
			s.write(conn, messages.NewErrorMessage(sessionID, messages.ErrCodeInvalidMessage,
				fmt.Sprintf("unknown message type %q", in.Type)))
		}
	}

	s.store.Remove(context.Background(), userID)
	log.Printf("🔌 Console session %s closed", sessionID)
}

// respond runs synchronously in the read loop, so there is never more
// than one writer on the connection.
func (s *Console) respond(conn *websocket.Conn, sessionID, userID, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	out := s.orch.Respond(ctx, dialogue.Inbound{
		UserID:   userID,
		Text:     text,
		Platform: "console",
	})
	s.write(conn, messages.NewReplyMessage(sessionID, out.Reply, string(out.State)))
}

func (s *Console) write(conn *websocket.Conn, msg *messages.ServerMessage) {
	_ = conn.SetWriteDeadline(time.Now().Add(consoleWriteWait))
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("⚠️ Console write failed: %v", err)
	}
}

func (s *Console) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","server":"console","sessions":%d}`, s.store.Count())
}
