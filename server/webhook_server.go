package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/room4-2/frontdesk/config"
	"github.com/room4-2/frontdesk/dialogue"
	"github.com/room4-2/frontdesk/messages"
	"github.com/room4-2/frontdesk/platform"
	"github.com/room4-2/frontdesk/session"
)

// A turn can make up to three model calls; give it room beyond the
// per-call LLM timeout.
const turnTimeout = 60 * time.Second

// Webhook receives Instagram messaging events from Meta and answers
// through the Graph API.
type Webhook struct {
	httpServer  *http.Server
	orch        *dialogue.Orchestrator
	sender      platform.Sender
	store       *session.Store
	profile     *config.Profile
	verifyToken string
}

func NewWebhook(cfg *config.Config, profile *config.Profile, orch *dialogue.Orchestrator, sender platform.Sender, store *session.Store) *Webhook {
	s := &Webhook{
		orch:        orch,
		sender:      sender,
		store:       store,
		profile:     profile,
		verifyToken: cfg.VerifyToken,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/webhook/instagram", s.handleVerify)
	r.Post("/webhook/instagram", s.handleEvent)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening for webhook deliveries
func (s *Webhook) Start() error {
	log.Printf("🚀 Webhook server starting on port %s", s.httpServer.Addr)
	log.Printf("📡 Instagram endpoint: http://localhost%s/webhook/instagram", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Webhook) Shutdown(ctx context.Context) error {
	log.Println("🛑 Shutting down webhook server...")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Webhook) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Webhook) handleRoot(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "%s is online for %s 🤖", s.profile.BotName, s.profile.BusinessName)
}

func (s *Webhook) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","platform":"instagram","bot":%q,"sessions":%d}`,
		s.profile.BotName, s.store.Count())
}

// handleVerify answers Meta's subscription handshake by echoing the
// challenge when the verify token matches.
func (s *Webhook) handleVerify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == s.verifyToken {
		log.Println("✅ Webhook verified")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
		return
	}
	log.Printf("❌ Webhook verification failed (mode %q)", mode)
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// handleEvent acknowledges the delivery immediately and handles each
// message on its own goroutine. Meta retries anything that isn't a 200,
// so decode problems are logged and acknowledged anyway.
func (s *Webhook) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		log.Printf("❌ Webhook read error: %v", err)
		s.acknowledge(w)
		return
	}

	var ev messages.WebhookEvent
	if err := sonic.Unmarshal(body, &ev); err != nil {
		log.Printf("❌ Webhook decode error: %v", err)
		s.acknowledge(w)
		return
	}
	if ev.Object != "instagram" {
		log.Printf("⚠️ Received non-Instagram event: %q", ev.Object)
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	for _, turn := range ev.Flatten() {
		go s.handleTurn(turn)
	}
	s.acknowledge(w)
}

func (s *Webhook) acknowledge(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("EVENT_RECEIVED"))
}

// handleTurn runs one user message through the bot and delivers the reply.
// Meta already has its 200 by the time this runs.
func (s *Webhook) handleTurn(turn messages.Incoming) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	var name string
	if p, err := s.sender.UserInfo(ctx, turn.SenderID); err != nil {
		log.Printf("⚠️ Profile lookup failed for %s: %v", turn.SenderID, err)
	} else {
		name = p.Name
		if name == "" {
			name = p.Username
		}
	}

	out := s.orch.Respond(ctx, dialogue.Inbound{
		UserID:   turn.SenderID,
		UserName: name,
		Text:     turn.Text,
		Platform: "instagram",
	})
	if err := s.sender.SendText(ctx, turn.SenderID, out.Reply); err != nil {
		log.Printf("❌ Reply delivery failed for %s: %v", turn.SenderID, err)
	}
}
