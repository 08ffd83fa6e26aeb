package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/room4-2/frontdesk/config"
	"github.com/room4-2/frontdesk/dialogue"
	"github.com/room4-2/frontdesk/messages"
	"github.com/room4-2/frontdesk/session"
)

type frame struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Payload   json.RawMessage `json:"payload"`
}

func newTestConsole(t *testing.T, origins []string) *Console {
	t.Helper()
	cfg := testConfig()
	cfg.ServerType = "console"
	cfg.AllowedOrigins = origins
	profile := config.DefaultProfile()

	store, err := session.NewStore(cfg, profile.HistoryWindow)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Shutdown)

	orch := dialogue.NewOrchestrator(profile, store, scriptedCompleter{}, nil, nil, nil)
	return NewConsole(cfg, profile, orch, store)
}

func dialConsole(t *testing.T, c *Console, header http.Header) (*websocket.Conn, *httptest.Server, error) {
	t.Helper()
	srv := httptest.NewServer(c.Handler())
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	return conn, srv, err
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func TestConsole_TextTurnGetsReply(t *testing.T) {
	c := newTestConsole(t, []string{"*"})
	conn, _, err := dialConsole(t, c, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := readFrame(t, conn)
	if hello.Type != messages.TypeStatus {
		t.Fatalf("first frame type = %q, want status", hello.Type)
	}
	if hello.SessionID == "" {
		t.Error("status frame carries no session id")
	}

	err = conn.WriteJSON(messages.ClientMessage{
		Type:    messages.TypeText,
		Payload: json.RawMessage(`{"text":"hi, what classes do you offer?"}`),
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	reply := readFrame(t, conn)
	if reply.Type != messages.TypeReply {
		t.Fatalf("frame type = %q, want reply", reply.Type)
	}
	var p messages.ReplyPayload
	if err := json.Unmarshal(reply.Payload, &p); err != nil {
		t.Fatalf("decode reply payload: %v", err)
	}
	if p.Text == "" {
		t.Error("reply text is empty")
	}
	if p.State == "" {
		t.Error("reply carries no state")
	}
}

func TestConsole_PingGetsPong(t *testing.T) {
	c := newTestConsole(t, []string{"*"})
	conn, _, err := dialConsole(t, c, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readFrame(t, conn) // connected status

	err = conn.WriteJSON(messages.ClientMessage{
		Type:    messages.TypeControl,
		Payload: json.RawMessage(`{"action":"ping"}`),
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	f := readFrame(t, conn)
	if f.Type != messages.TypeStatus {
		t.Fatalf("frame type = %q, want status", f.Type)
	}
	var p messages.StatusPayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		t.Fatalf("decode status payload: %v", err)
	}
	if p.Status != "pong" {
		t.Errorf("status = %q, want pong", p.Status)
	}
}

func TestConsole_UnknownTypeGetsErrorFrame(t *testing.T) {
	c := newTestConsole(t, []string{"*"})
	conn, _, err := dialConsole(t, c, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readFrame(t, conn) // connected status

	err = conn.WriteJSON(messages.ClientMessage{
		Type:    "image",
		Payload: json.RawMessage(`{"data":"zzzz"}`),
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	f := readFrame(t, conn)
	if f.Type != messages.TypeError {
		t.Fatalf("frame type = %q, want error", f.Type)
	}
	var p messages.ErrorPayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if p.Code != messages.ErrCodeInvalidMessage {
		t.Errorf("code = %q, want %q", p.Code, messages.ErrCodeInvalidMessage)
	}
}

func TestConsole_RejectsDisallowedOrigin(t *testing.T) {
	c := newTestConsole(t, []string{"http://localhost:3000"})

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	conn, _, err := dialConsole(t, c, header)
	if err == nil {
		conn.Close()
		t.Fatal("dial should fail for a disallowed origin")
	}
}

func TestConsole_HealthCountsSessions(t *testing.T) {
	c := newTestConsole(t, []string{"*"})
	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
}
