package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// Frame types matching the console server
type ClientMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type TextPayload struct {
	Text string `json:"text"`
}

type ServerMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type ReplyPayload struct {
	Text  string `json:"text"`
	State string `json:"state,omitempty"`
}

// Fires a burst of messages at the console server to watch the rate
// limiter walk through warn and block.
func main() {
	serverURL := flag.String("server", "ws://localhost:8080/ws", "console server URL")
	count := flag.Int("n", 8, "messages to send")
	delay := flag.Duration("delay", 200*time.Millisecond, "pause between sends")
	flag.Parse()

	log.Printf("🔌 Connecting to %s...", *serverURL)
	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg ServerMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type != "reply" {
				log.Printf("📊 %s frame: %s", msg.Type, msg.Payload)
				continue
			}
			var payload ReplyPayload
			_ = json.Unmarshal(msg.Payload, &payload)
			log.Printf("🤖 [%s] %s", payload.State, payload.Text)
		}
	}()

	for i := 1; i <= *count; i++ {
		text := fmt.Sprintf("quick question %d!", i)
		if err := conn.WriteJSON(ClientMessage{Type: "text", Payload: TextPayload{Text: text}}); err != nil {
			log.Fatalf("Send error: %v", err)
		}
		log.Printf("📤 Sent %d/%d", i, *count)
		time.Sleep(*delay)
	}

	// Give trailing replies a moment to land
	log.Println("✅ Burst sent, waiting for replies...")
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
	log.Println("Done")
}
