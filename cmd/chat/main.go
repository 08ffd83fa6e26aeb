package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

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

type StatusPayload struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func main() {
	serverURL := flag.String("server", "ws://localhost:8080/ws", "console server URL")
	flag.Parse()

	log.Printf("🔌 Connecting to %s...", *serverURL)
	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	// First frame is the connected status
	var hello ServerMessage
	if err := conn.ReadJSON(&hello); err != nil {
		log.Fatalf("Read error: %v", err)
	}
	var status StatusPayload
	_ = json.Unmarshal(hello.Payload, &status)
	log.Printf("✅ Connected (session %s): %s", hello.SessionID, status.Message)
	fmt.Println("Type a message, or exit to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("you> ")
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "exit" || text == "quit" {
			break
		}
		if text == "" {
			fmt.Print("you> ")
			continue
		}

		err := conn.WriteJSON(ClientMessage{Type: "text", Payload: TextPayload{Text: text}})
		if err != nil {
			log.Fatalf("Send error: %v", err)
		}

		// Print frames until the reply for this turn lands
		for {
			var msg ServerMessage
			if err := conn.ReadJSON(&msg); err != nil {
				log.Fatalf("Read error: %v", err)
			}

			if msg.Type == "reply" {
				var payload ReplyPayload
				_ = json.Unmarshal(msg.Payload, &payload)
				fmt.Printf("🤖 %s\n", payload.Text)
				if payload.State != "" {
					log.Printf("   (state: %s)", payload.State)
				}
				break
			}
			if msg.Type == "error" {
				var payload ErrorPayload
				_ = json.Unmarshal(msg.Payload, &payload)
				log.Printf("❌ %s: %s", payload.Code, payload.Message)
				break
			}
			log.Printf("📊 %s frame: %s", msg.Type, msg.Payload)
		}
		fmt.Print("you> ")
	}

	log.Println("👋 Bye")
}
