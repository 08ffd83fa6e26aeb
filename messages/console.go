package messages

import "encoding/json"

// Frames for the dev console WebSocket. Clients send text and control
// frames; the server answers with reply, status, and error frames.

// Error codes
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodeSessionFailed  = "SESSION_FAILED"
)

// Message types
const (
	TypeText    = "text"
	TypeControl = "control"
	TypeReply   = "reply"
	TypeStatus  = "status"
	TypeError   = "error"
)

// ClientMessage represents a frame from the console client
type ClientMessage struct {
	Type    string          `json:"type"` // "text", "control"
	Payload json.RawMessage `json:"payload"`
}

// TextPayload contains one user message
type TextPayload struct {
	Text string `json:"text"`
}

// ControlPayload contains control commands
type ControlPayload struct {
	Action string `json:"action"` // "ping"
}

// ServerMessage represents a frame sent to the console client
type ServerMessage struct {
	Type      string      `json:"type"` // "reply", "status", "error"
	SessionID string      `json:"sessionId,omitempty"`
	Payload   interface{} `json:"payload"`
}

// ReplyPayload contains the bot's answer to one turn
type ReplyPayload struct {
	Text  string `json:"text"`
	State string `json:"state,omitempty"`
}

// StatusPayload contains status updates
type StatusPayload struct {
	Status  string `json:"status"` // "connected", "pong", "disconnected"
	Message string `json:"message,omitempty"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewReplyMessage creates a reply frame
func NewReplyMessage(sessionID, text, state string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeReply,
		SessionID: sessionID,
		Payload: ReplyPayload{
			Text:  text,
			State: state,
		},
	}
}

// NewStatusMessage creates a status frame
func NewStatusMessage(sessionID, status, message string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeStatus,
		SessionID: sessionID,
		Payload: StatusPayload{
			Status:  status,
			Message: message,
		},
	}
}

// NewErrorMessage creates an error frame
func NewErrorMessage(sessionID, code, message string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeError,
		SessionID: sessionID,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
	}
}
