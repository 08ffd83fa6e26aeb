package gemini

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

const (
	defaultModel   = "models/gemini-2.5-flash"
	defaultTimeout = 15 * time.Second
)

// Turn is one prior exchange replayed to the model.
type Turn struct {
	User string
	Bot  string
}

// Client wraps the GenAI SDK for turn-based text completions.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewClient creates a GenAI client for the given model. An empty model or
// non-positive timeout falls back to the defaults.
func NewClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	log.Printf("✅ GenAI client ready (%s)", model)
	return &Client{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

// Complete sends the system instruction, the replayed history and the new
// user message, and returns the model's text. Every call is bounded by the
// client timeout on top of whatever deadline ctx already carries.
func (c *Client) Complete(ctx context.Context, system string, history []Turn, user string) (string, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return "", fmt.Errorf("client is closed")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(history)*2+1)
	for _, t := range history {
		contents = append(contents,
			&genai.Content{Role: "user", Parts: []*genai.Part{{Text: t.User}}},
			&genai.Content{Role: "model", Parts: []*genai.Part{{Text: t.Bot}}},
		)
	}
	contents = append(contents, &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: user}},
	})

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
	}

	log.Printf("📤 Sent %d chars to Gemini (%d history turns)", len(user), len(history))

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := collectText(resp)
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}

	log.Printf("📥 Received %d chars from Gemini", len(text))
	return text, nil
}

// collectText concatenates the text parts of the first candidate.
func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// Close marks the client unusable for further completions.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
