// Package platform delivers replies back to the messaging platform. The
// only production implementation talks to the Instagram Graph API; servers
// depend on the Sender interface so tests can capture outbound text.
package platform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const (
	defaultBaseURL = "https://graph.facebook.com/v21.0"
	sendTimeout    = 10 * time.Second
)

// Sender pushes text back to a platform user.
type Sender interface {
	SendText(ctx context.Context, recipientID, text string) error
	UserInfo(ctx context.Context, userID string) (Profile, error)
}

// Profile is the slice of the platform user profile the bot cares about.
type Profile struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// GraphSender sends messages through the Instagram Graph API using a page
// access token.
type GraphSender struct {
	client  *http.Client
	baseURL string
	pageID  string
	token   string
}

// GraphOpts holds parameters for creating a GraphSender.
type GraphOpts struct {
	PageID      string
	AccessToken string
	// For testing: inject a client and endpoint.
	Client  *http.Client
	BaseURL string
}

// NewGraph creates a GraphSender for one Instagram page.
func NewGraph(opts GraphOpts) (*GraphSender, error) {
	if opts.PageID == "" || opts.AccessToken == "" {
		return nil, fmt.Errorf("platform: page id and access token are required")
	}
	s := &GraphSender{
		client:  opts.Client,
		baseURL: opts.BaseURL,
		pageID:  opts.PageID,
		token:   opts.AccessToken,
	}
	if s.baseURL == "" {
		s.baseURL = defaultBaseURL
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: sendTimeout}
	}
	return s, nil
}

type textPayload struct {
	Recipient   recipient `json:"recipient"`
	Message     textBody  `json:"message"`
	AccessToken string    `json:"access_token"`
}

type recipient struct {
	ID string `json:"id"`
}

type textBody struct {
	Text string `json:"text"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
}

// SendText delivers one text message to an Instagram-scoped user id.
func (s *GraphSender) SendText(ctx context.Context, recipientID, text string) error {
	payload, err := sonic.Marshal(textPayload{
		Recipient:   recipient{ID: recipientID},
		Message:     textBody{Text: text},
		AccessToken: s.token,
	})
	if err != nil {
		return fmt.Errorf("platform: encode message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", s.baseURL, url.PathEscape(s.pageID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("platform: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("platform: send message: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("platform: send failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var sr sendResponse
	if err := sonic.Unmarshal(body, &sr); err == nil && sr.MessageID != "" {
		log.Printf("✅ Reply sent to %s (message %s)", recipientID, sr.MessageID)
	} else {
		log.Printf("✅ Reply sent to %s", recipientID)
	}
	return nil
}

// UserInfo looks up the display name and username behind an Instagram-scoped
// id. Callers should tolerate an error here; a greeting works without a name.
func (s *GraphSender) UserInfo(ctx context.Context, userID string) (Profile, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=name,username,profile_pic&access_token=%s",
		s.baseURL, url.PathEscape(userID), url.QueryEscape(s.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("platform: build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("platform: fetch profile: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Profile{}, fmt.Errorf("platform: profile lookup failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var p Profile
	if err := sonic.Unmarshal(body, &p); err != nil {
		return Profile{}, fmt.Errorf("platform: decode profile: %w", err)
	}
	return p, nil
}
