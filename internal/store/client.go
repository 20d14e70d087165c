package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sghaffari/chatrelay/internal/domain"
)

// Client talks to the Supabase-style REST store holding messages and
// profiles. All calls are bounded by the configured timeout.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type messageRow struct {
	RoomID   string `json:"room_id"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
}

// CreateMessage writes one message row and returns the stored representation.
// A non-2xx status, an empty representation, or a transport error all count
// as a persistence write failure.
func (c *Client) CreateMessage(ctx context.Context, roomID, senderID, content string) (domain.Message, error) {
	// The store's bulk insert endpoint takes an array even for one row.
	body, err := json.Marshal([]messageRow{{RoomID: roomID, SenderID: senderID, Content: content}})
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to serialize message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/v1/messages", bytes.NewReader(body))
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to build store request: %w", err)
	}
	c.setAuthHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Message{}, fmt.Errorf("message write failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Message{}, fmt.Errorf("store rejected message write: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var rows []domain.Message
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return domain.Message{}, fmt.Errorf("failed to decode created message: %w", err)
	}
	if len(rows) == 0 {
		return domain.Message{}, fmt.Errorf("store returned no representation for created message")
	}

	return rows[0], nil
}

// FetchProfile looks up the display identity for a sender. A missing profile
// is not an error: it returns (nil, nil).
func (c *Client) FetchProfile(ctx context.Context, senderID string) (*domain.Profile, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/profiles?id=eq.%s&select=nickname", c.baseURL, url.QueryEscape(senderID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build profile request: %w", err)
	}
	c.setAuthHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("store rejected profile lookup: status %d", resp.StatusCode)
	}

	var rows []domain.Profile
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	return &rows[0], nil
}

func (c *Client) setAuthHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}
