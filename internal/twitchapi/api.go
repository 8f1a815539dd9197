// Package twitchapi talks to the Twitch Helix API on behalf of the bot account.
package twitchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

// Twitch limits whispers to 500 characters when the recipient is new to the bot.
const maxWhisperRunes = 500

var (
	ErrEmptyWhisper = errors.New("empty whisper")

	helixBaseURL = "https://api.twitch.tv/helix"
)

// TokenSource returns a valid user access token for the bot account.
type TokenSource func() (string, error)

type Client struct {
	clientID string
	token    TokenSource
	http     *http.Client
}

func NewClient(clientID string, token TokenSource) *Client {
	return &Client{
		clientID: clientID,
		token:    token,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

type apiError struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	accessToken, err := c.token()
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	reqURL := helixBaseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Client-Id", c.clientID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// SendWhisper sends a whisper from the bot to a Twitch user. Long text is cut to the whisper limit.
func (c *Client) SendWhisper(ctx context.Context, fromUserID, toUserID, message string) error {
	if message == "" {
		return ErrEmptyWhisper
	}
	if r := []rune(message); len(r) > maxWhisperRunes {
		message = string(r[:maxWhisperRunes])
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/whispers",
		url.Values{"from_user_id": {fromUserID}, "to_user_id": {toUserID}},
		map[string]string{"message": message})
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send whisper: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)
		logger.Error("Twitch API returned error",
			zap.Int("status", resp.StatusCode),
			zap.String("to_user_id", toUserID),
			zap.String("body", string(body)))
		return fmt.Errorf("whisper failed with status %d: %s", resp.StatusCode, apiErr.Message)
	}
	return nil
}
