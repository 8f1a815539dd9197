// Package twitchtoken keeps the bot account's OAuth token for the Twitch adapter.
package twitchtoken

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ichi0g0y/spy-party/internal/env"
	"github.com/ichi0g0y/spy-party/internal/localdb"
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

var scopes = []string{
	"user:read:chat",
	"user:write:chat",
	"user:bot",
	"user:manage:whispers",
}

var (
	ErrNoToken = errors.New("no twitch token stored")

	// 差し替え可能にしてテストで httptest を向ける
	tokenURL = "https://id.twitch.tv/oauth2/token"
	authURL  = "https://id.twitch.tv/oauth2/authorize"

	httpClient = &http.Client{Timeout: 10 * time.Second}
	now        = time.Now
)

// expiryMargin 以内に切れるトークンは無効とみなす
const expiryMargin = 5 * time.Minute

type Token struct {
	AccessToken  string
	RefreshToken string
	Scope        string
	ExpiresAt    int64
}

func (t Token) valid() bool {
	return t.AccessToken != "" && now().Add(expiryMargin).Unix() < t.ExpiresAt
}

func (t Token) SaveToken() error {
	return localdb.SaveToken(localdb.Token(t))
}

// GetLatestToken returns the stored token and whether it is still usable.
func GetLatestToken() (Token, bool, error) {
	stored, err := localdb.GetLatestToken()
	if errors.Is(err, sql.ErrNoRows) {
		return Token{}, false, ErrNoToken
	}
	if err != nil {
		return Token{}, false, err
	}
	t := Token(stored)
	return t, t.valid(), nil
}

// GetOrRefreshToken は有効なトークンを返す。期限切れならリフレッシュを試みる。
func GetOrRefreshToken() (Token, bool, error) {
	token, isValid, err := GetLatestToken()
	if err != nil {
		return Token{}, false, err
	}
	if isValid {
		return token, true, nil
	}
	if token.RefreshToken == "" {
		return token, false, nil
	}
	if err := token.RefreshTwitchToken(); err != nil {
		return token, false, err
	}
	return GetLatestToken()
}

type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    int64           `json:"expires_in"`
	Scope        json.RawMessage `json:"scope"`
	Error        string          `json:"error"`
	Message      string          `json:"message"`
}

// scopeString accepts both the list and the space separated forms.
func (r tokenResponse) scopeString() string {
	var list []string
	if err := json.Unmarshal(r.Scope, &list); err == nil {
		return strings.Join(list, " ")
	}
	var s string
	if err := json.Unmarshal(r.Scope, &s); err == nil {
		return s
	}
	return strings.Join(scopes, " ")
}

func postToken(form url.Values) (Token, error) {
	resp, err := httpClient.PostForm(tokenURL, form)
	if err != nil {
		return Token{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, fmt.Errorf("failed to read response body: %w", err)
	}
	var result tokenResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return Token{}, fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}
	if resp.StatusCode != http.StatusOK || result.Error != "" {
		return Token{}, fmt.Errorf("twitch token endpoint returned status %d: %s %s", resp.StatusCode, result.Error, result.Message)
	}
	if result.AccessToken == "" {
		return Token{}, errors.New("access_token not found in response")
	}
	return Token{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		Scope:        result.scopeString(),
		ExpiresAt:    now().Unix() + result.ExpiresIn,
	}, nil
}

func credentials() (string, string) {
	clientID, clientSecret := "", ""
	if env.Value.ClientID != nil {
		clientID = *env.Value.ClientID
	}
	if env.Value.ClientSecret != nil {
		clientSecret = *env.Value.ClientSecret
	}
	return clientID, clientSecret
}

// ExchangeCode trades an authorization code for a token and stores it.
func ExchangeCode(code string) (Token, error) {
	clientID, clientSecret := credentials()
	t, err := postToken(url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {getCallbackURL()},
	})
	if err != nil {
		return Token{}, err
	}
	if err := t.SaveToken(); err != nil {
		return Token{}, err
	}
	logger.Info("Twitch token stored", zap.String("scope", t.Scope))
	return t, nil
}

func (t *Token) RefreshTwitchToken() error {
	clientID, clientSecret := credentials()
	fresh, err := postToken(url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"refresh_token": {t.RefreshToken},
		"grant_type":    {"refresh_token"},
	})
	if err != nil {
		logger.Warn("Failed to refresh Twitch token", zap.Error(err))
		return err
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = t.RefreshToken
	}
	*t = fresh
	logger.Info("Twitch token refreshed", zap.Time("expires_at", time.Unix(t.ExpiresAt, 0)))
	return t.SaveToken()
}

// getCallbackURL はコールバックURLを生成します
func getCallbackURL() string {
	port := 8080
	if env.Value.ServerPort != 0 {
		port = env.Value.ServerPort
	}
	return fmt.Sprintf("http://localhost:%d/callback", port)
}

func GetAuthURL() string {
	clientID, _ := credentials()
	return fmt.Sprintf(
		"%s?response_type=code&client_id=%s&redirect_uri=%s&scope=%s",
		authURL,
		url.QueryEscape(clientID),
		url.QueryEscape(getCallbackURL()),
		url.QueryEscape(strings.Join(scopes, " ")),
	)
}
