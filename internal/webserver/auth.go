package webserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken      = errors.New("missing token")
	ErrInvalidSigningAlg = errors.New("unexpected signing method")
	ErrExpiredToken      = errors.New("token expired")
	ErrInvalidToken      = errors.New("invalid token")
)

// Identity is the player a websocket connection speaks for.
type Identity struct {
	UserID int64
	Name   string
}

type identityClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 tokens. The subject carries the user id.
type TokenManager struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, maxAge time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), maxAge: maxAge, now: time.Now}
}

func (m *TokenManager) Generate(id Identity) (string, error) {
	now := m.now()
	claims := identityClaims{
		Name: id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) Verify(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &identityClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningAlg
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSigningAlg):
			return Identity{}, err
		case errors.Is(err, jwt.ErrTokenExpired):
			return Identity{}, ErrExpiredToken
		default:
			return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
	}

	claims, ok := token.Claims.(*identityClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: userID, Name: claims.Name}, nil
}

// tokenFromRequest reads "Authorization: Bearer <jwt>" or the token query parameter.
func tokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok && token != "" {
			return strings.TrimSpace(token), nil
		}
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}
