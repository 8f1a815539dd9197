package main

import (
	"context"
	"sync"
	"time"

	"github.com/ichi0g0y/spy-party/internal/env"
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"github.com/ichi0g0y/spy-party/internal/transport"
	"github.com/ichi0g0y/spy-party/internal/twitchapi"
	"github.com/ichi0g0y/spy-party/internal/twitcheventsub"
	"github.com/ichi0g0y/spy-party/internal/twitchtoken"
	"go.uber.org/zap"
)

type twitchBackground struct {
	listener *twitcheventsub.Listener
	done     chan struct{}
	once     sync.Once
}

func (b *twitchBackground) stop() {
	if b == nil {
		return
	}
	b.once.Do(func() {
		close(b.done)
		b.listener.Stop()
	})
}

func configured(v *string) bool {
	return v != nil && *v != ""
}

// startTwitch wires "!spy" chat ingress and whisper replies when credentials and a token are present.
func startTwitch(ctx context.Context, mux *transport.Mux, dispatch func(transport.Event) bool) *twitchBackground {
	if !configured(env.Value.ClientID) || !configured(env.Value.ClientSecret) || !configured(env.Value.TwitchUserID) {
		logger.Info("Twitch is not configured, skipping chat adapter")
		return nil
	}

	token, isValid, err := twitchtoken.GetOrRefreshToken()
	if err != nil || !isValid || token.AccessToken == "" {
		logger.Info("No valid Twitch token, authorize via /auth to enable the chat adapter")
		return nil
	}

	botID := *env.Value.TwitchUserID
	client := twitchapi.NewClient(*env.Value.ClientID, func() (string, error) {
		t, _, err := twitchtoken.GetOrRefreshToken()
		return t.AccessToken, err
	})
	whispers := twitchapi.NewWhisperTransport(client, botID)
	go whispers.Run(ctx)

	listener := twitcheventsub.NewListener(twitcheventsub.Config{
		ClientID:      *env.Value.ClientID,
		BroadcasterID: botID,
		BotUserID:     botID,
	}, dispatch, func(userID int64) { mux.Bind(userID, whispers) })

	b := &twitchBackground{listener: listener, done: make(chan struct{})}

	logger.Info("Valid Twitch token found or refreshed, starting EventSub and token refresh goroutine")
	if err := listener.Start(); err != nil {
		logger.Error("Failed to start EventSub", zap.Error(err))
	}
	go refreshTokenPeriodically(b.done, listener)
	return b
}

func sleepOrDone(done <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return false
	case <-timer.C:
		return true
	}
}

func refreshTokenPeriodically(done <-chan struct{}, listener *twitcheventsub.Listener) {
	logger.Info("Starting token refresh goroutine")

	for {
		select {
		case <-done:
			logger.Info("Stopping token refresh goroutine")
			return
		default:
		}

		token, _, err := twitchtoken.GetLatestToken()
		if err != nil {
			if !sleepOrDone(done, 1*time.Minute) {
				return
			}
			continue
		}

		timeUntilExpiry := token.ExpiresAt - time.Now().Unix()
		if timeUntilExpiry <= 30*60 {
			logger.Info("Token expires in less than 30 minutes, refreshing now",
				zap.Int64("seconds_until_expiry", timeUntilExpiry))
			if err := token.RefreshTwitchToken(); err != nil {
				logger.Error("Failed to refresh token", zap.Error(err))
				if !sleepOrDone(done, 5*time.Minute) {
					return
				}
				continue
			}
			logger.Info("Token refreshed successfully")
			restartEventSub(listener)
			continue
		}

		sleepDuration := time.Duration(timeUntilExpiry-30*60) * time.Second
		if sleepDuration > time.Hour {
			sleepDuration = time.Hour
		}
		logger.Debug("Next token refresh check",
			zap.Duration("sleep_duration", sleepDuration),
			zap.Int64("seconds_until_expiry", timeUntilExpiry))
		if !sleepOrDone(done, sleepDuration) {
			return
		}
	}
}

// restartEventSub reconnects so the subscription uses the new token.
func restartEventSub(listener *twitcheventsub.Listener) {
	logger.Info("Restarting EventSub after token refresh")

	listener.Stop()
	time.Sleep(1 * time.Second)

	if err := listener.Start(); err != nil {
		logger.Error("Failed to restart EventSub", zap.Error(err))
		return
	}
	logger.Info("EventSub restarted successfully")
}
