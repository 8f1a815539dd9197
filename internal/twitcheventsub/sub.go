// Package twitcheventsub receives "!spy" chat lines over Twitch EventSub.
package twitcheventsub

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"github.com/ichi0g0y/spy-party/internal/transport"
	"github.com/ichi0g0y/spy-party/internal/twitchtoken"
	"github.com/joeyak/go-twitch-eventsub/v3"
	"go.uber.org/zap"
)

type Config struct {
	ClientID      string
	BroadcasterID string
	BotUserID     string
}

// Listener forwards chat commands to Dispatch. OnSender is called before each
// dispatch so replies can be routed back through Twitch.
type Listener struct {
	cfg      Config
	dispatch func(transport.Event) bool
	onSender func(userID int64)

	mu          sync.Mutex
	client      *twitch.Client
	isRunning   bool
	isConnected bool
	lastError   error
}

func NewListener(cfg Config, dispatch func(transport.Event) bool, onSender func(userID int64)) *Listener {
	return &Listener{cfg: cfg, dispatch: dispatch, onSender: onSender}
}

// Start connects to EventSub with the stored bot token.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.isRunning {
		return nil
	}

	token, valid, err := twitchtoken.GetOrRefreshToken()
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}
	if !valid {
		return fmt.Errorf("no valid access token available")
	}

	client := twitch.NewClient()
	client.OnError(func(err error) {
		logger.Error("EventSub error", zap.Error(err))
		l.setConnected(false, err)
	})
	client.OnWelcome(func(message twitch.WelcomeMessage) {
		logger.Info("EventSub connected successfully")
		l.setConnected(true, nil)
		l.subscribe(message.Payload.Session.ID, token.AccessToken)
	})
	client.OnNotification(func(message twitch.NotificationMessage) {
		if message.Payload.Subscription.Type != twitch.SubChannelChatMessage {
			return
		}
		var evt twitch.EventChannelChatMessage
		if err := json.Unmarshal(*message.Payload.Event, &evt); err != nil {
			logger.Error("Failed to parse channel chat message event", zap.Error(err))
			return
		}
		l.handleChat(evt.Chatter.ChatterUserId, evt.Chatter.ChatterUserName, evt.Message.Text)
	})

	l.client = client
	l.isRunning = true
	go func() {
		logger.Info("Connecting to EventSub...")
		if err := client.Connect(); err != nil {
			logger.Error("Failed to connect EventSub", zap.Error(err))
			l.setConnected(false, err)
		}
	}()
	return nil
}

func (l *Listener) subscribe(sessionID, accessToken string) {
	_, err := twitch.SubscribeEvent(twitch.SubscribeRequest{
		SessionID:   sessionID,
		ClientID:    l.cfg.ClientID,
		AccessToken: accessToken,
		Event:       twitch.SubChannelChatMessage,
		Condition: map[string]string{
			"broadcaster_user_id": l.cfg.BroadcasterID,
			"user_id":             l.cfg.BotUserID,
		},
	})
	if err != nil {
		logger.Error("Failed to subscribe to event",
			zap.String("event", string(twitch.SubChannelChatMessage)),
			zap.Error(err))
		return
	}
	logger.Info("Successfully subscribed to event", zap.String("event", string(twitch.SubChannelChatMessage)))
}

func (l *Listener) handleChat(chatterID, chatterName, text string) {
	// ボット自身の発言は無視
	if chatterID == l.cfg.BotUserID {
		return
	}
	ev, ok := ParseChat(chatterID, chatterName, text)
	if !ok {
		return
	}
	if l.onSender != nil {
		l.onSender(ev.Sender())
	}
	if !l.dispatch(ev) {
		logger.Warn("Dropped Twitch chat event, engine stopped", zap.String("user", chatterName))
	}
}

func (l *Listener) setConnected(connected bool, err error) {
	l.mu.Lock()
	l.isConnected = connected
	l.lastError = err
	l.mu.Unlock()
}

// Stop closes the EventSub connection.
func (l *Listener) Stop() {
	l.mu.Lock()
	client := l.client
	running := l.isRunning
	l.client = nil
	l.isRunning = false
	l.isConnected = false
	l.mu.Unlock()

	// Close はエラーコールバックを呼ぶことがあるのでロック外で
	if client != nil && running {
		client.Close()
	}
}

func (l *Listener) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isConnected
}

func (l *Listener) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastError
}
