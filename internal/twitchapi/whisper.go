package twitchapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"github.com/ichi0g0y/spy-party/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	whisperQueueSize = 512
	whisperTimeout   = 10 * time.Second
)

var ErrWhisperQueueFull = errors.New("whisper queue is full")

type whisper struct {
	to   int64
	text string
}

type whisperSender interface {
	SendWhisper(ctx context.Context, fromUserID, toUserID, message string) error
}

// WhisperTransport delivers game notifications to Twitch users as whispers.
// Deliveries are queued and drained by Run at the Helix whisper rate.
type WhisperTransport struct {
	sender  whisperSender
	from    string
	queue   chan whisper
	limiter *rate.Limiter
}

func NewWhisperTransport(client *Client, fromUserID string) *WhisperTransport {
	return newWhisperTransport(client, fromUserID, rate.NewLimiter(rate.Every(time.Second/3), 3))
}

func newWhisperTransport(sender whisperSender, fromUserID string, limiter *rate.Limiter) *WhisperTransport {
	return &WhisperTransport{
		sender:  sender,
		from:    fromUserID,
		queue:   make(chan whisper, whisperQueueSize),
		limiter: limiter,
	}
}

func (w *WhisperTransport) Deliver(userID int64, text string) error {
	select {
	case w.queue <- whisper{to: userID, text: text}:
		return nil
	default:
		return ErrWhisperQueueFull
	}
}

// DeliverButtons appends one "!spy press" line per button; whispers have no inline keyboards.
func (w *WhisperTransport) DeliverButtons(userID int64, text string, buttons [][]transport.Button) error {
	return w.Deliver(userID, RenderButtons(text, buttons))
}

// Run drains the queue until ctx is cancelled.
func (w *WhisperTransport) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-w.queue:
			for _, part := range splitWhisper(m.text) {
				if err := w.limiter.Wait(ctx); err != nil {
					return
				}
				sendCtx, cancel := context.WithTimeout(ctx, whisperTimeout)
				err := w.sender.SendWhisper(sendCtx, w.from, strconv.FormatInt(m.to, 10), part)
				cancel()
				if err != nil {
					logger.Warn("Failed to send whisper", zap.Int64("user_id", m.to), zap.Error(err))
					break
				}
			}
		}
	}
}

func RenderButtons(text string, buttons [][]transport.Button) string {
	var b strings.Builder
	b.WriteString(text)
	for _, row := range buttons {
		for _, btn := range row {
			fmt.Fprintf(&b, "\n%s: !spy press %s", btn.Label, btn.Callback)
		}
	}
	return b.String()
}

// splitWhisper cuts text on line boundaries into whisper sized parts.
func splitWhisper(text string) []string {
	var (
		parts []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			parts = append(parts, string(cur))
			cur = cur[:0]
		}
	}
	for _, line := range strings.Split(text, "\n") {
		r := []rune(line)
		for len(r) > maxWhisperRunes {
			flush()
			parts = append(parts, string(r[:maxWhisperRunes]))
			r = r[maxWhisperRunes:]
		}
		if len(cur) > 0 && len(cur)+1+len(r) > maxWhisperRunes {
			flush()
		}
		if len(cur) > 0 {
			cur = append(cur, '\n')
		}
		cur = append(cur, r...)
	}
	flush()
	return parts
}
