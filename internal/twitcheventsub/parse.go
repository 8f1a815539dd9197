package twitcheventsub

import (
	"strconv"
	"strings"

	"github.com/ichi0g0y/spy-party/internal/transport"
)

const commandPrefix = "!spy"

// ParseChat turns a channel chat line into a game event.
// Only lines starting with "!spy" are addressed to the game:
//
//	!spy               -> menu
//	!spy press <cb>    -> button press
//	!spy say <text>    -> room chat
//	!spy <verb> [args] -> command
func ParseChat(chatterID, chatterName, text string) (transport.Event, bool) {
	userID, err := strconv.ParseInt(chatterID, 10, 64)
	if err != nil || userID <= 0 {
		return nil, false
	}

	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.EqualFold(fields[0], commandPrefix) {
		return nil, false
	}
	if len(fields) == 1 {
		return transport.Command{UserID: userID, Name: chatterName, Verb: "menu"}, true
	}

	verb := strings.ToLower(fields[1])
	args := fields[2:]
	switch verb {
	case "press":
		if len(args) == 0 {
			return nil, false
		}
		return transport.ButtonPress{UserID: userID, Name: chatterName, Callback: args[0]}, true
	case "say":
		// 本文は空白を保ったまま渡す
		body := strings.TrimSpace(text)
		body = strings.TrimSpace(body[len(fields[0]):])
		body = strings.TrimSpace(body[len(fields[1]):])
		if body == "" {
			return nil, false
		}
		return transport.TextMessage{UserID: userID, Name: chatterName, Text: body}, true
	default:
		return transport.Command{UserID: userID, Name: chatterName, Verb: strings.TrimPrefix(verb, "/"), Args: args}, true
	}
}
