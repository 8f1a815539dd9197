// Package callback encodes and parses the tokens carried by inline buttons.
//
//	vote:<room>:<target_user_id>
//	spy_guess:<room>:<location with spaces as --->
//	early_vote_for:<room>
//	early_vote_against:<room>
//	buy:<item_code>
package callback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformed     = errors.New("malformed callback")
	ErrUnknownPrefix = errors.New("unknown callback prefix")
)

type Kind int

const (
	KindVote Kind = iota + 1
	KindSpyGuess
	KindEarlyVoteFor
	KindEarlyVoteAgainst
	KindBuy
)

const (
	prefixVote             = "vote"
	prefixSpyGuess         = "spy_guess"
	prefixEarlyVoteFor     = "early_vote_for"
	prefixEarlyVoteAgainst = "early_vote_against"
	prefixBuy              = "buy"

	spaceMarker = "---"
)

type Token struct {
	Kind     Kind
	Room     string
	Target   int64
	Location string
	Item     string
}

func Vote(room string, target int64) string {
	return fmt.Sprintf("%s:%s:%d", prefixVote, room, target)
}

func SpyGuess(room, location string) string {
	return prefixSpyGuess + ":" + room + ":" + EncodeLocation(location)
}

func EarlyVoteFor(room string) string {
	return prefixEarlyVoteFor + ":" + room
}

func EarlyVoteAgainst(room string) string {
	return prefixEarlyVoteAgainst + ":" + room
}

func Buy(item string) string {
	return prefixBuy + ":" + item
}

func EncodeLocation(location string) string {
	return strings.ReplaceAll(location, " ", spaceMarker)
}

func DecodeLocation(encoded string) string {
	return strings.ReplaceAll(encoded, spaceMarker, " ")
}

// Parse decodes a callback token.
func Parse(raw string) (Token, error) {
	prefix, rest, ok := strings.Cut(raw, ":")
	if !ok || rest == "" {
		if isKnownPrefix(prefix) {
			return Token{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
		}
		return Token{}, fmt.Errorf("%w: %q", ErrUnknownPrefix, raw)
	}

	switch prefix {
	case prefixVote:
		room, target, ok := strings.Cut(rest, ":")
		if !ok || room == "" || strings.Contains(target, ":") {
			return Token{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
		}
		id, err := strconv.ParseInt(target, 10, 64)
		if err != nil {
			return Token{}, fmt.Errorf("%w: bad target in %q", ErrMalformed, raw)
		}
		return Token{Kind: KindVote, Room: room, Target: id}, nil

	case prefixSpyGuess:
		room, loc, ok := strings.Cut(rest, ":")
		if !ok || room == "" || loc == "" {
			return Token{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
		}
		return Token{Kind: KindSpyGuess, Room: room, Location: DecodeLocation(loc)}, nil

	case prefixEarlyVoteFor, prefixEarlyVoteAgainst:
		if strings.Contains(rest, ":") {
			return Token{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
		}
		kind := KindEarlyVoteFor
		if prefix == prefixEarlyVoteAgainst {
			kind = KindEarlyVoteAgainst
		}
		return Token{Kind: kind, Room: rest}, nil

	case prefixBuy:
		if strings.Contains(rest, ":") {
			return Token{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
		}
		return Token{Kind: KindBuy, Item: rest}, nil
	}

	return Token{}, fmt.Errorf("%w: %q", ErrUnknownPrefix, raw)
}

func isKnownPrefix(p string) bool {
	switch p {
	case prefixVote, prefixSpyGuess, prefixEarlyVoteFor, prefixEarlyVoteAgainst, prefixBuy:
		return true
	}
	return false
}
