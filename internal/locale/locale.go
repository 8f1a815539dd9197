// Package locale picks the language of user-facing notices.
package locale

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
)

// Locale is the language of a notice. Russian is the default.
type Locale string

const (
	RU Locale = "ru"
	EN Locale = "en"
)

var (
	mentionRegex    = regexp.MustCompile(`@[\p{L}\p{N}_]+`)
	commandRegex    = regexp.MustCompile(`^[/!][\p{L}\p{N}_@]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	urlOnlyRegex    = regexp.MustCompile(`^https?://\S+$`)
)

var englishShortWords = map[string]struct{}{
	"hello":  {},
	"hi":     {},
	"hey":    {},
	"thanks": {},
	"ok":     {},
	"okay":   {},
	"yes":    {},
	"no":     {},
	"help":   {},
	"play":   {},
	"game":   {},
	"join":   {},
	"start":  {},
	"what":   {},
	"how":    {},
	"please": {},
	"pls":    {},
	"sorry":  {},
}

// Normalize strips mentions, a leading command word and URLs before detection.
func Normalize(text string) string {
	normalized := strings.TrimSpace(text)
	if normalized == "" {
		return ""
	}
	normalized = commandRegex.ReplaceAllString(normalized, "")
	normalized = mentionRegex.ReplaceAllString(normalized, "")
	normalized = whitespaceRegex.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(normalized)
	if urlOnlyRegex.MatchString(normalized) {
		return ""
	}
	return normalized
}

// Detect guesses the locale of free text. ok is false when the text says
// nothing useful, so callers can keep a previous guess.
func Detect(text string) (l Locale, ok bool) {
	normalized := Normalize(text)
	if normalized == "" {
		return RU, false
	}
	if hasCyrillic(normalized) {
		return RU, true
	}

	info := whatlanggo.Detect(normalized)
	if info.Lang == whatlanggo.Eng && (info.IsReliable() || info.Confidence >= 0.3) {
		return EN, true
	}
	if isCommonEnglishShortText(normalized) {
		return EN, true
	}
	if info.Lang == whatlanggo.Rus || info.Lang == whatlanggo.Ukr {
		return RU, true
	}
	return RU, false
}

// FromCode maps a client language code ("en", "en-US", "eng", "ru_RU") to a locale.
func FromCode(code string) Locale {
	code = strings.TrimSpace(strings.ToLower(code))
	code = strings.Split(code, "-")[0]
	code = strings.Split(code, "_")[0]
	switch code {
	case "en", "eng":
		return EN
	}
	return RU
}

func hasCyrillic(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}

func isCommonEnglishShortText(text string) bool {
	words := extractASCIIWords(strings.ToLower(text))
	if len(words) == 0 {
		return false
	}
	for _, word := range words {
		if _, ok := englishShortWords[word]; !ok {
			return false
		}
	}
	return true
}

func extractASCIIWords(text string) []string {
	var words []string
	var builder strings.Builder

	flush := func() {
		if builder.Len() > 0 {
			words = append(words, builder.String())
			builder.Reset()
		}
	}

	for _, r := range text {
		if r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsNumber(r)) {
			builder.WriteRune(r)
			continue
		}
		flush()
	}
	flush()

	return words
}
