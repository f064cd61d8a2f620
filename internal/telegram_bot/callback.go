package telegram_bot

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// maxCallbackData is Telegram's limit on inline button payloads, in bytes.
const maxCallbackData = 64

// Callback actions.
const (
	actionQuality = "quality"
	actionAll     = "all"
	actionPage    = "page"
)

// Page moves carried in page callbacks.
const (
	moveNext    = "next"
	movePrev    = "prev"
	moveCurrent = "current"
)

var errBadCallback = errors.New("malformed callback data")

// callbackData is the decoded payload of a result button:
// "quality:<label>:<query>", "all:<query>" or "page:<move>:<query>".
type callbackData struct {
	Action string
	Arg    string // quality label or page move; empty for all
	Query  string
}

// Encode renders the payload, truncating the query so it fits in 64 bytes.
func (c callbackData) Encode() string {
	prefix := c.Action + ":"
	if c.Action != actionAll {
		prefix += c.Arg + ":"
	}
	return prefix + truncateBytes(c.Query, maxCallbackData-len(prefix))
}

// possiblyTruncated reports whether Encode may have cut the query short.
// Truncation stops less than one rune below the limit.
func (c callbackData) possiblyTruncated() bool {
	return len(c.Encode()) > maxCallbackData-utf8.UTFMax
}

func parseCallbackData(data string) (callbackData, error) {
	action, rest, ok := strings.Cut(data, ":")
	if !ok {
		return callbackData{}, errBadCallback
	}
	switch action {
	case actionAll:
		if rest == "" {
			return callbackData{}, errBadCallback
		}
		return callbackData{Action: action, Query: rest}, nil
	case actionQuality, actionPage:
		arg, query, ok := strings.Cut(rest, ":")
		if !ok || arg == "" || query == "" {
			return callbackData{}, errBadCallback
		}
		if action == actionPage && arg != moveNext && arg != movePrev && arg != moveCurrent {
			return callbackData{}, errBadCallback
		}
		return callbackData{Action: action, Arg: arg, Query: query}, nil
	default:
		return callbackData{}, errBadCallback
	}
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
