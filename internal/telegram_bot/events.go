package telegram_bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"autofilter/internal/models"
)

// EventKind is the closed set of update kinds the router handles.
type EventKind int

const (
	EventIgnored EventKind = iota
	EventCommand
	EventText
	EventCallback
	EventNewMedia
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventText:
		return "text"
	case EventCallback:
		return "callback"
	case EventNewMedia:
		return "new_media"
	default:
		return "ignored"
	}
}

// Classify maps an update to its EventKind. Commands are never EventText.
func Classify(u tgbotapi.Update) EventKind {
	switch {
	case u.CallbackQuery != nil:
		if u.CallbackQuery.Message == nil {
			return EventIgnored
		}
		return EventCallback
	case u.ChannelPost != nil:
		if _, ok := extractMedia(u.ChannelPost); ok {
			return EventNewMedia
		}
		return EventIgnored
	case u.Message != nil:
		if u.Message.IsCommand() {
			return EventCommand
		}
		if u.Message.Text != "" {
			return EventText
		}
	}
	return EventIgnored
}

// media is a file attached to a message.
type media struct {
	FileID   string
	UniqueID string
	Name     string
	Kind     models.MediaKind
}

// extractMedia returns the document, video or audio attached to msg.
func extractMedia(msg *tgbotapi.Message) (media, bool) {
	if msg == nil {
		return media{}, false
	}
	switch {
	case msg.Document != nil:
		return media{msg.Document.FileID, msg.Document.FileUniqueID, msg.Document.FileName, models.MediaDocument}, true
	case msg.Video != nil:
		return media{msg.Video.FileID, msg.Video.FileUniqueID, msg.Video.FileName, models.MediaVideo}, true
	case msg.Audio != nil:
		name := msg.Audio.FileName
		if name == "" {
			name = msg.Audio.Title
		}
		return media{msg.Audio.FileID, msg.Audio.FileUniqueID, name, models.MediaAudio}, true
	}
	return media{}, false
}
