package telegram_bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"autofilter/internal/models"
	"autofilter/internal/search"
)

// qualityButtonsPerRow keeps the quality row readable on phones.
const qualityButtonsPerRow = 3

// renderResults builds the text and keyboard of a result message for page.
func renderResults(query string, g search.Grouped, page search.Page, pageSize int) (string, tgbotapi.InlineKeyboardMarkup) {
	files := search.Window(g.Flatten(), page, pageSize)

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔍 Found %d results for '%s'\n\n", g.Count(), query)
	offset := page.Index * pageSize
	for i, f := range files {
		fmt.Fprintf(&sb, "%d. %s [%s]\n", offset+i+1, f.FileName, f.Quality)
	}

	return strings.TrimRight(sb.String(), "\n"), resultKeyboard(query, g, page)
}

func resultKeyboard(query string, g search.Grouped, page search.Page) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	var row []tgbotapi.InlineKeyboardButton
	for _, q := range g.Qualities {
		label := fmt.Sprintf("%s (%d)", q, len(g.Buckets[q]))
		data := callbackData{Action: actionQuality, Arg: string(q), Query: query}.Encode()
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, data))
		if len(row) == qualityButtonsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("📦 %s (%d)", search.AllLabel, g.Count()),
			callbackData{Action: actionAll, Query: query}.Encode()),
	))

	if page.Total > 1 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("« Back", callbackData{Action: actionPage, Arg: movePrev, Query: query}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData(page.Label(), callbackData{Action: actionPage, Arg: moveCurrent, Query: query}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("Next »", callbackData{Action: actionPage, Arg: moveNext, Query: query}.Encode()),
		))
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// shownPage reads the page index from the "k/N" button of a rendered result
// message. It is 0 when the message has no page row.
func shownPage(msg *tgbotapi.Message) int {
	if msg == nil || msg.ReplyMarkup == nil {
		return 0
	}
	for _, row := range msg.ReplyMarkup.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData == nil {
				continue
			}
			data, err := parseCallbackData(*btn.CallbackData)
			if err != nil || data.Action != actionPage || data.Arg != moveCurrent {
				continue
			}
			k, _, _ := strings.Cut(btn.Text, "/")
			n, err := strconv.Atoi(k)
			if err != nil || n < 1 {
				return 0
			}
			return n - 1
		}
	}
	return 0
}

// mediaMessage builds the send config matching the stored media kind. Telegram
// rejects a video file id resent as a document, so the kind matters.
func mediaMessage(chatID int64, kind models.MediaKind, fileID, caption string) tgbotapi.Chattable {
	file := tgbotapi.FileID(fileID)
	switch kind {
	case models.MediaVideo:
		msg := tgbotapi.NewVideo(chatID, file)
		msg.Caption = caption
		return msg
	case models.MediaAudio:
		msg := tgbotapi.NewAudio(chatID, file)
		msg.Caption = caption
		return msg
	default:
		msg := tgbotapi.NewDocument(chatID, file)
		msg.Caption = caption
		return msg
	}
}

// applyCaption fills a user caption template. {file_name} and {caption} are
// the only placeholders; an empty template keeps the stored caption.
func applyCaption(template string, f models.IndexedFile) string {
	if template == "" {
		return f.Caption
	}
	return strings.NewReplacer("{file_name}", f.FileName, "{caption}", f.Caption).Replace(template)
}
