package telegram_bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"autofilter/internal/metrics"
	"autofilter/internal/models"
	"autofilter/internal/search"
)

// handleText auto-filters free text posted in groups.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil || !(msg.Chat.IsGroup() || msg.Chat.IsSuperGroup()) {
		return
	}
	chatID := msg.Chat.ID

	res, err := b.deps.Matcher.Resolve(ctx, chatID, msg.Text)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		b.handleFailure(chatID, "resolve query", err)
		return
	}
	metrics.QueriesTotal.WithLabelValues(res.Kind.String()).Inc()

	switch res.Kind {
	case search.MatchExact:
		out := mediaMessage(chatID, res.FileType, res.FileID, res.Caption)
		if _, err := b.api.Send(withReply(out, msg.MessageID)); err != nil {
			b.logger.Error("Failed to send filter match", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	case search.MatchSearch:
		query := models.NormalizeKeyword(msg.Text)
		grouped := search.Group(res.Files)
		page := search.Page{Index: 0, Total: search.PageCount(grouped.Count(), b.deps.Pager.PageSize())}

		text, keyboard := renderResults(query, grouped, page, b.deps.Pager.PageSize())
		out := tgbotapi.NewMessage(chatID, text)
		out.ReplyToMessageID = msg.MessageID
		out.ReplyMarkup = keyboard
		sent, err := b.api.Send(out)
		if err != nil {
			b.logger.Error("Failed to send results", zap.Int64("chat_id", chatID), zap.Error(err))
			return
		}
		b.deps.Pager.Start(search.InteractionID(chatID, sent.MessageID), query, grouped.Count())
		b.logger.Debug("Results sent",
			zap.Int64("chat_id", chatID),
			zap.String("query", query),
			zap.Int("results", grouped.Count()),
		)
	}
}

// handleCallbackQuery serves the quality, all and page buttons of a result message.
func (b *Bot) handleCallbackQuery(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	data, err := parseCallbackData(cq.Data)
	if err != nil {
		b.logger.Debug("Unknown callback data", zap.String("data", cq.Data))
		b.answer(cq.ID, "")
		return
	}
	metrics.CallbacksTotal.WithLabelValues(data.Action).Inc()

	switch data.Action {
	case actionQuality:
		b.sendQuality(ctx, cq, data)
	case actionAll:
		b.sendAll(ctx, cq, data)
	case actionPage:
		b.turnPage(ctx, cq, data)
	}
}

func (b *Bot) sendQuality(ctx context.Context, cq *tgbotapi.CallbackQuery, data callbackData) {
	chatID := cq.Message.Chat.ID
	query, ok := b.callbackQuery(cq, data)
	if !ok {
		return
	}
	files, err := b.deps.Matcher.Search(ctx, query)
	if err != nil {
		b.answer(cq.ID, "")
		b.handleFailure(chatID, "search quality", err)
		return
	}
	bucket := search.Group(files).Buckets[models.Quality(data.Arg)]
	if len(bucket) == 0 {
		b.alert(cq.ID, "No files found for this quality")
		return
	}

	f := bucket[0]
	caption := applyCaption(b.userCaption(ctx, cq.From), f)
	if _, err := b.api.Send(mediaMessage(chatID, f.FileType, f.FileID, caption)); err != nil {
		b.logger.Error("Failed to send file", zap.Int64("chat_id", chatID), zap.String("file_id", f.FileID), zap.Error(err))
		b.alert(cq.ID, "Could not send the file, try again later")
		return
	}
	b.answer(cq.ID, "")
}

func (b *Bot) sendAll(ctx context.Context, cq *tgbotapi.CallbackQuery, data callbackData) {
	chatID := cq.Message.Chat.ID
	query, ok := b.callbackQuery(cq, data)
	if !ok {
		return
	}
	files, err := b.deps.Matcher.Search(ctx, query)
	if err != nil {
		b.answer(cq.ID, "")
		b.handleFailure(chatID, "search all", err)
		return
	}
	files = search.Group(files).Flatten()
	if len(files) == 0 {
		b.alert(cq.ID, "No files found")
		return
	}
	if limit := b.cfg.Search.AllLimit; len(files) > limit {
		files = files[:limit]
	}

	template := b.userCaption(ctx, cq.From)
	queued := 0
	for _, f := range files {
		msg := mediaMessage(chatID, f.FileType, f.FileID, applyCaption(template, f))
		if err := b.deps.Outbox.Enqueue(ctx, chatID, msg, nil); err != nil {
			b.logger.Warn("Failed to queue file", zap.Int64("chat_id", chatID), zap.Error(err))
			break
		}
		queued++
	}
	b.answer(cq.ID, fmt.Sprintf("📤 Sending %d files", queued))
}

func (b *Bot) turnPage(ctx context.Context, cq *tgbotapi.CallbackQuery, data callbackData) {
	chatID := cq.Message.Chat.ID
	id := search.InteractionID(chatID, cq.Message.MessageID)

	before, query, ok := b.deps.Pager.Current(id)
	if !ok {
		// expired or lost on restart: rebuild from the button and the page
		// the message was showing
		if data.possiblyTruncated() {
			b.alert(cq.ID, expiredSearchText)
			return
		}
		files, err := b.deps.Matcher.Search(ctx, data.Query)
		if err != nil {
			b.answer(cq.ID, "")
			b.handleFailure(chatID, "restart pager", err)
			return
		}
		before = b.deps.Pager.Restore(id, data.Query, len(files), shownPage(cq.Message))
		query = data.Query
	}

	var after search.Page
	switch data.Arg {
	case moveNext:
		after, _, ok = b.deps.Pager.Next(id)
	case movePrev:
		after, _, ok = b.deps.Pager.Previous(id)
	default:
		b.answer(cq.ID, "Page "+before.Label())
		return
	}
	if !ok {
		b.answer(cq.ID, "")
		return
	}
	if after == before {
		b.answer(cq.ID, "")
		return
	}

	files, err := b.deps.Matcher.Search(ctx, query)
	if err != nil {
		b.answer(cq.ID, "")
		b.handleFailure(chatID, "turn page", err)
		return
	}
	if len(files) == 0 {
		b.deps.Pager.Discard(id)
		b.alert(cq.ID, "No files found")
		return
	}
	grouped := search.Group(files)
	if resized, ok := b.deps.Pager.Resize(id, grouped.Count()); ok {
		after = resized
	}

	text, keyboard := renderResults(query, grouped, after, b.deps.Pager.PageSize())
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cq.Message.MessageID, text, keyboard)
	if _, err := b.api.Request(edit); err != nil {
		b.logger.Error("Failed to edit results", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.answer(cq.ID, "")
}

const expiredSearchText = "This search has expired, please send it again"

// callbackQuery returns the full query of the result message a button belongs
// to. Without pager state it falls back to the query carried by the button,
// unless that one may have been cut to fit the payload.
func (b *Bot) callbackQuery(cq *tgbotapi.CallbackQuery, data callbackData) (string, bool) {
	id := search.InteractionID(cq.Message.Chat.ID, cq.Message.MessageID)
	if _, query, ok := b.deps.Pager.Current(id); ok {
		return query, true
	}
	if data.possiblyTruncated() {
		b.alert(cq.ID, expiredSearchText)
		return "", false
	}
	return data.Query, true
}

// userCaption returns the caption template of the user, or "" when unset.
func (b *Bot) userCaption(ctx context.Context, from *tgbotapi.User) string {
	if from == nil {
		return ""
	}
	caption, ok, err := b.deps.Settings.GetCaption(ctx, from.ID)
	if err != nil {
		b.logger.Warn("Failed to load caption", zap.Int64("user_id", from.ID), zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return caption
}

func withReply(c tgbotapi.Chattable, messageID int) tgbotapi.Chattable {
	switch m := c.(type) {
	case tgbotapi.VideoConfig:
		m.ReplyToMessageID = messageID
		return m
	case tgbotapi.AudioConfig:
		m.ReplyToMessageID = messageID
		return m
	case tgbotapi.DocumentConfig:
		m.ReplyToMessageID = messageID
		return m
	}
	return c
}
