package telegram_bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"autofilter/internal/apperr"
	"autofilter/internal/metrics"
	"autofilter/internal/models"
)

type command struct {
	fn        func(ctx context.Context, msg *tgbotapi.Message) error
	adminOnly bool
}

func (b *Bot) commandTable() map[string]command {
	return map[string]command{
		"start":   {fn: b.handleStartCommand},
		"help":    {fn: b.handleHelpCommand},
		"id":      {fn: b.handleIDCommand},
		"info":    {fn: b.handleInfoCommand},
		"stats":   {fn: b.handleStatsCommand},
		"filters": {fn: b.handleFiltersCommand},

		"filter": {fn: b.handleFilterCommand, adminOnly: true},
		"del":    {fn: b.handleDelCommand, adminOnly: true},
		"delall": {fn: b.handleDelAllCommand, adminOnly: true},

		"logs":      {fn: b.handleLogsCommand, adminOnly: true},
		"broadcast": {fn: b.handleBroadcastCommand, adminOnly: true},
		"index":     {fn: b.handleIndexCommand, adminOnly: true},
		"ban":       {fn: b.handleBanCommand, adminOnly: true},
		"unban":     {fn: b.handleUnbanCommand, adminOnly: true},
		"delete":    {fn: b.handleDeleteCommand, adminOnly: true},
		"deleteall": {fn: b.handleDeleteAllCommand, adminOnly: true},

		"set_caption":     {fn: b.handleSetCaptionCommand},
		"del_caption":     {fn: b.handleDelCaptionCommand},
		"set_thumb":       {fn: b.thumbSetter(false)},
		"view_thumb":      {fn: b.thumbViewer(false)},
		"del_thumb":       {fn: b.thumbDeleter(false)},
		"set_lazy_thumb":  {fn: b.thumbSetter(true)},
		"view_lazy_thumb": {fn: b.thumbViewer(true)},
		"del_lazy_thumb":  {fn: b.thumbDeleter(true)},
	}
}

// handleCommand dispatches a command message. Commands sent on behalf of a
// chat or addressed to another bot (/cmd@other_bot) are ignored.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || !b.addressedToMe(msg) {
		return
	}
	name := strings.ToLower(msg.Command())

	if err := b.deps.Users.Touch(ctx, msg.From.ID, displayName(msg.From)); err != nil {
		b.logger.Warn("Failed to record user", zap.Int64("user_id", msg.From.ID), zap.Error(err))
	}

	cmd, ok := b.commands[name]
	if !ok {
		metrics.CommandsTotal.WithLabelValues("unknown").Inc()
		if msg.Chat.IsPrivate() {
			b.reply(msg, "Unknown command. Use /help to see what I can do.")
		}
		return
	}
	metrics.CommandsTotal.WithLabelValues(name).Inc()

	if cmd.adminOnly && !b.cfg.IsAdmin(msg.From.ID) {
		b.handleFailure(msg.Chat.ID, name, apperr.ErrUnauthorized)
		return
	}

	if err := cmd.fn(ctx, msg); err != nil {
		b.handleFailure(msg.Chat.ID, "/"+name, err)
	}
}

func (b *Bot) addressedToMe(msg *tgbotapi.Message) bool {
	_, at, found := strings.Cut(msg.CommandWithAt(), "@")
	return !found || strings.EqualFold(at, b.username)
}

// handleStartCommand handles the /start command
func (b *Bot) handleStartCommand(ctx context.Context, msg *tgbotapi.Message) error {
	name := "there"
	if msg.From.FirstName != "" {
		name = msg.From.FirstName
	}
	welcomeText := fmt.Sprintf(
		"👋 Hi, %s!\n\n"+
			"I index files from my channels and answer searches in groups. "+
			"Add me to a group and send a title; I will reply with every matching file, grouped by quality.\n\n"+
			"Use /help for the list of commands.",
		name,
	)

	switch len(b.cfg.Pics) {
	case 0:
	case 1:
		photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileURL(b.cfg.Pics[0]))
		photo.Caption = welcomeText
		_, err := b.api.Send(photo)
		if err == nil {
			return nil
		}
		b.logger.Warn("Failed to send start picture", zap.Error(err))
	default:
		media := make([]interface{}, 0, len(b.cfg.Pics))
		for _, pic := range b.cfg.Pics {
			media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(pic)))
		}
		if _, err := b.api.Request(tgbotapi.NewMediaGroup(msg.Chat.ID, media)); err != nil {
			b.logger.Warn("Failed to send start pictures", zap.Error(err))
		}
	}

	b.sendMessage(msg.Chat.ID, welcomeText)
	return nil
}

// handleHelpCommand handles the /help command
func (b *Bot) handleHelpCommand(_ context.Context, msg *tgbotapi.Message) error {
	helpText := "📚 Help:\n\n" +
		"Send a title in a group to search the index.\n\n" +
		"/start - Welcome message\n" +
		"/help - This help\n" +
		"/id - Show chat and user ids\n" +
		"/info - Show what I know about you\n" +
		"/stats - Index statistics\n" +
		"/filters - List manual filters of this chat\n" +
		"/set_caption <text> - Caption template for files you request ({file_name}, {caption})\n" +
		"/del_caption - Remove your caption template\n" +
		"/set_thumb, /view_thumb, /del_thumb - Manage your thumbnail\n"
	if b.cfg.IsAdmin(msg.From.ID) {
		helpText += "\n🛠 Admin:\n" +
			"/filter <keyword> - Reply to a file to bind it to a keyword\n" +
			"/del <keyword> - Delete a filter\n" +
			"/delall - Delete all filters of this chat\n" +
			"/index - Reply to a file to index it\n" +
			"/delete - Reply to a file to remove it from the index\n" +
			"/deleteall - Remove every indexed file\n" +
			"/ban <id>, /unban <id> - Block or unblock a user\n" +
			"/broadcast - Reply to a message to copy it to all users\n" +
			"/logs - Recent warnings and errors\n" +
			"/set_lazy_thumb, /view_lazy_thumb, /del_lazy_thumb - Lazy thumbnail\n"
	}
	b.sendMessage(msg.Chat.ID, helpText)
	return nil
}

func (b *Bot) handleIDCommand(_ context.Context, msg *tgbotapi.Message) error {
	text := fmt.Sprintf("💬 Chat ID: %d\n👤 Your ID: %d", msg.Chat.ID, msg.From.ID)
	if r := msg.ReplyToMessage; r != nil {
		if r.From != nil {
			text += fmt.Sprintf("\n↩️ Replied user ID: %d", r.From.ID)
		}
		if r.ForwardFromChat != nil {
			text += fmt.Sprintf("\n📢 Forwarded from chat ID: %d", r.ForwardFromChat.ID)
		}
	}
	b.reply(msg, text)
	return nil
}

func (b *Bot) handleInfoCommand(ctx context.Context, msg *tgbotapi.Message) error {
	u, err := b.deps.Users.Get(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	if u == nil {
		return apperr.InvalidInput("I have no record of you yet, send /start first")
	}
	text := fmt.Sprintf(
		"👤 User info\n\nID: %d\nName: %s\nFirst seen: %s\nLast seen: %s\nBanned: %t",
		u.UserID,
		u.DisplayName,
		u.FirstSeen.Format("2006-01-02 15:04"),
		u.LastSeen.Format("2006-01-02 15:04"),
		u.Banned,
	)
	b.reply(msg, text)
	return nil
}

func (b *Bot) handleStatsCommand(ctx context.Context, msg *tgbotapi.Message) error {
	files, err := b.deps.Files.Count(ctx)
	if err != nil {
		return err
	}
	filters, err := b.deps.Filters.Count(ctx)
	if err != nil {
		return err
	}
	users, err := b.deps.Users.Count(ctx)
	if err != nil {
		return err
	}
	stats := models.Stats{Files: files, Filters: filters, Users: users}
	b.reply(msg, fmt.Sprintf("📊 Stats\n\nFiles: %d\nFilters: %d\nUsers: %d", stats.Files, stats.Filters, stats.Users))
	return nil
}

// handleFilterCommand binds the replied-to media to a keyword in this chat.
func (b *Bot) handleFilterCommand(ctx context.Context, msg *tgbotapi.Message) error {
	keyword := models.NormalizeKeyword(msg.CommandArguments())
	if keyword == "" {
		return apperr.InvalidInput("usage: reply to a file with /filter <keyword>")
	}
	if msg.ReplyToMessage == nil {
		return apperr.InvalidInput("reply to a video, document or audio file")
	}
	m, ok := extractMedia(msg.ReplyToMessage)
	if !ok {
		return apperr.InvalidInput("unsupported media, reply to a video, document or audio file")
	}

	f := models.ManualFilter{
		ChatID:   msg.Chat.ID,
		Keyword:  keyword,
		FileID:   m.FileID,
		FileType: m.Kind,
		Caption:  msg.ReplyToMessage.Caption,
	}
	if err := b.deps.Filters.Upsert(ctx, f); err != nil {
		return err
	}
	b.logger.Info("Filter saved", zap.Int64("chat_id", f.ChatID), zap.String("keyword", keyword))
	b.reply(msg, fmt.Sprintf("✅ Filter '%s' saved", keyword))
	return nil
}

func (b *Bot) handleFiltersCommand(ctx context.Context, msg *tgbotapi.Message) error {
	filters, err := b.deps.Filters.List(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if len(filters) == 0 {
		b.reply(msg, "No filters in this chat")
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 %d filters in this chat:\n", len(filters))
	for _, f := range filters {
		sb.WriteString("\n• " + f.Keyword)
	}
	b.reply(msg, sb.String())
	return nil
}

func (b *Bot) handleDelCommand(ctx context.Context, msg *tgbotapi.Message) error {
	keyword := models.NormalizeKeyword(msg.CommandArguments())
	if keyword == "" {
		return apperr.InvalidInput("usage: /del <keyword>")
	}
	deleted, err := b.deps.Filters.Delete(ctx, msg.Chat.ID, keyword)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.InvalidInput(fmt.Sprintf("no filter named '%s'", keyword))
	}
	b.reply(msg, fmt.Sprintf("🗑 Filter '%s' deleted", keyword))
	return nil
}

func (b *Bot) handleDelAllCommand(ctx context.Context, msg *tgbotapi.Message) error {
	n, err := b.deps.Filters.DeleteAll(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	b.logger.Info("Filters cleared", zap.Int64("chat_id", msg.Chat.ID), zap.Int64("deleted", n))
	b.reply(msg, fmt.Sprintf("🗑 Deleted %d filters", n))
	return nil
}
