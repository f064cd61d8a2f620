package telegram_bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"autofilter/internal/apperr"
	"autofilter/internal/metrics"
	"autofilter/internal/models"
)

// maxMessageLength stays under Telegram's 4096 character limit.
const maxMessageLength = 4000

// handleChannelPost indexes media posted in a file store channel.
func (b *Bot) handleChannelPost(ctx context.Context, post *tgbotapi.Message) {
	if !b.cfg.IsFileStoreChannel(post.Chat.ID) {
		return
	}
	m, ok := extractMedia(post)
	if !ok {
		return
	}

	created, err := b.indexMedia(ctx, post.Chat.ID, m, post.Caption)
	if err != nil {
		metrics.StoreErrorsTotal.Inc()
		b.logger.Error("Failed to index file", zap.Int64("chat_id", post.Chat.ID), zap.String("file_name", m.Name), zap.Error(err))
		b.logError(fmt.Sprintf("indexing %q from %d: %v", m.Name, post.Chat.ID, err))
		return
	}
	if created {
		b.logMessage(fmt.Sprintf("📥 New file indexed in %s:\n%s", post.Chat.Title, m.Name))
	}
}

func (b *Bot) indexMedia(ctx context.Context, chatID int64, m media, caption string) (bool, error) {
	file := models.NewIndexedFile(chatID, m.FileID, m.UniqueID, m.Name, m.Kind, caption)
	created, err := b.deps.Files.Save(ctx, file)
	if err != nil {
		return false, err
	}
	if created {
		metrics.FilesIndexedTotal.Inc()
		b.logger.Info("File indexed",
			zap.Int64("chat_id", chatID),
			zap.String("file_name", file.FileName),
			zap.String("quality", string(file.Quality)),
		)
	}
	return created, nil
}

// handleIndexCommand indexes the replied-to media. Forwarded posts are indexed
// under the channel they came from.
func (b *Bot) handleIndexCommand(ctx context.Context, msg *tgbotapi.Message) error {
	m, ok := extractMedia(msg.ReplyToMessage)
	if !ok {
		return apperr.InvalidInput("reply to a video, document or audio file with /index")
	}
	scope := msg.Chat.ID
	if fwd := msg.ReplyToMessage.ForwardFromChat; fwd != nil {
		scope = fwd.ID
	}

	created, err := b.indexMedia(ctx, scope, m, msg.ReplyToMessage.Caption)
	if err != nil {
		return err
	}
	if !created {
		b.reply(msg, "ℹ️ Already indexed: "+m.Name)
		return nil
	}
	b.reply(msg, "✅ Indexed: "+m.Name)
	return nil
}

func (b *Bot) handleDeleteCommand(ctx context.Context, msg *tgbotapi.Message) error {
	m, ok := extractMedia(msg.ReplyToMessage)
	if !ok {
		return apperr.InvalidInput("reply to an indexed file with /delete")
	}
	n, err := b.deps.Files.Delete(ctx, m.FileID, m.UniqueID)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.InvalidInput("file is not indexed")
	}
	b.logger.Info("Indexed file deleted", zap.String("file_name", m.Name), zap.Int64("deleted", n))
	b.reply(msg, "🗑 Removed from index: "+m.Name)
	return nil
}

func (b *Bot) handleDeleteAllCommand(ctx context.Context, msg *tgbotapi.Message) error {
	n, err := b.deps.Files.DeleteAll(ctx)
	if err != nil {
		return err
	}
	b.logger.Warn("Index cleared", zap.Int64("by", msg.From.ID), zap.Int64("deleted", n))
	b.reply(msg, fmt.Sprintf("🗑 Removed %d files from the index", n))
	return nil
}

func (b *Bot) handleBanCommand(ctx context.Context, msg *tgbotapi.Message) error {
	return b.setBanned(ctx, msg, true)
}

func (b *Bot) handleUnbanCommand(ctx context.Context, msg *tgbotapi.Message) error {
	return b.setBanned(ctx, msg, false)
}

func (b *Bot) setBanned(ctx context.Context, msg *tgbotapi.Message, banned bool) error {
	userID, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		return apperr.InvalidInput(fmt.Sprintf("usage: /%s <user id>", msg.Command()))
	}
	if banned && b.cfg.IsAdmin(userID) {
		return apperr.InvalidInput("admins cannot be banned")
	}
	if _, err := b.deps.Users.SetBanned(ctx, userID, banned); err != nil {
		return err
	}

	b.logger.Info("Ban status changed", zap.Int64("user_id", userID), zap.Bool("banned", banned))
	if banned {
		b.reply(msg, fmt.Sprintf("🚫 User %d banned", userID))
	} else {
		b.reply(msg, fmt.Sprintf("✅ User %d unbanned", userID))
	}
	return nil
}

func (b *Bot) handleLogsCommand(_ context.Context, msg *tgbotapi.Message) error {
	lines := b.deps.Recent.Lines()
	if len(lines) == 0 {
		b.reply(msg, "No recent warnings or errors")
		return nil
	}
	text := strings.Join(lines, "\n")
	if len(text) > maxMessageLength {
		// keep the newest lines
		text = text[len(text)-maxMessageLength:]
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[i+1:]
		}
		for len(text) > 0 && !utf8.RuneStart(text[0]) {
			text = text[1:]
		}
	}
	b.reply(msg, text)
	return nil
}

// handleBroadcastCommand copies the replied-to message to every user that is
// not banned and reports how many deliveries succeeded.
func (b *Bot) handleBroadcastCommand(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.ReplyToMessage == nil {
		return apperr.InvalidInput("reply to the message you want to broadcast")
	}
	ids, err := b.deps.Users.ActiveIDs(ctx)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := b.logger.With(zap.String("broadcast_id", runID))
	log.Info("Broadcast started", zap.Int("recipients", len(ids)))
	b.reply(msg, fmt.Sprintf("📣 Broadcasting to %d users...", len(ids)))

	var (
		wg      sync.WaitGroup
		success atomic.Int64
		failed  atomic.Int64
	)
	done := func(err error) {
		defer wg.Done()
		if err != nil {
			failed.Add(1)
			return
		}
		success.Add(1)
	}
	for _, id := range ids {
		wg.Add(1)
		copyMsg := tgbotapi.NewCopyMessage(id, msg.Chat.ID, msg.ReplyToMessage.MessageID)
		if err := b.deps.Outbox.Enqueue(ctx, id, copyMsg, done); err != nil {
			done(err)
		}
	}
	wg.Wait()

	report := fmt.Sprintf("📣 Broadcast %s finished\n\nTotal: %d\nSuccess: %d\nFailed: %d",
		runID[:8], len(ids), success.Load(), failed.Load())
	log.Info("Broadcast finished", zap.Int64("success", success.Load()), zap.Int64("failed", failed.Load()))
	b.reply(msg, report)
	b.logMessage(report)
	return nil
}
