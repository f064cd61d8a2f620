package telegram_bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"autofilter/internal/apperr"
)

func (b *Bot) handleSetCaptionCommand(ctx context.Context, msg *tgbotapi.Message) error {
	caption := strings.TrimSpace(msg.CommandArguments())
	if caption == "" {
		return apperr.InvalidInput("usage: /set_caption <text>, placeholders: {file_name} {caption}")
	}
	if err := b.deps.Settings.SaveCaption(ctx, msg.From.ID, caption); err != nil {
		return err
	}
	b.reply(msg, "✅ Caption saved")
	return nil
}

func (b *Bot) handleDelCaptionCommand(ctx context.Context, msg *tgbotapi.Message) error {
	deleted, err := b.deps.Settings.DeleteCaption(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	if !deleted {
		b.reply(msg, "You have no caption set")
		return nil
	}
	b.reply(msg, "🗑 Caption deleted")
	return nil
}

func thumbLabel(lazy bool) string {
	if lazy {
		return "lazy thumbnail"
	}
	return "thumbnail"
}

// checkLazy restricts lazy thumbnail commands to admins and lazy renamers.
func (b *Bot) checkLazy(msg *tgbotapi.Message, lazy bool) error {
	if lazy && !b.cfg.IsLazyRenamer(msg.From.ID) {
		return apperr.ErrUnauthorized
	}
	return nil
}

func (b *Bot) thumbSetter(lazy bool) func(context.Context, *tgbotapi.Message) error {
	return func(ctx context.Context, msg *tgbotapi.Message) error {
		if err := b.checkLazy(msg, lazy); err != nil {
			return err
		}
		reply := msg.ReplyToMessage
		if reply == nil || len(reply.Photo) == 0 {
			return apperr.InvalidInput("reply to a photo to set your " + thumbLabel(lazy))
		}
		// sizes are ascending, keep the largest
		thumbID := reply.Photo[len(reply.Photo)-1].FileID
		if err := b.deps.Settings.SaveThumbnail(ctx, msg.From.ID, thumbID, lazy); err != nil {
			return err
		}
		b.reply(msg, "✅ Saved your "+thumbLabel(lazy))
		return nil
	}
}

func (b *Bot) thumbViewer(lazy bool) func(context.Context, *tgbotapi.Message) error {
	return func(ctx context.Context, msg *tgbotapi.Message) error {
		if err := b.checkLazy(msg, lazy); err != nil {
			return err
		}
		thumbID, ok, err := b.deps.Settings.GetThumbnail(ctx, msg.From.ID, lazy)
		if err != nil {
			return err
		}
		if !ok {
			b.reply(msg, "You have no "+thumbLabel(lazy)+" set")
			return nil
		}
		photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileID(thumbID))
		photo.Caption = "Your " + thumbLabel(lazy)
		photo.ReplyToMessageID = msg.MessageID
		if _, err := b.api.Send(photo); err != nil {
			b.logger.Error("Failed to send thumbnail", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		}
		return nil
	}
}

func (b *Bot) thumbDeleter(lazy bool) func(context.Context, *tgbotapi.Message) error {
	return func(ctx context.Context, msg *tgbotapi.Message) error {
		if err := b.checkLazy(msg, lazy); err != nil {
			return err
		}
		deleted, err := b.deps.Settings.DeleteThumbnail(ctx, msg.From.ID, lazy)
		if err != nil {
			return err
		}
		if !deleted {
			b.reply(msg, "You have no "+thumbLabel(lazy)+" set")
			return nil
		}
		b.reply(msg, "🗑 Deleted your "+thumbLabel(lazy))
		return nil
	}
}
