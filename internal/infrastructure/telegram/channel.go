package telegram

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"SecurityNewsBot/internal/config"
	"SecurityNewsBot/internal/domain"
	"SecurityNewsBot/internal/ports"
)

// Channel delivers run output to one fixed Telegram chat.
type Channel struct {
	bot    *telego.Bot
	chatID telego.ChatID
	logger *slog.Logger
}

var _ ports.DeliveryChannel = (*Channel)(nil)

// NewChannel builds the bot client. Extra options are used by tests to point
// the bot at a stub API server.
func NewChannel(cfg config.TelegramConfig, log *slog.Logger, opts ...telego.BotOption) (*Channel, error) {
	bot, err := telego.NewBot(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Channel{
		bot:    bot,
		chatID: parseChatID(cfg.ChatID),
		logger: log,
	}, nil
}

// Announce posts a plain header message ahead of an item batch.
func (c *Channel) Announce(ctx context.Context, text string) error {
	if err := c.sendText(ctx, text); err != nil {
		return fmt.Errorf("announce: %w", err)
	}
	return nil
}

// Deliver posts the audio artifact with a caption linking back to the
// article. When the audio post is rejected, a text-only notice with the
// title and link is sent instead so the reader never receives nothing.
func (c *Channel) Deliver(ctx context.Context, article domain.Article, audioPath string) error {
	audio, err := os.Open(audioPath)
	if err != nil {
		return fmt.Errorf("open audio artifact: %w", err)
	}
	defer audio.Close()

	caption := fmt.Sprintf("<b>%s</b>\n\n🔗 <a href=\"%s\">Читать полностью</a>",
		html.EscapeString(article.Title), article.Link)

	params := tu.Audio(c.chatID, tu.File(tu.NameReader(audio, "news.mp3")))
	params.Caption = caption
	params.ParseMode = telego.ModeHTML

	if _, err := c.bot.SendAudio(ctx, params); err == nil {
		return nil
	} else if c.logger != nil {
		c.logger.Warn("audio delivery rejected, falling back to text", "title", article.Title, "error", err)
	}

	notice := fmt.Sprintf("📄 <b>%s</b>\n\n🔗 %s", html.EscapeString(article.Title), article.Link)
	if err := c.sendText(ctx, notice); err != nil {
		return fmt.Errorf("deliver fallback notice: %w", err)
	}
	return nil
}

func (c *Channel) sendText(ctx context.Context, text string) error {
	msg := tu.Message(c.chatID, text)
	msg.ParseMode = telego.ModeHTML
	msg.LinkPreviewOptions = &telego.LinkPreviewOptions{IsDisabled: true}

	if _, err := c.bot.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// parseChatID accepts a numeric chat identifier or a public @username.
func parseChatID(raw string) telego.ChatID {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return tu.ID(id)
	}
	if !strings.HasPrefix(raw, "@") {
		raw = "@" + raw
	}
	return tu.Username(raw)
}
