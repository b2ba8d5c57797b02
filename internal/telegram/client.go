// Package telegram mirrors operator-facing failures to a Telegram chat.
//
// Timeouts and automation failures are shown in the overlay first; when a
// bot is configured the same notice is sent to the team chat so stuck
// sessions are visible to a supervisor.
//
// Graceful degradation: NewClient returns nil when the bot is not
// configured, and every method is safe on a nil *Client.
package telegram

import (
	"fmt"
	"html"
	"strconv"
	"time"

	"domsync/internal/logging"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of the bot API the client uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client sends notices to one chat.
//
// Fields:
//   - sender: bot API, or a fake in tests
//   - chatID: target chat
//   - debug: if true, notices are logged and not sent
type Client struct {
	sender Sender
	chatID int64
	debug  bool
	logger *zap.SugaredLogger
}

// NewClient connects the bot.
//
// Returns:
//   - *Client: configured client, or nil if token or chat id is missing
//   - error: invalid chat id or bot authorization failure
func NewClient(token, chatID string, debug bool, logger *zap.SugaredLogger) (*Client, error) {
	logger = logging.OrNop(logger)

	if token == "" || chatID == "" {
		logger.Warn("⚠️  TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set. Telegram notices disabled.")
		if token == "" {
			logger.Warn("   → Missing: TELEGRAM_BOT_TOKEN")
		}
		if chatID == "" {
			logger.Warn("   → Missing: TELEGRAM_CHAT_ID")
		}
		return nil, nil
	}

	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", chatID, err)
	}

	if debug {
		logger.Info("🐛 DEBUG MODE ENABLED - Telegram notices will be logged only")
		return &Client{chatID: id, debug: true, logger: logger}, nil
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, newHTTPClient(requestTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to authorize Telegram bot: %w", err)
	}

	logger.Infow("✓ Telegram configured successfully", "bot", bot.Self.UserName)
	return NewClientWithSender(bot, id, logger), nil
}

// NewClientWithSender builds a client around an existing sender.
func NewClientWithSender(sender Sender, chatID int64, logger *zap.SugaredLogger) *Client {
	return &Client{sender: sender, chatID: chatID, logger: logging.OrNop(logger)}
}

// SendNotice sends an operator notice.
//
// Parameters:
//   - kind: short category, e.g. "Lead detection timeout"
//   - lead: lead number the notice relates to, may be empty
//   - message: the text shown to the operator
func (c *Client) SendNotice(kind, lead, message string) error {
	if c == nil {
		return nil
	}

	text := FormatNotice(kind, lead, message, time.Now())
	if c.debug || c.sender == nil {
		c.logger.Infow("🐛 Telegram notice (not sent)", "kind", kind, "lead", lead)
		return nil
	}

	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := c.sender.Send(msg); err != nil {
		c.logger.Warnw("❌ Failed to send Telegram notice", "kind", kind, "error", err)
		return fmt.Errorf("failed to send Telegram notice: %w", err)
	}

	c.logger.Infow("✓ Telegram notice sent", "kind", kind)
	return nil
}

// FormatNotice renders a notice as Telegram HTML.
func FormatNotice(kind, lead, message string, at time.Time) string {
	if lead == "" {
		lead = "N/A"
	}
	return fmt.Sprintf(
		"🚨 <b>DOMSYNC NOTICE</b>\n\n"+
			"<b>Type:</b> %s\n"+
			"<b>Lead:</b> %s\n"+
			"<b>Message:</b> %s\n"+
			"<b>Timestamp:</b> %s",
		html.EscapeString(kind),
		html.EscapeString(lead),
		html.EscapeString(message),
		at.Format("2006-01-02 15:04:05"),
	)
}
