package alerts

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier delivers alerts through the Telegram Bot API.
type TelegramNotifier struct {
	bot            *tgbotapi.BotAPI
	sender         botSender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// commandPollTimeout is the long-poll window for bot updates, in seconds.
const commandPollTimeout = 30

// NewTelegramNotifier creates a Telegram notifier. Each HTTP request is
// bounded by sendTimeout on top of the long-poll window.
func NewTelegramNotifier(botToken, chatID string, maxRetries int, retryDelayBase, sendTimeout time.Duration) (*TelegramNotifier, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}
	if sendTimeout <= 0 {
		sendTimeout = DefaultTimeout
	}

	client := &http.Client{Timeout: commandPollTimeout*time.Second + sendTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	n := newTelegramNotifier(bot, chatIDInt, maxRetries, retryDelayBase)
	n.bot = bot
	return n, nil
}

func newTelegramNotifier(sender botSender, chatID int64, maxRetries int, retryDelayBase time.Duration) *TelegramNotifier {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &TelegramNotifier{
		sender:         sender,
		chatID:         chatID,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// ListenForCommands polls for bot commands until ctx is cancelled.
// It returns immediately.
func (t *TelegramNotifier) ListenForCommands(ctx context.Context) {
	if t.bot == nil {
		return
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = commandPollTimeout
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				t.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					t.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (t *TelegramNotifier) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		t.sender.Send(reply) //nolint:errcheck
	}
}

// Notify sends text as an escaped MarkdownV2 message.
func (t *TelegramNotifier) Notify(ctx context.Context, text string) error {
	return t.sendMarkdownV2(ctx, escapeMarkdownV2(text))
}

// SendError reports a failed monitoring cycle.
func (t *TelegramNotifier) SendError(ctx context.Context, cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Scan error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return t.sendMarkdownV2(ctx, text)
}

// SendRecovery reports that scanning recovered after failures.
func (t *TelegramNotifier) SendRecovery(ctx context.Context, failureCount int) error {
	text := fmt.Sprintf("✅ *Scan recovered* after %d consecutive failure\\(s\\)", failureCount)
	return t.sendMarkdownV2(ctx, text)
}

// sendMarkdownV2 retries with linear backoff until ctx expires.
func (t *TelegramNotifier) sendMarkdownV2(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < t.maxRetries; i++ {
		err := t.send(ctx, msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return fmt.Errorf("telegram send cancelled: %w", lastErr)
		}
		if i == t.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("telegram send cancelled: %w", lastErr)
		case <-time.After(t.retryDelayBase * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("failed after %d retries: %w", t.maxRetries, lastErr)
}

// send runs one Send call and stops waiting once ctx is done. The
// abandoned call is still bounded by the HTTP client timeout.
func (t *TelegramNotifier) send(ctx context.Context, msg tgbotapi.MessageConfig) error {
	done := make(chan error, 1)
	go func() {
		_, err := t.sender.Send(msg)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '\\', '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
