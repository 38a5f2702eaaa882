// Package telegram delivers shop notifications to an admin chat through the
// Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/exp/slog"
)

// Gateway sends a message to the configured chat
type Gateway interface {
	SendMessage(ctx context.Context, text string) error
}

// Config identifies the bot and the chat it posts to.
type Config struct {
	BotToken string
	ChatID   int64
}

// BotGateway posts HTML messages with go-telegram/bot
type BotGateway struct {
	bot    *bot.Bot
	chatID int64
}

// MockGateway records messages instead of sending them
type MockGateway struct {
	mu       sync.Mutex
	messages []string
	// Err, when set, is returned from every SendMessage call.
	Err error
}

// NewBotGateway creates a Telegram gateway. bot.New validates the token
// against the API, so this fails fast on a bad token.
func NewBotGateway(cfg Config) (*BotGateway, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("telegram bot token is required")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is required")
	}
	b, err := bot.New(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &BotGateway{bot: b, chatID: cfg.ChatID}, nil
}

// SendMessage posts text to the admin chat
func (g *BotGateway) SendMessage(ctx context.Context, text string) error {
	disablePreview := true
	params := &bot.SendMessageParams{
		ChatID:    g.chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: &disablePreview,
		},
	}
	if _, err := g.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// NewMockGateway creates a new mock gateway
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// SendMessage records text, or fails with g.Err
func (g *MockGateway) SendMessage(ctx context.Context, text string) error {
	if g.Err != nil {
		return g.Err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	g.messages = append(g.messages, text)
	g.mu.Unlock()
	slog.Debug("Mock telegram message", "length", len(text))
	return nil
}

// Messages returns a copy of everything sent so far
func (g *MockGateway) Messages() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.messages))
	copy(out, g.messages)
	return out
}

// LogGateway writes messages to the log instead of a chat.
type LogGateway struct{}

func (LogGateway) SendMessage(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	slog.Info("Telegram message (not sent)", "text", text)
	return nil
}
