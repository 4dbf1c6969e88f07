package handlers

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/edgard/companionbot/internal/agent"
	"github.com/edgard/companionbot/internal/config"
	"github.com/edgard/companionbot/internal/personality"
)

// Answerer answers chat input and manages chat history. *chat.Service satisfies it.
type Answerer interface {
	Answer(ctx context.Context, chatKey, input string, adapters ...agent.ChannelAdapter) (*agent.Result, error)
	Reset(ctx context.Context, chatKey string) (int64, error)
}

// PersonalityStore reads and changes the active personality. *personality.Store satisfies it.
type PersonalityStore interface {
	Current(ctx context.Context) (personality.Personality, error)
	SetPreset(ctx context.Context, name string) (personality.Personality, error)
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger        *slog.Logger
	Config        *config.Config
	Chat          Answerer
	Personalities PersonalityStore
}

// ChatKey scopes history to one Telegram chat.
func ChatKey(chatID int64) string {
	return "telegram:" + strconv.FormatInt(chatID, 10)
}
