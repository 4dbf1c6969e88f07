package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/companionbot/internal/chat"
)

// NewChatHandler returns the default handler: it answers every message
// addressed to the bot through the agent.
func NewChatHandler(deps HandlerDeps) bot.HandlerFunc {
	return chatHandler{deps}.Handle
}

type chatHandler struct {
	deps HandlerDeps
}

func (h chatHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "chat")

	msg := update.Message
	if msg == nil || msg.From == nil || messageText(msg) == "" {
		log.DebugContext(ctx, "Ignoring update without text or sender", "update_id", update.ID)
		return
	}

	botInfo := h.deps.Config.Telegram.BotInfo
	if !shouldRespond(msg, botInfo) {
		log.DebugContext(ctx, "Bot not addressed, ignoring message", "chat_id", msg.Chat.ID)
		return
	}

	chatID := msg.Chat.ID
	input := stripMention(messageText(msg), botInfo)
	if input == "" {
		sendText(ctx, b, log, chatID, withBotName(h.deps.Config.Messages.Help, botInfo))
		return
	}

	log.InfoContext(ctx, "Handling chat message", "chat_id", chatID, "message_id", msg.ID, "user_id", msg.From.ID)

	stopTyping := keepTyping(ctx, b, log, chatID)
	adapter := NewTelegramAdapter(b, chatID, msg.ID, h.deps.Logger)
	_, err := h.deps.Chat.Answer(ctx, ChatKey(chatID), input, adapter)
	stopTyping()

	// Failed cycles have already told the user.
	if err != nil && !errors.Is(err, chat.ErrEmptyInput) {
		log.ErrorContext(ctx, "Failed to answer message", "error", err, "chat_id", chatID)
	}
}
