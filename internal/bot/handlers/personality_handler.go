package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/companionbot/internal/personality"
)

// NewPersonalityHandler returns a handler for /personality, which shows the active personality.
func NewPersonalityHandler(deps HandlerDeps) bot.HandlerFunc {
	return personalityHandler{deps}.Handle
}

type personalityHandler struct {
	deps HandlerDeps
}

func (h personalityHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "personality")
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	p, err := h.deps.Personalities.Current(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load personality", "error", err, "chat_id", chatID)
		sendText(ctx, b, log, chatID, h.deps.Config.Messages.ErrorGeneralMsg)
		return
	}
	sendText(ctx, b, log, chatID, fmt.Sprintf(h.deps.Config.Messages.PersonalityCurrentMsg, p.Name, p.Byline))
}

// NewPersonalitySetHandler returns a handler for /personality_set <preset>.
func NewPersonalitySetHandler(deps HandlerDeps) bot.HandlerFunc {
	return personalitySetHandler{deps}.Handle
}

type personalitySetHandler struct {
	deps HandlerDeps
}

func (h personalitySetHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "personality_set")
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	usage := fmt.Sprintf(h.deps.Config.Messages.PersonalityUsageMsg, strings.Join(personality.Presets(), ", "))

	name := commandArgs(update.Message.Text)
	if name == "" {
		sendText(ctx, b, log, chatID, usage)
		return
	}

	p, err := h.deps.Personalities.SetPreset(ctx, name)
	if errors.Is(err, personality.ErrUnknownPreset) {
		log.InfoContext(ctx, "Unknown personality preset requested", "preset", name, "chat_id", chatID)
		sendText(ctx, b, log, chatID, usage)
		return
	}
	if err != nil {
		log.ErrorContext(ctx, "Failed to set personality", "error", err, "preset", name)
		sendText(ctx, b, log, chatID, h.deps.Config.Messages.ErrorGeneralMsg)
		return
	}

	log.InfoContext(ctx, "Personality changed", "preset", name, "user_id", update.Message.From.ID)
	sendText(ctx, b, log, chatID, fmt.Sprintf(h.deps.Config.Messages.PersonalityUpdatedMsg, p.Name, p.Byline))
}
