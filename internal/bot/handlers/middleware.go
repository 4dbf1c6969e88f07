// Package handlers contains the Telegram command and chat handlers, their
// registration and middleware, and the adapter that delivers agent responses
// to Telegram chats.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly lets only the configured admin through. With no admin configured
// every sender is refused.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				return
			}

			if !isAdmin(deps, update.Message.From.ID) {
				chatID := update.Message.Chat.ID
				log := deps.Logger.With("middleware", "AdminOnly")
				log.WarnContext(ctx, "Unauthorized access attempt", "user_id", update.Message.From.ID, "chat_id", chatID)
				sendText(ctx, b, log, chatID, deps.Config.Messages.ErrorUnauthorizedMsg)
				return
			}

			next(ctx, b, update)
		}
	}
}

func isAdmin(deps HandlerDeps, userID int64) bool {
	adminID := deps.Config.Telegram.AdminUserID
	return adminID != 0 && userID == adminID
}
