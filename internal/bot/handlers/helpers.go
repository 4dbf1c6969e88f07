package handlers

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	sendMessageTimeout = 10 * time.Second
	typingInterval     = 4 * time.Second
)

// sendText sends a plain message, logging failures.
func sendText(ctx context.Context, b *bot.Bot, log *slog.Logger, chatID int64, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()
	if _, err := b.SendMessage(sendCtx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
	}
}

// withBotName replaces the "@botname" placeholder with the bot's username.
func withBotName(text string, botInfo *models.User) string {
	if botInfo == nil || botInfo.Username == "" {
		return text
	}
	return strings.ReplaceAll(text, "@botname", "@"+botInfo.Username)
}

// messageText joins the text and caption of msg.
func messageText(msg *models.Message) string {
	return strings.TrimSpace(strings.TrimSpace(msg.Text) + " " + strings.TrimSpace(msg.Caption))
}

// shouldRespond reports whether the bot is addressed by msg: always in
// private chats, otherwise only when mentioned or replied to.
func shouldRespond(msg *models.Message, botInfo *models.User) bool {
	if msg == nil {
		return false
	}
	if msg.Chat.Type == models.ChatTypePrivate {
		return true
	}
	if botInfo == nil {
		return false
	}

	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil && msg.ReplyToMessage.From.ID == botInfo.ID {
		return true
	}

	if botInfo.Username == "" {
		return false
	}
	username := strings.ToLower(botInfo.Username)
	for _, w := range strings.Fields(strings.ToLower(messageText(msg))) {
		if strings.TrimFunc(w, unicode.IsPunct) == username {
			return true
		}
	}
	return false
}

// stripMention removes @username mentions of the bot from text.
func stripMention(text string, botInfo *models.User) string {
	if botInfo == nil || botInfo.Username == "" {
		return strings.TrimSpace(text)
	}
	re := mentionPattern(botInfo.Username)
	return strings.Join(strings.Fields(re.ReplaceAllString(text, "")), " ")
}

// mentionPatterns caches the compiled mention pattern per bot username.
var mentionPatterns sync.Map

func mentionPattern(username string) *regexp.Regexp {
	if re, ok := mentionPatterns.Load(username); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`(?i)@` + regexp.QuoteMeta(username) + `\b`)
	actual, _ := mentionPatterns.LoadOrStore(username, re)
	return actual.(*regexp.Regexp)
}

// commandArgs returns what follows the command word in text.
func commandArgs(text string) string {
	_, args, _ := strings.Cut(strings.TrimSpace(text), " ")
	return strings.TrimSpace(args)
}

// keepTyping shows the typing indicator until the returned stop func is called.
func keepTyping(ctx context.Context, b *bot.Bot, log *slog.Logger, chatID int64) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()
		for {
			if _, err := b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping}); err != nil && ctx.Err() == nil {
				log.DebugContext(ctx, "Failed to send typing action", "error", err, "chat_id", chatID)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
