package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/companionbot/internal/agent"
)

// Sender is the subset of the Telegram Bot API the adapter uses.
// *bot.Bot satisfies this interface.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	SendAudio(ctx context.Context, params *bot.SendAudioParams) (*models.Message, error)
	SendVideo(ctx context.Context, params *bot.SendVideoParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
}

// TelegramAdapter delivers agent responses to one Telegram chat.
type TelegramAdapter struct {
	sender  Sender
	chatID  int64
	replyTo int
	log     *slog.Logger
}

// NewTelegramAdapter creates an adapter for chatID. The first message sent replies to
// replyTo when it is positive.
func NewTelegramAdapter(sender Sender, chatID int64, replyTo int, logger *slog.Logger) *TelegramAdapter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TelegramAdapter{
		sender:  sender,
		chatID:  chatID,
		replyTo: replyTo,
		log:     logger.With("component", "telegram_adapter"),
	}
}

func (a *TelegramAdapter) Name() string { return "telegram" }

// Deliver sends consecutive text parts as one message and each artifact as
// the matching Telegram media type, by URL.
func (a *TelegramAdapter) Deliver(ctx context.Context, parts []agent.OutputPart) error {
	var pending []string
	replyTo := a.replyTo

	flush := func() error {
		text := strings.TrimSpace(strings.Join(pending, " "))
		pending = nil
		if text == "" {
			return nil
		}
		_, err := a.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:          a.chatID,
			Text:            text,
			ReplyParameters: a.reply(&replyTo),
		})
		if err != nil {
			return fmt.Errorf("send message: %w", err)
		}
		return nil
	}

	for _, p := range parts {
		switch v := p.(type) {
		case agent.TextPart:
			if text := agent.DisplayText(v); text != "" {
				pending = append(pending, text)
			}
		case agent.ResolvedArtifact:
			if err := flush(); err != nil {
				return err
			}
			if err := a.sendArtifact(ctx, v, a.reply(&replyTo)); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	a.log.DebugContext(ctx, "Response delivered", "chat_id", a.chatID, "parts", len(parts))
	return nil
}

// reply returns reply parameters for the first message only.
func (a *TelegramAdapter) reply(replyTo *int) *models.ReplyParameters {
	if *replyTo <= 0 {
		return nil
	}
	params := &models.ReplyParameters{MessageID: *replyTo}
	*replyTo = 0
	return params
}

func (a *TelegramAdapter) sendArtifact(ctx context.Context, art agent.ResolvedArtifact, reply *models.ReplyParameters) error {
	file := &models.InputFileString{Data: art.URL}

	var err error
	switch art.MimeClass {
	case agent.MimeImage:
		_, err = a.sender.SendPhoto(ctx, &bot.SendPhotoParams{ChatID: a.chatID, Photo: file, ReplyParameters: reply})
	case agent.MimeAudio:
		_, err = a.sender.SendAudio(ctx, &bot.SendAudioParams{ChatID: a.chatID, Audio: file, ReplyParameters: reply})
	case agent.MimeVideo:
		_, err = a.sender.SendVideo(ctx, &bot.SendVideoParams{ChatID: a.chatID, Video: file, ReplyParameters: reply})
	default:
		_, err = a.sender.SendDocument(ctx, &bot.SendDocumentParams{ChatID: a.chatID, Document: file, ReplyParameters: reply})
	}
	if err != nil {
		return fmt.Errorf("send %s %s: %w", art.MimeClass, art.ReferenceID, err)
	}
	return nil
}

var _ agent.ChannelAdapter = (*TelegramAdapter)(nil)
