package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/edgard/companionbot/internal/agent"
)

// MessageSaver appends messages to a chat history. Store satisfies it.
type MessageSaver interface {
	SaveMessage(ctx context.Context, message *Message) error
}

// HistoryAdapter is a channel adapter that records delivered answers as
// assistant messages, so later turns can see them.
type HistoryAdapter struct {
	store   MessageSaver
	chatKey string
}

// NewHistoryAdapter creates an adapter writing to the history of chatKey.
func NewHistoryAdapter(store MessageSaver, chatKey string) *HistoryAdapter {
	return &HistoryAdapter{store: store, chatKey: chatKey}
}

func (a *HistoryAdapter) Name() string { return "history" }

// Deliver stores the parts as one message, writing artifacts as Block(<id>).
func (a *HistoryAdapter) Deliver(ctx context.Context, parts []agent.OutputPart) error {
	content := RenderHistory(parts)
	if content == "" {
		return nil
	}
	return a.store.SaveMessage(ctx, &Message{
		ChatKey: a.chatKey,
		Role:    RoleAssistant,
		Content: content,
	})
}

// RenderHistory flattens delivered parts into the text kept in history.
func RenderHistory(parts []agent.OutputPart) string {
	var pieces []string
	for _, p := range parts {
		switch v := p.(type) {
		case agent.TextPart:
			if text := agent.DisplayText(v); text != "" {
				pieces = append(pieces, text)
			}
		case agent.ResolvedArtifact:
			pieces = append(pieces, fmt.Sprintf("Block(%s)", v.ReferenceID))
		}
	}
	return strings.Join(pieces, " ")
}
