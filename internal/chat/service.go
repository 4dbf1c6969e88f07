// Package chat runs one conversational turn for any channel: it loads the
// chat history, records the user's message and lets the reconciler answer.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/edgard/companionbot/internal/agent"
	"github.com/edgard/companionbot/internal/database"
)

const (
	defaultMaxHistory = 20
	dbTimeout         = 5 * time.Second
)

// ErrEmptyInput is returned when there is nothing to answer.
var ErrEmptyInput = errors.New("empty input")

// Responder runs a response cycle. *agent.Reconciler satisfies it.
type Responder interface {
	Respond(ctx context.Context, req agent.Request) (*agent.Result, error)
}

// HistoryStore keeps per-chat message history. database.Store satisfies it.
type HistoryStore interface {
	SaveMessage(ctx context.Context, message *database.Message) error
	GetRecentMessages(ctx context.Context, chatKey string, limit int) ([]*database.Message, error)
	DeleteMessages(ctx context.Context, chatKey string) (int64, error)
}

// Service answers chat input on behalf of every channel.
type Service struct {
	responder  Responder
	history    HistoryStore
	maxHistory int
	timeout    time.Duration
	log        *slog.Logger
}

// NewService creates a chat service. A zero timeout disables the per-turn deadline.
func NewService(responder Responder, history HistoryStore, maxHistory int, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	return &Service{
		responder:  responder,
		history:    history,
		maxHistory: maxHistory,
		timeout:    timeout,
		log:        logger.With("component", "chat"),
	}
}

// Answer responds to input in the chat identified by chatKey. The answer is
// delivered to adapters and recorded in the chat history.
func (s *Service) Answer(ctx context.Context, chatKey, input string, adapters ...agent.ChannelAdapter) (*agent.Result, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	history := s.loadHistory(ctx, chatKey)
	s.save(ctx, &database.Message{ChatKey: chatKey, Role: database.RoleUser, Content: input})

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	all := make([]agent.ChannelAdapter, 0, len(adapters)+1)
	all = append(all, adapters...)
	all = append(all, database.NewHistoryAdapter(s.history, chatKey))

	s.log.DebugContext(ctx, "Answering", "chat_key", chatKey, "history", len(history))
	res, err := s.responder.Respond(ctx, agent.Request{
		Input:    input,
		History:  history,
		Adapters: all,
	})
	if err != nil {
		return nil, fmt.Errorf("chat %s: %w", chatKey, err)
	}
	s.log.InfoContext(ctx, "Answered", "chat_key", chatKey, "iterations", res.Iterations, "parts", len(res.Parts))
	return res, nil
}

// Reset clears the history of a chat.
func (s *Service) Reset(ctx context.Context, chatKey string) (int64, error) {
	return s.history.DeleteMessages(ctx, chatKey)
}

func (s *Service) loadHistory(ctx context.Context, chatKey string) []agent.Turn {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	msgs, err := s.history.GetRecentMessages(dbCtx, chatKey, s.maxHistory)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to retrieve message history", "error", err, "chat_key", chatKey)
		return nil
	}

	turns := make([]agent.Turn, 0, len(msgs))
	for _, m := range msgs {
		role := agent.RoleUser
		if m.Role == database.RoleAssistant {
			role = agent.RoleAssistant
		}
		turns = append(turns, agent.Turn{Role: role, Text: m.Content})
	}
	return turns
}

func (s *Service) save(ctx context.Context, msg *database.Message) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := s.history.SaveMessage(dbCtx, msg); err != nil {
		s.log.ErrorContext(ctx, "Failed to save message", "error", err, "chat_key", msg.ChatKey, "role", msg.Role)
	}
}
