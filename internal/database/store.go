package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const defaultHistoryLimit = 20

// Store defines the database operations used by the bot.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveBlock stores media bytes, assigning a new UUID when block.ID is empty.
	SaveBlock(ctx context.Context, block *Block) error
	// GetBlock returns the block with the given id or ErrNotFound.
	GetBlock(ctx context.Context, id string) (*Block, error)
	// DeleteBlocksBefore removes blocks created before cutoff and returns how many were removed.
	DeleteBlocksBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// SaveMessage appends a message to a chat's history.
	SaveMessage(ctx context.Context, message *Message) error
	// GetRecentMessages returns up to limit most recent messages of a chat, oldest first.
	GetRecentMessages(ctx context.Context, chatKey string, limit int) ([]*Message, error)
	// DeleteMessages clears a chat's history and returns how many messages were removed.
	DeleteMessages(ctx context.Context, chatKey string) (int64, error)

	// GetSetting returns a stored value and whether it exists.
	GetSetting(ctx context.Context, key string) (string, bool, error)
	// SetSetting inserts or replaces a value.
	SetSetting(ctx context.Context, key, value string) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveBlock(ctx context.Context, block *Block) error {
	if block == nil {
		return fmt.Errorf("cannot save nil block")
	}
	if len(block.Data) == 0 {
		return fmt.Errorf("block must have data")
	}
	if block.MimeType == "" {
		return fmt.Errorf("block must have a mime type")
	}
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	block.ID = strings.ToLower(block.ID)
	block.CreatedAt = time.Now().UTC()

	query := `INSERT INTO blocks (id, mime_type, data, created_at) VALUES (:id, :mime_type, :data, :created_at);`
	if _, err := s.db.NamedExecContext(ctx, query, block); err != nil {
		s.logger.ErrorContext(ctx, "Error saving block", "block_id", block.ID, "error", err)
		return fmt.Errorf("failed to save block %s: %w", block.ID, err)
	}

	s.logger.DebugContext(ctx, "Block saved", "block_id", block.ID, "mime_type", block.MimeType, "size", len(block.Data))
	return nil
}

func (s *sqlxStore) GetBlock(ctx context.Context, id string) (*Block, error) {
	var block Block
	err := s.db.GetContext(ctx, &block,
		`SELECT id, mime_type, data, created_at FROM blocks WHERE id = ?;`, strings.ToLower(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("block %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get block %s: %w", id, err)
	}
	return &block, nil
}

func (s *sqlxStore) DeleteBlocksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blocks WHERE created_at < ?;`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old blocks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted blocks: %w", err)
	}
	return n, nil
}

func (s *sqlxStore) SaveMessage(ctx context.Context, message *Message) error {
	if message == nil {
		return fmt.Errorf("cannot save nil message")
	}
	if message.ChatKey == "" {
		return fmt.Errorf("message must have a chat key")
	}
	if message.Role != RoleUser && message.Role != RoleAssistant {
		return fmt.Errorf("invalid message role %q", message.Role)
	}
	if message.Content == "" {
		return fmt.Errorf("message must have non-empty content")
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO messages (chat_key, role, content, created_at)
        VALUES (:chat_key, :role, :content, :created_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, message)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving message", "chat_key", message.ChatKey, "error", err)
		return fmt.Errorf("failed to save message (chat %s): %w", message.ChatKey, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted message id: %w", err)
	}
	message.ID = id
	return nil
}

func (s *sqlxStore) GetRecentMessages(ctx context.Context, chatKey string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var messages []*Message
	query := `
        SELECT id, chat_key, role, content, created_at
        FROM messages
        WHERE chat_key = ?
        ORDER BY id DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &messages, query, chatKey, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent messages", "chat_key", chatKey, "error", err)
		return nil, fmt.Errorf("failed to get messages for chat %s: %w", chatKey, err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *sqlxStore) DeleteMessages(ctx context.Context, chatKey string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE chat_key = ?;`, chatKey)
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages for chat %s: %w", chatKey, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted messages: %w", err)
	}
	s.logger.InfoContext(ctx, "Chat history deleted", "chat_key", chatKey, "count", n)
	return n, nil
}

func (s *sqlxStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = ?;`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, true, nil
}

func (s *sqlxStore) SetSetting(ctx context.Context, key, value string) error {
	query := `
        INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;
    `
	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// RunSQLMaintenance reclaims free pages and refreshes query planner statistics.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.WarnContext(ctx, "PRAGMA optimize failed", "error", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed successfully")
	return nil
}
