// Package media turns stored blocks into URLs that chat channels can share.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/edgard/companionbot/internal/agent"
	"github.com/edgard/companionbot/internal/database"
)

// BlockSource loads stored media by id. database.Store satisfies it.
type BlockSource interface {
	GetBlock(ctx context.Context, id string) (*database.Block, error)
}

// Publisher makes a block reachable and returns its URL.
type Publisher interface {
	Publish(ctx context.Context, block *database.Block) (string, error)
}

// Resolver implements agent.Resolver on top of the block store.
type Resolver struct {
	blocks    BlockSource
	publisher Publisher
	logger    *slog.Logger
}

// NewResolver creates a Resolver reading from blocks and publishing with publisher.
func NewResolver(blocks BlockSource, publisher Publisher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{
		blocks:    blocks,
		publisher: publisher,
		logger:    logger.With("component", "media_resolver"),
	}
}

// Resolve loads the block behind id, publishes it and classifies its type.
// Failures wrap agent.ErrResolution.
func (r *Resolver) Resolve(ctx context.Context, id string) (agent.ResolvedArtifact, error) {
	block, err := r.blocks.GetBlock(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return agent.ResolvedArtifact{}, fmt.Errorf("%w: no block with id %s", agent.ErrResolution, id)
	}
	if err != nil {
		return agent.ResolvedArtifact{}, fmt.Errorf("%w: loading block %s: %w", agent.ErrResolution, id, err)
	}

	url, err := r.publisher.Publish(ctx, block)
	if err != nil {
		return agent.ResolvedArtifact{}, fmt.Errorf("%w: publishing block %s: %w", agent.ErrResolution, id, err)
	}

	r.logger.DebugContext(ctx, "Media resolved", "reference_id", block.ID, "mime_type", block.MimeType)
	return agent.ResolvedArtifact{
		ReferenceID: block.ID,
		URL:         url,
		MimeClass:   agent.ClassifyMIME(block.MimeType),
		MIMEType:    block.MimeType,
	}, nil
}

var _ agent.Resolver = (*Resolver)(nil)
