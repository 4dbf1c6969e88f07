// Package tools holds the capabilities the agent can call during a response cycle.
package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/edgard/companionbot/internal/agent"
	"github.com/edgard/companionbot/internal/database"
	"github.com/edgard/companionbot/internal/personality"
)

// Tool names accepted in agent.tools.
const (
	SearchName        = "search"
	GenerateImageName = "generate_image"
	SelfieName        = "selfie"
	SpeakName         = "speak"
)

// ErrUnknownTool is returned by Build for a name with no constructor.
var ErrUnknownTool = errors.New("unknown tool")

// BlockSaver stores generated media. database.Store satisfies it.
type BlockSaver interface {
	SaveBlock(ctx context.Context, block *database.Block) error
}

// ImageGenerator produces image bytes from a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, avoid string) ([]byte, string, error)
}

// Searcher answers questions from the web.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Synthesizer turns text into WAV audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// PersonalitySource supplies the personality shown in selfies.
type PersonalitySource interface {
	Current(ctx context.Context) (personality.Personality, error)
}

// Deps holds the collaborators tools are built from.
type Deps struct {
	Logger        *slog.Logger
	Blocks        BlockSaver
	Images        ImageGenerator
	Searcher      Searcher
	Speech        Synthesizer
	Personalities PersonalitySource
}

type constructor func(deps Deps) (agent.Tool, error)

var constructors = map[string]constructor{
	SearchName:        newSearchTool,
	GenerateImageName: newImageTool,
	SelfieName:        newSelfieTool,
	SpeakName:         newSpeechTool,
}

// Build creates a registry holding the named tools, in the given order.
func Build(names []string, deps Deps) (*agent.Registry, error) {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	registry := agent.NewRegistry()
	for _, name := range names {
		name = strings.TrimSpace(name)
		build, ok := constructors[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
		}
		tool, err := build(deps)
		if err != nil {
			return nil, fmt.Errorf("failed to build tool %s: %w", name, err)
		}
		registry.Register(tool)
		deps.Logger.Debug("Tool registered", "tool", name)
	}
	return registry, nil
}

// blockReference is how tools hand media back to the agent.
func blockReference(id string) string {
	return "Block(" + id + ")"
}

func saveBlock(ctx context.Context, blocks BlockSaver, mimeType string, data []byte) (string, error) {
	block := &database.Block{MimeType: mimeType, Data: data}
	if err := blocks.SaveBlock(ctx, block); err != nil {
		return "", fmt.Errorf("storing generated media: %w", err)
	}
	return block.ID, nil
}
