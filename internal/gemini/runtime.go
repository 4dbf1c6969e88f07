package gemini

import (
	"context"
	"fmt"

	"github.com/edgard/companionbot/internal/agent"
	"github.com/edgard/companionbot/internal/personality"
	"github.com/edgard/companionbot/internal/prompt"
)

// PersonalitySource supplies the personality in effect for each completion.
// *personality.Store satisfies it.
type PersonalitySource interface {
	Current(ctx context.Context) (personality.Personality, error)
}

// Generator produces one text completion. *Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, system, user string, stop []string) (string, error)
}

// Runtime is the agent.Runtime backed by Gemini.
type Runtime struct {
	gen           Generator
	personalities PersonalitySource
	tools         []prompt.ToolInfo
	format        agent.Format
}

// NewRuntime creates a runtime that prompts gen with the given tools and format.
func NewRuntime(gen Generator, personalities PersonalitySource, tools []prompt.ToolInfo, format agent.Format) *Runtime {
	return &Runtime{gen: gen, personalities: personalities, tools: tools, format: format}
}

// Complete builds the prompt for the transcript and returns the model output.
func (r *Runtime) Complete(ctx context.Context, t agent.Transcript) (string, error) {
	p, err := r.personalities.Current(ctx)
	if err != nil {
		return "", fmt.Errorf("loading personality: %w", err)
	}

	built := prompt.Build(prompt.Params{
		Personality: p,
		Tools:       r.tools,
		Format:      r.format,
		Transcript:  t,
	})
	return r.gen.Generate(ctx, built.System, built.User, prompt.StopSequences(r.format))
}

var _ agent.Runtime = (*Runtime)(nil)
