package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/edgard/companionbot/internal/agent"
)

func newSpeechTool(deps Deps) (agent.Tool, error) {
	if deps.Speech == nil || deps.Blocks == nil {
		return agent.Tool{}, errors.New("synthesizer and block store are required")
	}
	log := deps.Logger.With("tool", SpeakName)

	return agent.Tool{
		Name: SpeakName,
		Description: "Speaks text out loud as a voice message. " +
			"Input: the exact words to say. Output: the audio clip.",
		Run: func(ctx context.Context, input string) (string, error) {
			text := strings.TrimSpace(input)
			if text == "" {
				return "", errors.New("nothing to say")
			}
			wav, err := deps.Speech.Synthesize(ctx, text)
			if err != nil {
				return "", err
			}
			id, err := saveBlock(ctx, deps.Blocks, "audio/wav", wav)
			if err != nil {
				return "", err
			}
			log.InfoContext(ctx, "Speech synthesized", "block_id", id, "size", len(wav))
			return blockReference(id), nil
		},
	}, nil
}
