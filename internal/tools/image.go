package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/edgard/companionbot/internal/agent"
)

const selfieAvoid = "deformed, distorted, disfigured, poorly drawn, bad anatomy, extra limbs, " +
	"missing limbs, mutated hands, disconnected limbs, blurry, watermark, text"

const selfieTemplate = "Candid selfie photo of %s, %s, %s. Upper body, looking at the viewer, " +
	"natural light, warm tones, sharp focus, shallow depth of field, 85mm, professionally color graded."

func newImageTool(deps Deps) (agent.Tool, error) {
	if deps.Images == nil || deps.Blocks == nil {
		return agent.Tool{}, errors.New("image generator and block store are required")
	}
	log := deps.Logger.With("tool", GenerateImageName)

	return agent.Tool{
		Name: GenerateImageName,
		Description: "Generates an image from a text description. " +
			"Input: a detailed description of the picture. Output: the generated image.",
		Run: func(ctx context.Context, input string) (string, error) {
			input = strings.TrimSpace(input)
			if input == "" {
				return "", errors.New("describe the image to generate")
			}
			data, mimeType, err := deps.Images.GenerateImage(ctx, input, "")
			if err != nil {
				return "", err
			}
			id, err := saveBlock(ctx, deps.Blocks, mimeType, data)
			if err != nil {
				return "", err
			}
			log.InfoContext(ctx, "Image generated", "block_id", id, "size", len(data))
			return blockReference(id), nil
		},
	}, nil
}

func newSelfieTool(deps Deps) (agent.Tool, error) {
	if deps.Images == nil || deps.Blocks == nil || deps.Personalities == nil {
		return agent.Tool{}, errors.New("image generator, block store and personality source are required")
	}
	log := deps.Logger.With("tool", SelfieName)

	return agent.Tool{
		Name: SelfieName,
		Description: "Takes a selfie of yourself. " +
			"Input: what you are doing and where you are. Output: the selfie.",
		Run: func(ctx context.Context, input string) (string, error) {
			p, err := deps.Personalities.Current(ctx)
			if err != nil {
				return "", fmt.Errorf("loading personality: %w", err)
			}
			scene := strings.TrimSpace(input)
			if scene == "" {
				scene = "smiling"
			}

			prompt := fmt.Sprintf(selfieTemplate, p.Name, p.Byline, scene)
			data, mimeType, err := deps.Images.GenerateImage(ctx, prompt, selfieAvoid)
			if err != nil {
				return "", err
			}
			id, err := saveBlock(ctx, deps.Blocks, mimeType, data)
			if err != nil {
				return "", err
			}
			log.InfoContext(ctx, "Selfie generated", "block_id", id)
			return blockReference(id), nil
		},
	}, nil
}
