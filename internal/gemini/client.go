// Package gemini implements integration with Google's Gemini AI API.
// It backs the agent runtime and the image, search and speech tools.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/companionbot/internal/config"
)

// Models is the subset of the genai Models service used by the client.
// *genai.Models satisfies this interface.
type Models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// Client wraps the Gemini API with retries and response checks.
type Client struct {
	models        Models
	log           *slog.Logger
	contentConfig *genai.GenerateContentConfig
	modelName     string
	imageModel    string
	speechModel   string
	speechVoice   string
	maxRetries    int
	retryDelay    time.Duration
	timeout       time.Duration
}

// NewClient creates a new Gemini AI client with the provided configuration.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c := NewClientWithModels(gi.Models, cfg, log)
	c.log.Info("Gemini client initialized successfully", "model", cfg.ModelName)
	return c, nil
}

// NewClientWithModels creates a client over an existing Models implementation.
func NewClientWithModels(models Models, cfg config.GeminiConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	temperature := cfg.Temperature
	return &Client{
		models: models,
		log:    log.With("component", "gemini_client"),
		contentConfig: &genai.GenerateContentConfig{
			Temperature: &temperature,
			SafetySettings: []*genai.SafetySetting{
				{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
				{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
				{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
				{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
			},
		},
		modelName:   cfg.ModelName,
		imageModel:  cfg.ImageModelName,
		speechModel: cfg.SpeechModelName,
		speechVoice: cfg.SpeechVoice,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  time.Duration(cfg.RetryDelaySeconds) * time.Second,
		timeout:     cfg.Timeout,
	}
}

// Generate runs one text completion with the given system instruction.
// Generation halts before any of the stop sequences.
func (c *Client) Generate(ctx context.Context, system, user string, stop []string) (string, error) {
	cfg := *c.contentConfig
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	cfg.StopSequences = stop

	contents := []*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}
	resp, err := c.withRetries(ctx, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return c.models.GenerateContent(ctx, c.modelName, contents, &cfg)
	})
	if err != nil {
		return "", err
	}
	return c.extractText(ctx, "generate", resp)
}

// Search answers query using Google Search grounding.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	cfg := *c.contentConfig
	cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}

	contents := []*genai.Content{genai.NewContentFromText(query, genai.RoleUser)}
	resp, err := c.withRetries(ctx, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return c.models.GenerateContent(ctx, c.modelName, contents, &cfg)
	})
	if err != nil {
		return "", err
	}
	return c.extractText(ctx, "search", resp)
}

// GenerateImage creates one image and returns its bytes and MIME type. The
// Gemini API rejects negative prompts, so things to avoid are appended to the
// prompt text instead.
func (c *Client) GenerateImage(ctx context.Context, prompt, avoid string) ([]byte, string, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, "", errors.New("image prompt is empty")
	}
	if avoid != "" {
		prompt = prompt + "\nAvoid: " + avoid
	}

	var resp *genai.GenerateImagesResponse
	_, err := c.withRetries(ctx, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		var err error
		resp, err = c.models.GenerateImages(ctx, c.imageModel, prompt, &genai.GenerateImagesConfig{
			NumberOfImages:   1,
			IncludeRAIReason: true,
			OutputMIMEType:   "image/png",
		})
		return nil, err
	})
	if err != nil {
		return nil, "", err
	}

	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, "", errors.New("image generation returned no images")
	}
	img := resp.GeneratedImages[0]
	if img.Image == nil || len(img.Image.ImageBytes) == 0 {
		reason := "unknown"
		if img.RAIFilteredReason != "" {
			reason = img.RAIFilteredReason
		}
		c.log.WarnContext(ctx, "Image generation filtered", "reason", reason)
		return nil, "", fmt.Errorf("image generation returned no data: %s", reason)
	}

	mimeType := img.Image.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return img.Image.ImageBytes, mimeType, nil
}

// Synthesize turns text into speech and returns WAV audio.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("speech text is empty")
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.speechVoice},
			},
		},
	}
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	resp, err := c.withRetries(ctx, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return c.models.GenerateContent(ctx, c.speechModel, contents, cfg)
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return PCMToWAV(part.InlineData.Data, sampleRate(part.InlineData.MIMEType)), nil
			}
		}
	}
	return nil, errors.New("speech synthesis returned no audio")
}

func (c *Client) withRetries(ctx context.Context, call func(context.Context) (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var err error
	for i := 0; i <= c.maxRetries; i++ {
		var resp *genai.GenerateContentResponse
		resp, err = c.callWithTimeout(ctx, call)
		if err == nil {
			return resp, nil
		}

		c.log.WarnContext(ctx, "Gemini API call failed, checking for retry", "attempt", i+1, "max_retries", c.maxRetries, "error", err)

		var apiErr *genai.APIError
		if !errors.As(err, &apiErr) || (apiErr.Code != 500 && apiErr.Code != 503) {
			c.log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
			return nil, fmt.Errorf("gemini API call failed: %w", err)
		}
		if i == c.maxRetries {
			c.log.ErrorContext(ctx, "Gemini API call failed after max retries", "error", err, "code", apiErr.Code)
			return nil, fmt.Errorf("gemini API call failed after %d retries (APIError code %d): %w", c.maxRetries, apiErr.Code, err)
		}

		c.log.InfoContext(ctx, "Retrying Gemini API call", "delay", c.retryDelay, "code", apiErr.Code)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
	return nil, err
}

func (c *Client) callWithTimeout(ctx context.Context, call func(context.Context) (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	if c.timeout <= 0 {
		return call(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return call(ctx)
}

func (c *Client) extractText(ctx context.Context, op string, resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%s returned no response", op)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "operation", op, "reason", reasonMsg)
		return "", fmt.Errorf("%s blocked by safety filter: %s", op, reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "operation", op, "finish_reason", finishReason)
		return "", fmt.Errorf("%s returned no content, finish reason: %s", op, finishReason)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s returned empty text", op)
	}
	return text, nil
}
