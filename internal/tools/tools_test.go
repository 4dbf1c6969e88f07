package tools_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/companionbot/internal/agent"
	"github.com/edgard/companionbot/internal/database"
	"github.com/edgard/companionbot/internal/personality"
	"github.com/edgard/companionbot/internal/tools"
)

type memBlocks struct {
	mu     sync.Mutex
	blocks []*database.Block
}

func (m *memBlocks) SaveBlock(_ context.Context, b *database.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = fmt.Sprintf("00000000-0000-4000-8000-%012d", len(m.blocks)+1)
	m.blocks = append(m.blocks, b)
	return nil
}

type fakeImages struct {
	prompt, avoid string
	err           error
}

func (f *fakeImages) GenerateImage(_ context.Context, prompt, avoid string) ([]byte, string, error) {
	f.prompt, f.avoid = prompt, avoid
	if f.err != nil {
		return nil, "", f.err
	}
	return []byte("png"), "image/png", nil
}

type fakeSearcher struct{ query string }

func (f *fakeSearcher) Search(_ context.Context, q string) (string, error) {
	f.query = q
	return "answer to " + q, nil
}

type fakeSpeech struct{}

func (fakeSpeech) Synthesize(_ context.Context, text string) ([]byte, error) {
	return []byte("RIFF" + text), nil
}

type fixedPersonality struct{}

func (fixedPersonality) Current(context.Context) (personality.Personality, error) {
	return personality.Personality{Name: "Nova", Byline: "a cheerful explorer"}, nil
}

func fullDeps(images *fakeImages, blocks *memBlocks, searcher *fakeSearcher) tools.Deps {
	return tools.Deps{
		Blocks:        blocks,
		Images:        images,
		Searcher:      searcher,
		Speech:        fakeSpeech{},
		Personalities: fixedPersonality{},
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	deps := fullDeps(&fakeImages{}, &memBlocks{}, &fakeSearcher{})

	reg, err := tools.Build([]string{"speak", " search ", "generate_image", "selfie"}, deps)
	require.NoError(t, err)
	assert.Equal(t, []string{"speak", "search", "generate_image", "selfie"}, reg.Names())

	_, err = tools.Build([]string{"search", "teleport"}, deps)
	assert.ErrorIs(t, err, tools.ErrUnknownTool)

	_, err = tools.Build([]string{"search"}, tools.Deps{})
	assert.Error(t, err)

	reg, err = tools.Build(nil, tools.Deps{})
	require.NoError(t, err)
	assert.Empty(t, reg.Names())
}

func TestImageTool(t *testing.T) {
	t.Parallel()

	images, blocks := &fakeImages{}, &memBlocks{}
	reg, err := tools.Build([]string{tools.GenerateImageName}, fullDeps(images, blocks, &fakeSearcher{}))
	require.NoError(t, err)

	obs, err := reg.Invoke(context.Background(), tools.GenerateImageName, "a red fox")
	require.NoError(t, err)
	require.Len(t, blocks.blocks, 1)
	id := blocks.blocks[0].ID
	assert.Equal(t, "Block("+id+")", obs.RawOutput)
	assert.Equal(t, []string{id}, obs.ProducedMedia)
	assert.Equal(t, "a red fox", images.prompt)
	assert.Empty(t, images.avoid)
	assert.Equal(t, "image/png", blocks.blocks[0].MimeType)

	_, err = reg.Invoke(context.Background(), tools.GenerateImageName, "  ")
	assert.ErrorIs(t, err, agent.ErrToolExecution)
}

func TestImageTool_GeneratorError(t *testing.T) {
	t.Parallel()

	boom := errors.New("quota")
	reg, err := tools.Build([]string{tools.GenerateImageName}, fullDeps(&fakeImages{err: boom}, &memBlocks{}, &fakeSearcher{}))
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), tools.GenerateImageName, "x")
	assert.ErrorIs(t, err, boom)

	var toolErr *agent.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tools.GenerateImageName, toolErr.Tool)
}

func TestSelfieTool(t *testing.T) {
	t.Parallel()

	images, blocks := &fakeImages{}, &memBlocks{}
	reg, err := tools.Build([]string{tools.SelfieName}, fullDeps(images, blocks, &fakeSearcher{}))
	require.NoError(t, err)

	obs, err := reg.Invoke(context.Background(), tools.SelfieName, "hiking at sunset")
	require.NoError(t, err)
	assert.Len(t, obs.ProducedMedia, 1)
	assert.True(t, strings.HasPrefix(images.prompt, "Candid selfie photo of Nova, a cheerful explorer, hiking at sunset."))
	assert.Contains(t, images.avoid, "blurry")

	_, err = reg.Invoke(context.Background(), tools.SelfieName, "")
	require.NoError(t, err)
	assert.Contains(t, images.prompt, ", smiling.")
}

func TestSearchTool(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{}
	reg, err := tools.Build([]string{tools.SearchName}, fullDeps(&fakeImages{}, &memBlocks{}, searcher))
	require.NoError(t, err)

	obs, err := reg.Invoke(context.Background(), tools.SearchName, " weather in Oslo ")
	require.NoError(t, err)
	assert.Equal(t, "weather in Oslo", searcher.query)
	assert.Equal(t, "answer to weather in Oslo", obs.RawOutput)
	assert.Empty(t, obs.ProducedMedia)
}

func TestSpeechTool(t *testing.T) {
	t.Parallel()

	blocks := &memBlocks{}
	reg, err := tools.Build([]string{tools.SpeakName}, fullDeps(&fakeImages{}, blocks, &fakeSearcher{}))
	require.NoError(t, err)

	obs, err := reg.Invoke(context.Background(), tools.SpeakName, "hello there")
	require.NoError(t, err)
	require.Len(t, blocks.blocks, 1)
	assert.Equal(t, "audio/wav", blocks.blocks[0].MimeType)
	assert.Equal(t, []byte("RIFFhello there"), blocks.blocks[0].Data)
	assert.Equal(t, []string{blocks.blocks[0].ID}, obs.ProducedMedia)
}
