package agent_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgard/companionbot/internal/agent"
)

func TestExtractParts(t *testing.T) {
	t.Parallel()

	const upper = "AAAAAAAA-AAAA-AAAA-AAAA-AAAAAAAAAAAA"
	const other = "123e4567-e89b-12d3-a456-426614174000"

	tests := []struct {
		name     string
		input    string
		expected []agent.ContentPart
	}{
		{
			name:     "empty",
			input:    "",
			expected: nil,
		},
		{
			name:     "no media",
			input:    "no media here",
			expected: []agent.ContentPart{agent.TextPart{Text: "no media here"}},
		},
		{
			name:     "no media keeps leading punctuation",
			input:    "...well, hello",
			expected: []agent.ContentPart{agent.TextPart{Text: "...well, hello"}},
		},
		{
			name:  "block template",
			input: "Here is Block(" + upper + ").",
			expected: []agent.ContentPart{
				agent.TextPart{Text: "Here is Block("},
				agent.MediaPart{ReferenceID: upper},
			},
		},
		{
			name:  "text after media loses leading punctuation",
			input: "Block(" + other + "), what do you think?",
			expected: []agent.ContentPart{
				agent.TextPart{Text: "Block("},
				agent.MediaPart{ReferenceID: other},
				agent.TextPart{Text: "what do you think?"},
			},
		},
		{
			name:  "back to back media",
			input: "(" + upper + ")(" + other + ")",
			expected: []agent.ContentPart{
				agent.MediaPart{ReferenceID: upper},
				agent.MediaPart{ReferenceID: other},
			},
		},
		{
			name:     "bare reference",
			input:    other,
			expected: []agent.ContentPart{agent.MediaPart{ReferenceID: other}},
		},
		{
			name:  "accented text keeps its letters",
			input: "Voilà Block(" + other + ") été magnifique",
			expected: []agent.ContentPart{
				agent.TextPart{Text: "Voilà Block("},
				agent.MediaPart{ReferenceID: other},
				agent.TextPart{Text: "été magnifique"},
			},
		},
		{
			name:  "capital umlaut after media",
			input: "Here Block(" + other + ") Über cool",
			expected: []agent.ContentPart{
				agent.TextPart{Text: "Here Block("},
				agent.MediaPart{ReferenceID: other},
				agent.TextPart{Text: "Über cool"},
			},
		},
		{
			name:  "chinese text around media",
			input: "这是照片 Block(" + other + ")。这是你的自拍",
			expected: []agent.ContentPart{
				agent.TextPart{Text: "这是照片 Block("},
				agent.MediaPart{ReferenceID: other},
				agent.TextPart{Text: "这是你的自拍"},
			},
		},
		{
			name:  "digits and underscore are word characters",
			input: other + " 42 items _ok",
			expected: []agent.ContentPart{
				agent.MediaPart{ReferenceID: other},
				agent.TextPart{Text: "42 items _ok"},
			},
		},
		{
			name:     "near miss is text",
			input:    "id zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz done",
			expected: []agent.ContentPart{agent.TextPart{Text: "id zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz done"}},
		},
		{
			name:  "near miss beside a real reference",
			input: "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz and " + other,
			expected: []agent.ContentPart{
				agent.TextPart{Text: "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz and "},
				agent.MediaPart{ReferenceID: other},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, agent.ExtractParts(tt.input))
		})
	}
}

func TestExtractParts_RenderRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"plain text",
		"Look: " + sampleID,
		"start " + sampleID,
	}
	for _, in := range inputs {
		got := agent.Render(agent.ExtractParts(in))
		assert.Equal(t, in, got)
	}

	// Punctuation and spaces at split boundaries are the only things lost.
	tests := map[string]string{
		"Here Block(" + sampleID + ") ok":             "Here Block(" + sampleID + "ok",
		"Voilà Block(" + sampleID + ") été magnifique": "Voilà Block(" + sampleID + "été magnifique",
		"Ça Block(" + sampleID + ") Über":              "Ça Block(" + sampleID + "Über",
		"这是照片 Block(" + sampleID + ")。这是你的自拍":          "这是照片 Block(" + sampleID + "这是你的自拍",
	}
	for in, want := range tests {
		assert.Equal(t, want, agent.Render(agent.ExtractParts(in)), in)
	}
}

func TestIsReferenceID(t *testing.T) {
	t.Parallel()

	assert.True(t, agent.IsReferenceID(sampleID))
	assert.True(t, agent.IsReferenceID(strings.ToUpper(sampleID)))
	assert.False(t, agent.IsReferenceID("urn:uuid:"+sampleID))
	assert.False(t, agent.IsReferenceID(strings.ReplaceAll(sampleID, "-", "")))
	assert.False(t, agent.IsReferenceID("gggggggg-gggg-gggg-gggg-gggggggggggg"))
}

func TestMediaIDs(t *testing.T) {
	t.Parallel()

	ids := agent.MediaIDs("a " + sampleID + " b " + sampleID + " c")
	assert.Equal(t, []string{sampleID}, ids)
	assert.Empty(t, agent.MediaIDs("nothing"))
}

func TestDisplayText(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Here is Block(":    "Here is",
		"Here is Block(  ":  "Here is",
		"  plain text  ":    "plain text",
		"Block(":            "",
		"Block( not at end": "Block( not at end",
	}
	for in, want := range tests {
		assert.Equal(t, want, agent.DisplayText(agent.TextPart{Text: in}), in)
	}
}
