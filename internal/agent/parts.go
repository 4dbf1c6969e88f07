// Package agent turns raw agent completions into delivered chat responses.
//
// A response cycle asks a Runtime for completions, classifies each one with
// ParseCompletion, runs the requested tools and, once a final answer arrives,
// resolves the media references embedded in it before handing the result to
// every ChannelAdapter.
package agent

import (
	"strings"
	"unicode"
)

// ContentPart is one ordered piece of a final answer: a TextPart or a MediaPart.
type ContentPart interface {
	isContentPart()
}

// OutputPart is one ordered piece of a delivery: a TextPart or a ResolvedArtifact.
type OutputPart interface {
	isOutputPart()
}

// TextPart is plain prose.
type TextPart struct {
	Text string
}

// MediaPart is an opaque media reference found in the agent's text.
type MediaPart struct {
	ReferenceID string
}

func (TextPart) isContentPart()  {}
func (MediaPart) isContentPart() {}
func (TextPart) isOutputPart()   {}

// MimeClass is the coarse kind of a resolved artifact, used by adapters to pick
// how to send it.
type MimeClass string

const (
	MimeText  MimeClass = "text"
	MimeImage MimeClass = "image"
	MimeAudio MimeClass = "audio"
	MimeVideo MimeClass = "video"
	MimeOther MimeClass = "other"
)

// ClassifyMIME maps a MIME type such as "image/png" to its MimeClass.
func ClassifyMIME(mimeType string) MimeClass {
	major, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(mimeType)), "/")
	switch major {
	case "text":
		return MimeText
	case "image":
		return MimeImage
	case "audio":
		return MimeAudio
	case "video":
		return MimeVideo
	default:
		return MimeOther
	}
}

// ResolvedArtifact is a media reference turned into something a channel can share.
type ResolvedArtifact struct {
	ReferenceID string
	URL         string
	MimeClass   MimeClass
	MIMEType    string
}

func (ResolvedArtifact) isOutputPart() {}

// Render concatenates parts back into a single string, writing media parts as
// their bare identifier.
func Render(parts []ContentPart) string {
	var sb strings.Builder
	for _, p := range parts {
		switch v := p.(type) {
		case TextPart:
			sb.WriteString(v.Text)
		case MediaPart:
			sb.WriteString(v.ReferenceID)
		}
	}
	return sb.String()
}

// mediaMarker opens the Block(<identifier>) wrapper the model is told to use.
const mediaMarker = "Block("

// DisplayText returns the text of t as a user should read it, without the
// trailing "Block(" left before a media reference.
func DisplayText(t TextPart) string {
	text := strings.TrimRightFunc(t.Text, unicode.IsSpace)
	text = strings.TrimSuffix(text, mediaMarker)
	return strings.TrimSpace(text)
}
