package agent

import (
	"regexp"

	"github.com/google/uuid"
)

const referenceLength = 36

var (
	referenceShape = regexp.MustCompile(`[0-9A-Za-z]{8}-[0-9A-Za-z]{4}-[0-9A-Za-z]{4}-[0-9A-Za-z]{4}-[0-9A-Za-z]{12}`)
	// Word characters are Unicode letters, digits and underscore.
	leadingNonWord = regexp.MustCompile(`^[^\p{L}\p{N}_]+`)
)

// IsReferenceID reports whether s is a well-formed media reference: a
// hyphenated 8-4-4-4-12 UUID in either case.
func IsReferenceID(s string) bool {
	if len(s) != referenceLength {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// ExtractParts splits text into text and media parts, in order.
//
// Text with no valid reference comes back as a single TextPart, untouched.
// Otherwise each text span around a reference loses its leading non-word
// characters (the "Block(" / ")" debris of the prompt template) and is dropped
// when nothing is left.
func ExtractParts(text string) []ContentPart {
	if text == "" {
		return nil
	}

	var refs [][]int
	for _, loc := range referenceShape.FindAllStringIndex(text, -1) {
		if IsReferenceID(text[loc[0]:loc[1]]) {
			refs = append(refs, loc)
		}
	}
	if len(refs) == 0 {
		return []ContentPart{TextPart{Text: text}}
	}

	parts := make([]ContentPart, 0, 2*len(refs)+1)
	appendText := func(span string) {
		if span = leadingNonWord.ReplaceAllString(span, ""); span != "" {
			parts = append(parts, TextPart{Text: span})
		}
	}

	prev := 0
	for _, loc := range refs {
		appendText(text[prev:loc[0]])
		parts = append(parts, MediaPart{ReferenceID: text[loc[0]:loc[1]]})
		prev = loc[1]
	}
	appendText(text[prev:])

	return parts
}

// MediaIDs returns the distinct reference ids found in text, in first-seen order.
func MediaIDs(text string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, p := range ExtractParts(text) {
		if m, ok := p.(MediaPart); ok && !seen[m.ReferenceID] {
			seen[m.ReferenceID] = true
			ids = append(ids, m.ReferenceID)
		}
	}
	return ids
}
