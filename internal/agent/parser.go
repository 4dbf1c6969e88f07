package agent

import (
	"regexp"
	"strings"
)

const (
	finalAnswerMarker = "Final Answer:"

	hintWithTools    = "expected \"Final Answer: <text>\" or \"Action: <tool>\" followed by \"Action Input: <input>\""
	hintWithoutTools = "expected \"Final Answer: <text>\"; no tools are available"
)

var (
	actionPattern   = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)[\s]*Action\s*\d*\s*Input\s*\d*\s*:[\s]*(.*)`)
	chatFinishRegex = regexp.MustCompile(`(?m)^[ \t]*AI:`)
)

// ParseCompletion classifies one completion into a Decision.
//
// "Final Answer:" is checked first and wins over any action in the same text.
// A line starting with "AI:" is the chat prompt's finish marker and is treated
// the same way. hasTools only changes the hint carried by a *ParseError.
func ParseCompletion(text string, hasTools bool) (Decision, error) {
	if idx := strings.LastIndex(text, finalAnswerMarker); idx >= 0 {
		return finalAnswer(text[idx+len(finalAnswerMarker):]), nil
	}

	if locs := chatFinishRegex.FindAllStringIndex(text, -1); len(locs) > 0 {
		last := locs[len(locs)-1]
		return finalAnswer(text[last[1]:]), nil
	}

	if m := actionPattern.FindStringSubmatch(text); m != nil {
		return ToolInvocation{
			ToolName:  strings.TrimSpace(m[1]),
			ToolInput: unquote(strings.TrimSpace(m[2])),
		}, nil
	}

	return nil, newParseError(text, hasTools)
}

func finalAnswer(raw string) FinalAnswer {
	return FinalAnswer{Content: ExtractParts(strings.TrimSpace(raw))}
}

func newParseError(text string, hasTools bool) *ParseError {
	hint := hintWithoutTools
	if hasTools {
		hint = hintWithTools
	}
	return &ParseError{Reason: UnrecognizedFormat, Text: text, Hint: hint}
}

// unquote removes one layer of double quotes when the value is wrapped in them.
func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}
