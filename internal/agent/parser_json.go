package agent

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// jsonDecision is the conversational format: {"action": ..., "action_input": ...}.
type jsonDecision struct {
	Action      string          `json:"action"`
	ActionInput json.RawMessage `json:"action_input"`
}

// ParseJSONCompletion classifies a completion written in the JSON chat format.
// An optional leading "AI:" and markdown code fences are ignored, and malformed
// JSON is repaired before giving up. An action named "Final Answer" ends the cycle.
func ParseJSONCompletion(text string, hasTools bool) (Decision, error) {
	body := strings.TrimSpace(text)
	body = strings.TrimSpace(strings.TrimPrefix(body, "AI:"))
	body = stripFences(body)

	var d jsonDecision
	if err := unmarshalJSON([]byte(body), &d); err != nil || d.Action == "" {
		return nil, newParseError(text, hasTools)
	}

	input := rawInput(d.ActionInput)
	if strings.TrimSpace(d.Action) == "Final Answer" {
		return finalAnswer(input), nil
	}
	return ToolInvocation{ToolName: strings.TrimSpace(d.Action), ToolInput: strings.TrimSpace(input)}, nil
}

func unmarshalJSON(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		fixed, err := jsonrepair.JSONRepair(string(data))
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}

// rawInput returns a JSON string value unquoted and any other value as JSON text.
func rawInput(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line, e.g. "json"
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
