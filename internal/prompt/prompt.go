// Package prompt renders the text the language model sees on every step of a
// response cycle.
package prompt

import (
	"fmt"
	"strings"

	"github.com/edgard/companionbot/internal/agent"
	"github.com/edgard/companionbot/internal/personality"
)

// ObservationMarker ends a tool step; the model must stop before writing it.
const ObservationMarker = "Observation:"

// ToolInfo is what the model is told about a tool.
type ToolInfo struct {
	Name        string
	Description string
}

// Params is everything one prompt is built from.
type Params struct {
	Personality personality.Personality
	Tools       []ToolInfo
	Format      agent.Format
	Transcript  agent.Transcript
}

// Prompt is a rendered prompt: standing instructions plus the current turn.
type Prompt struct {
	System string
	User   string
}

// ToolInfos lists the tools of a registry in order.
func ToolInfos(r *agent.Registry) []ToolInfo {
	var infos []ToolInfo
	for _, t := range r.Tools() {
		infos = append(infos, ToolInfo{Name: t.Name, Description: t.Description})
	}
	return infos
}

// Build renders the prompt for the next completion.
func Build(p Params) Prompt {
	var sys strings.Builder
	writeIdentity(&sys, p.Personality)

	switch {
	case p.Format == agent.FormatJSON:
		writeJSONInstructions(&sys, p.Tools)
	case len(p.Tools) > 0:
		writeReActInstructions(&sys, p.Tools)
	default:
		sys.WriteString(noToolsInstructions)
	}

	if len(p.Tools) > 0 {
		sys.WriteString(mediaInstructions)
	}

	return Prompt{
		System: sys.String(),
		User:   buildTurn(p),
	}
}

// StopSequences returns the sequences generation must stop at for format.
func StopSequences(format agent.Format) []string {
	if format == agent.FormatJSON {
		return nil
	}
	return []string{ObservationMarker}
}

func writeIdentity(sb *strings.Builder, p personality.Personality) {
	fmt.Fprintf(sb, "You are %s, %s.\n\n", p.Name, p.Byline)
	if len(p.Identity) > 0 {
		sb.WriteString("Who you are:\n")
		writeBullets(sb, p.Identity)
		sb.WriteString("\n")
	}
	if len(p.Behavior) > 0 {
		sb.WriteString("How you behave:\n")
		writeBullets(sb, p.Behavior)
		sb.WriteString("\n")
	}
}

func writeBullets(sb *strings.Builder, items []string) {
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
}

func writeToolIndex(sb *strings.Builder, tools []ToolInfo) {
	sb.WriteString("TOOLS:\n------\n\nYou have access to the following tools:\n")
	for _, t := range tools {
		fmt.Fprintf(sb, "%s: %s\n", t.Name, t.Description)
	}
	sb.WriteString("\n")
}

func toolNames(tools []ToolInfo) string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

func writeReActInstructions(sb *strings.Builder, tools []ToolInfo) {
	writeToolIndex(sb, tools)
	fmt.Fprintf(sb, reactInstructions, toolNames(tools))
}

func writeJSONInstructions(sb *strings.Builder, tools []ToolInfo) {
	if len(tools) > 0 {
		writeToolIndex(sb, tools)
		fmt.Fprintf(sb, jsonInstructions, toolNames(tools))
		return
	}
	sb.WriteString(jsonNoToolsInstructions)
}

func buildTurn(p Params) string {
	var sb strings.Builder

	if len(p.Transcript.History) > 0 {
		sb.WriteString("Previous conversation history:\n")
		for _, turn := range p.Transcript.History {
			speaker := "Human"
			if turn.Role == agent.RoleAssistant {
				speaker = p.Personality.Name
			}
			fmt.Fprintf(&sb, "%s: %s\n", speaker, turn.Text)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "New input: %s\n", p.Transcript.Input)

	for _, step := range p.Transcript.Steps {
		sb.WriteString(strings.TrimRight(step.Completion, "\n"))
		fmt.Fprintf(&sb, "\n%s %s\n", ObservationMarker, step.Observation.RawOutput)
		if p.Format != agent.FormatJSON {
			sb.WriteString("Thought:")
		}
	}

	return sb.String()
}

const reactInstructions = "To use a tool, please use the following format:\n\n" +
	"```\n" +
	"Thought: Do I need to use a tool? Yes\n" +
	"Action: the action to take, should be one of [%s]\n" +
	"Action Input: the input to the action\n" +
	"Observation: the result of the action\n" +
	"```\n\n" +
	"When you have a final response to say to the Human, or if you do not need to use a tool, you MUST use the format:\n\n" +
	"```\n" +
	"Thought: Do I need to use a tool? No\n" +
	"Final Answer: [your final response here]\n" +
	"```\n\n" +
	"Make sure to use all observations to come up with your final response.\n\n"

const noToolsInstructions = "You have no tools. Always reply in the format:\n\n" +
	"```\n" +
	"Thought: what you want to say\n" +
	"Final Answer: [your final response here]\n" +
	"```\n\n"

const jsonInstructions = "When responding, output a markdown code snippet containing a single JSON object:\n\n" +
	"```json\n" +
	"{\n" +
	"    \"action\": string, \\\\ one of [%s] or \"Final Answer\"\n" +
	"    \"action_input\": string \\\\ the input to the action, or your final response\n" +
	"}\n" +
	"```\n\n" +
	"Use \"Final Answer\" as the action when you are ready to respond to the Human.\n\n"

const jsonNoToolsInstructions = "Always respond with a markdown code snippet containing a single JSON object:\n\n" +
	"```json\n" +
	"{\"action\": \"Final Answer\", \"action_input\": \"your final response\"}\n" +
	"```\n\n"

const mediaInstructions = "Some tools return observations in the format of `Block(<identifier>)`, where the identifier is a UUID " +
	"such as `Block(AAAAAAAA-AAAA-AAAA-AAAA-AAAAAAAAAAAA)`. It represents an image, audio or video file the user can see. " +
	"If, and only if, a tool produced a `Block(<identifier>)` that you use in your response, copy it into your final response " +
	"exactly as `Block(<identifier>)` along with a short explanation. Never invent identifiers.\n"
