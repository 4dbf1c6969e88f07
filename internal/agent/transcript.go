package agent

// Role identifies who said a Turn of the chat history.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the prior conversation fed to the runtime.
type Turn struct {
	Role Role
	Text string
}

// ToolObservation is what one tool call returned.
type ToolObservation struct {
	ToolName  string
	RawOutput string
	// ProducedMedia holds the distinct reference ids found in RawOutput, in
	// first-seen order.
	ProducedMedia []string
}

// NewObservation builds a ToolObservation, collecting the media the output refers to.
func NewObservation(toolName, output string) ToolObservation {
	return ToolObservation{
		ToolName:      toolName,
		RawOutput:     output,
		ProducedMedia: MediaIDs(output),
	}
}

// Step is one completed tool round: the completion that asked for it, the
// parsed invocation and what the tool returned.
type Step struct {
	Completion  string
	Invocation  ToolInvocation
	Observation ToolObservation
}

// Transcript is everything the runtime needs to produce the next completion.
type Transcript struct {
	Input   string
	History []Turn
	Steps   []Step
}

// ProducedMedia returns the media ids produced by all tool calls so far, de-duplicated.
func (t Transcript) ProducedMedia() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, s := range t.Steps {
		for _, id := range s.Observation.ProducedMedia {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
