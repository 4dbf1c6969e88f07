package agent

// Decision is what one completion asks for: a ToolInvocation or a FinalAnswer.
type Decision interface {
	isDecision()
}

// ToolInvocation asks for ToolName to be run with ToolInput.
type ToolInvocation struct {
	ToolName  string
	ToolInput string
}

// FinalAnswer ends the cycle with the given content.
type FinalAnswer struct {
	Content []ContentPart
}

func (ToolInvocation) isDecision() {}
func (FinalAnswer) isDecision()    {}
