// Package console is a terminal channel for talking to the bot locally.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/edgard/companionbot/internal/agent"
)

const (
	symbolPrompt = "❯"
	symbolMedia  = "▸"
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("35"))

	mediaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// Adapter prints delivered parts to a terminal.
type Adapter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewAdapter creates an adapter writing to out.
func NewAdapter(out io.Writer) *Adapter {
	return &Adapter{out: out}
}

func (a *Adapter) Name() string { return "console" }

// Deliver prints text as it is and each artifact as a link with its kind.
func (a *Adapter) Deliver(_ context.Context, parts []agent.OutputPart) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, p := range parts {
		var line string
		switch v := p.(type) {
		case agent.TextPart:
			text := agent.DisplayText(v)
			if text == "" {
				continue
			}
			line = botStyle.Render(text)
		case agent.ResolvedArtifact:
			line = mediaStyle.Render(fmt.Sprintf("%s [%s] %s", symbolMedia, v.MimeClass, v.URL))
		default:
			continue
		}
		if _, err := fmt.Fprintln(a.out, line); err != nil {
			return err
		}
	}
	return nil
}

// Answerer answers chat input and manages chat history. *chat.Service satisfies it.
type Answerer interface {
	Answer(ctx context.Context, chatKey, input string, adapters ...agent.ChannelAdapter) (*agent.Result, error)
	Reset(ctx context.Context, chatKey string) (int64, error)
}

// ChatKey is the history scope of the local console.
const ChatKey = "console:local"

// REPL reads lines from in and answers each one until EOF, /quit or ctx is done.
func REPL(ctx context.Context, chat Answerer, in io.Reader, out io.Writer) error {
	adapter := NewAdapter(out)
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, helpStyle.Render("Type a message. /reset clears the history, /quit exits."))
	for {
		fmt.Fprint(out, promptStyle.Render(symbolPrompt)+" ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			n, err := chat.Reset(ctx, ChatKey)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render("reset failed: "+err.Error()))
				continue
			}
			fmt.Fprintln(out, helpStyle.Render(fmt.Sprintf("Forgot %d messages.", n)))
			continue
		}

		if _, err := chat.Answer(ctx, ChatKey, line, adapter); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			// The configured error message was already printed by the adapter.
			fmt.Fprintln(out, errorStyle.Render(err.Error()))
		}
	}
}
