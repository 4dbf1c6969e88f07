package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// DefaultMaxIterations bounds the completions requested in one response cycle.
const DefaultMaxIterations = 15

const errorDeliveryTimeout = 10 * time.Second

// Format selects how completions are written by the runtime.
type Format string

const (
	FormatReAct Format = "react"
	FormatJSON  Format = "json"
)

// Runtime produces the next completion for a transcript.
type Runtime interface {
	Complete(ctx context.Context, t Transcript) (string, error)
}

// ToolRegistry looks up and runs tools by name.
type ToolRegistry interface {
	Names() []string
	Invoke(ctx context.Context, name, input string) (ToolObservation, error)
}

// Resolver turns a media reference into a shareable artifact. Failures should
// wrap ErrResolution.
type Resolver interface {
	Resolve(ctx context.Context, referenceID string) (ResolvedArtifact, error)
}

// ChannelAdapter delivers a response to one transport.
type ChannelAdapter interface {
	Name() string
	Deliver(ctx context.Context, parts []OutputPart) error
}

// Messages are the user-facing texts the reconciler falls back to.
type Messages struct {
	GeneralError     string
	MediaUnavailable string
	EmptyAnswer      string
}

// Options configure a Reconciler. Zero values get defaults.
type Options struct {
	MaxIterations int
	Format        Format
	Messages      Messages
	// AppendUnreferencedMedia delivers media produced by tools even when the
	// final answer does not mention it.
	AppendUnreferencedMedia bool
	// Adapters receive every response, before any per-request adapters.
	Adapters []ChannelAdapter
	Logger   *slog.Logger
}

// Request is one user input to answer.
type Request struct {
	Input    string
	History  []Turn
	Adapters []ChannelAdapter
}

// Result is a delivered response.
type Result struct {
	Parts      []OutputPart
	Transcript Transcript
	Iterations int
}

// Reconciler drives response cycles from the runtime to the channel adapters.
// It holds no per-cycle state and is safe for concurrent use.
type Reconciler struct {
	runtime  Runtime
	tools    ToolRegistry
	resolver Resolver
	opts     Options
	logger   *slog.Logger
}

// NewReconciler creates a Reconciler. tools may be nil when no tools are available.
func NewReconciler(runtime Runtime, tools ToolRegistry, resolver Resolver, opts Options) *Reconciler {
	if tools == nil {
		tools = NewRegistry()
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Format == "" {
		opts.Format = FormatReAct
	}
	if opts.Messages.GeneralError == "" {
		opts.Messages.GeneralError = "Sorry, something went wrong while answering. Please try again."
	}
	if opts.Messages.MediaUnavailable == "" {
		opts.Messages.MediaUnavailable = "[media could not be loaded]"
	}
	if opts.Messages.EmptyAnswer == "" {
		opts.Messages.EmptyAnswer = "I have nothing to add."
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Reconciler{
		runtime:  runtime,
		tools:    tools,
		resolver: resolver,
		opts:     opts,
		logger:   log.With("component", "reconciler"),
	}
}

// Respond runs one response cycle for req.
//
// On success the assembled parts have been handed to every adapter. On failure
// the adapters receive a single error message and the error is returned; it
// matches one of ErrUnrecognizedFormat, ErrToolNotFound, ErrToolExecution,
// ErrMaxIterationsExceeded, ErrCancelled or ErrRuntime.
func (r *Reconciler) Respond(ctx context.Context, req Request) (*Result, error) {
	adapters := append(slices.Clone(r.opts.Adapters), req.Adapters...)
	transcript := Transcript{Input: req.Input, History: req.History}

	names := r.tools.Names()
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}

	for iter := 1; iter <= r.opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return r.fail(ctx, adapters, cancelled(err))
		}

		completion, err := r.runtime.Complete(ctx, transcript)
		if err != nil {
			if ctx.Err() != nil {
				return r.fail(ctx, adapters, cancelled(ctx.Err()))
			}
			return r.fail(ctx, adapters, fmt.Errorf("%w: %w", ErrRuntime, err))
		}

		decision, err := r.parse(completion, len(names) > 0)
		if err != nil {
			return r.fail(ctx, adapters, err)
		}

		switch d := decision.(type) {
		case FinalAnswer:
			parts, err := r.assemble(ctx, d.Content, transcript)
			if err != nil {
				return r.fail(ctx, adapters, err)
			}
			r.deliver(ctx, adapters, parts)
			r.logger.DebugContext(ctx, "Response delivered", "iterations", iter, "parts", len(parts))
			return &Result{Parts: parts, Transcript: transcript, Iterations: iter}, nil

		case ToolInvocation:
			if !known[d.ToolName] {
				return r.fail(ctx, adapters, fmt.Errorf("%w: %s", ErrToolNotFound, d.ToolName))
			}
			if err := ctx.Err(); err != nil {
				return r.fail(ctx, adapters, cancelled(err))
			}

			r.logger.DebugContext(ctx, "Invoking tool", "tool", d.ToolName, "iteration", iter)
			obs, err := r.tools.Invoke(ctx, d.ToolName, d.ToolInput)
			if err != nil {
				if ctx.Err() != nil {
					return r.fail(ctx, adapters, cancelled(ctx.Err()))
				}
				return r.fail(ctx, adapters, toolFailure(d.ToolName, err))
			}
			transcript.Steps = append(transcript.Steps, Step{
				Completion:  completion,
				Invocation:  d,
				Observation: obs,
			})
		}
	}

	return r.fail(ctx, adapters, fmt.Errorf("%w: no final answer after %d completions",
		ErrMaxIterationsExceeded, r.opts.MaxIterations))
}

func (r *Reconciler) parse(completion string, hasTools bool) (Decision, error) {
	if r.opts.Format == FormatJSON {
		return ParseJSONCompletion(completion, hasTools)
	}
	return ParseCompletion(completion, hasTools)
}

// assemble resolves every media part. Resolution failures become placeholder
// text; only cancellation aborts.
func (r *Reconciler) assemble(ctx context.Context, content []ContentPart, t Transcript) ([]OutputPart, error) {
	memo := make(map[string]OutputPart)
	referenced := make(map[string]bool)
	out := make([]OutputPart, 0, len(content))

	for _, p := range content {
		switch v := p.(type) {
		case TextPart:
			out = append(out, v)
		case MediaPart:
			referenced[strings.ToLower(v.ReferenceID)] = true
			part, err := r.resolve(ctx, v.ReferenceID, memo)
			if err != nil {
				return nil, err
			}
			out = append(out, part)
		}
	}

	if r.opts.AppendUnreferencedMedia {
		for _, id := range t.ProducedMedia() {
			if referenced[strings.ToLower(id)] {
				continue
			}
			part, err := r.resolve(ctx, id, memo)
			if err != nil {
				return nil, err
			}
			out = append(out, part)
		}
	}

	if len(out) == 0 {
		out = append(out, TextPart{Text: r.opts.Messages.EmptyAnswer})
	}
	return out, nil
}

func (r *Reconciler) resolve(ctx context.Context, id string, memo map[string]OutputPart) (OutputPart, error) {
	if part, ok := memo[id]; ok {
		return part, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	var part OutputPart
	if r.resolver == nil {
		r.logger.WarnContext(ctx, "No resolver configured, dropping media", "reference_id", id)
		part = TextPart{Text: r.opts.Messages.MediaUnavailable}
	} else if art, err := r.resolver.Resolve(ctx, id); err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx.Err())
		}
		r.logger.WarnContext(ctx, "Failed to resolve media", "error", err, "reference_id", id)
		part = TextPart{Text: r.opts.Messages.MediaUnavailable}
	} else {
		part = art
	}

	memo[id] = part
	return part, nil
}

func (r *Reconciler) deliver(ctx context.Context, adapters []ChannelAdapter, parts []OutputPart) {
	for _, a := range adapters {
		if err := a.Deliver(ctx, parts); err != nil {
			r.logger.WarnContext(ctx, "Channel delivery failed", "error", err, "adapter", a.Name())
		}
	}
}

// fail reports err through the adapters and returns it. The report uses a
// context detached from cancellation so a cancelled cycle still says so.
func (r *Reconciler) fail(ctx context.Context, adapters []ChannelAdapter, err error) (*Result, error) {
	if errors.Is(err, ErrCancelled) {
		r.logger.InfoContext(ctx, "Response cycle cancelled", "error", err)
	} else {
		r.logger.ErrorContext(ctx, "Response cycle failed", "error", err)
	}

	deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), errorDeliveryTimeout)
	defer cancel()
	r.deliver(deliverCtx, adapters, []OutputPart{TextPart{Text: r.opts.Messages.GeneralError}})

	return nil, err
}

func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

func toolFailure(name string, err error) error {
	if errors.Is(err, ErrToolNotFound) || errors.Is(err, ErrToolExecution) {
		return err
	}
	return &ToolError{Tool: name, Err: err}
}
