package agent_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/companionbot/internal/agent"
)

const (
	goodID = "11111111-2222-4333-8444-555555555555"
	badID  = "66666666-7777-4888-9999-aaaaaaaaaaaa"

	generalErrorMsg = "something broke"
	unavailableMsg  = "media unavailable"
	emptyAnswerMsg  = "nothing to say"
)

// scriptedRuntime returns its completions in order and repeats the last one.
type scriptedRuntime struct {
	completions []string
	err         error
	calls       int
	seen        []agent.Transcript
}

func (r *scriptedRuntime) Complete(_ context.Context, t agent.Transcript) (string, error) {
	r.calls++
	r.seen = append(r.seen, t)
	if r.err != nil {
		return "", r.err
	}
	idx := min(r.calls-1, len(r.completions)-1)
	return r.completions[idx], nil
}

type fakeResolver struct {
	calls map[string]int
	fail  map[string]bool
}

func newFakeResolver(failing ...string) *fakeResolver {
	f := &fakeResolver{calls: make(map[string]int), fail: make(map[string]bool)}
	for _, id := range failing {
		f.fail[id] = true
	}
	return f
}

func (f *fakeResolver) Resolve(_ context.Context, id string) (agent.ResolvedArtifact, error) {
	f.calls[id]++
	if f.fail[id] {
		return agent.ResolvedArtifact{}, fmt.Errorf("%w: block %s missing", agent.ErrResolution, id)
	}
	return agent.ResolvedArtifact{
		ReferenceID: id,
		URL:         "https://media.example/" + id,
		MimeClass:   agent.MimeImage,
		MIMEType:    "image/png",
	}, nil
}

type recordingAdapter struct {
	name       string
	err        error
	deliveries [][]agent.OutputPart
	ctxErrs    []error
}

func (a *recordingAdapter) Name() string { return a.name }

func (a *recordingAdapter) Deliver(ctx context.Context, parts []agent.OutputPart) error {
	a.deliveries = append(a.deliveries, parts)
	a.ctxErrs = append(a.ctxErrs, ctx.Err())
	return a.err
}

func echoTool(calls *[]string) agent.Tool {
	return agent.Tool{
		Name:        "echo",
		Description: "Repeats the input",
		Run: func(_ context.Context, input string) (string, error) {
			*calls = append(*calls, input)
			return "echo: " + input, nil
		},
	}
}

func newTestReconciler(rt agent.Runtime, tools agent.ToolRegistry, res agent.Resolver, opts agent.Options) *agent.Reconciler {
	opts.Messages = agent.Messages{
		GeneralError:     generalErrorMsg,
		MediaUnavailable: unavailableMsg,
		EmptyAnswer:      emptyAnswerMsg,
	}
	return agent.NewReconciler(rt, tools, res, opts)
}

func TestReconciler_FinalAnswerDeliveredToEveryAdapter(t *testing.T) {
	t.Parallel()

	rt := &scriptedRuntime{completions: []string{"Thought: easy\nFinal Answer: Hello!"}}
	broken := &recordingAdapter{name: "broken", err: errors.New("transport down")}
	registered := &recordingAdapter{name: "registered"}
	perCall := &recordingAdapter{name: "per-call"}

	r := newTestReconciler(rt, nil, newFakeResolver(), agent.Options{
		Adapters: []agent.ChannelAdapter{broken, registered},
	})

	res, err := r.Respond(context.Background(), agent.Request{
		Input:    "hi",
		Adapters: []agent.ChannelAdapter{perCall},
	})
	require.NoError(t, err)

	want := []agent.OutputPart{agent.TextPart{Text: "Hello!"}}
	assert.Equal(t, want, res.Parts)
	assert.Equal(t, 1, res.Iterations)
	for _, a := range []*recordingAdapter{broken, registered, perCall} {
		require.Len(t, a.deliveries, 1, a.name)
		assert.Equal(t, want, a.deliveries[0], a.name)
	}
}

func TestReconciler_ToolLoop(t *testing.T) {
	t.Parallel()

	var calls []string
	rt := &scriptedRuntime{completions: []string{
		"Thought: use echo\nAction: echo\nAction Input: \"ping\"",
		"Thought: got it\nFinal Answer: pong",
	}}
	out := &recordingAdapter{name: "out"}

	r := newTestReconciler(rt, agent.NewRegistry(echoTool(&calls)), newFakeResolver(), agent.Options{})
	res, err := r.Respond(context.Background(), agent.Request{
		Input:    "say ping",
		History:  []agent.Turn{{Role: agent.RoleUser, Text: "earlier"}},
		Adapters: []agent.ChannelAdapter{out},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ping"}, calls)
	assert.Equal(t, 2, res.Iterations)
	require.Len(t, res.Transcript.Steps, 1)
	step := res.Transcript.Steps[0]
	assert.Equal(t, agent.ToolInvocation{ToolName: "echo", ToolInput: "ping"}, step.Invocation)
	assert.Equal(t, "echo: ping", step.Observation.RawOutput)

	require.Len(t, rt.seen, 2)
	assert.Empty(t, rt.seen[0].Steps)
	assert.Len(t, rt.seen[1].Steps, 1)
	assert.Equal(t, "say ping", rt.seen[1].Input)
	assert.Len(t, rt.seen[1].History, 1)

	require.Len(t, out.deliveries, 1)
	assert.Equal(t, []agent.OutputPart{agent.TextPart{Text: "pong"}}, out.deliveries[0])
}

func TestReconciler_UnknownToolTerminates(t *testing.T) {
	t.Parallel()

	var calls []string
	rt := &scriptedRuntime{completions: []string{"Action: teleport\nAction Input: mars"}}
	out := &recordingAdapter{name: "out"}

	r := newTestReconciler(rt, agent.NewRegistry(echoTool(&calls)), newFakeResolver(), agent.Options{})
	res, err := r.Respond(context.Background(), agent.Request{Input: "go", Adapters: []agent.ChannelAdapter{out}})

	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, agent.ErrToolNotFound)
	assert.Equal(t, 1, rt.calls)
	assert.Empty(t, calls)
	require.Len(t, out.deliveries, 1)
	assert.Equal(t, []agent.OutputPart{agent.TextPart{Text: generalErrorMsg}}, out.deliveries[0])
}

func TestReconciler_MaxIterationsExactBound(t *testing.T) {
	t.Parallel()

	for _, bound := range []int{1, 3, 7} {
		t.Run(fmt.Sprintf("bound_%d", bound), func(t *testing.T) {
			t.Parallel()

			var calls []string
			rt := &scriptedRuntime{completions: []string{"Action: echo\nAction Input: again"}}
			out := &recordingAdapter{name: "out"}

			r := newTestReconciler(rt, agent.NewRegistry(echoTool(&calls)), newFakeResolver(), agent.Options{MaxIterations: bound})
			_, err := r.Respond(context.Background(), agent.Request{Input: "loop", Adapters: []agent.ChannelAdapter{out}})

			assert.ErrorIs(t, err, agent.ErrMaxIterationsExceeded)
			assert.Equal(t, bound, rt.calls)
			assert.Len(t, calls, bound)
			require.Len(t, out.deliveries, 1)
		})
	}
}

func TestReconciler_DefaultMaxIterations(t *testing.T) {
	t.Parallel()

	var calls []string
	rt := &scriptedRuntime{completions: []string{"Action: echo\nAction Input: again"}}
	r := newTestReconciler(rt, agent.NewRegistry(echoTool(&calls)), nil, agent.Options{})

	_, err := r.Respond(context.Background(), agent.Request{Input: "loop"})
	assert.ErrorIs(t, err, agent.ErrMaxIterationsExceeded)
	assert.Equal(t, agent.DefaultMaxIterations, rt.calls)
}

func TestReconciler_ResolutionFailureDegradesPerPart(t *testing.T) {
	t.Parallel()

	rt := &scriptedRuntime{completions: []string{
		"Final Answer: Look at this " + goodID + " " + badID,
	}}
	out := &recordingAdapter{name: "out"}

	r := newTestReconciler(rt, nil, newFakeResolver(badID), agent.Options{})
	res, err := r.Respond(context.Background(), agent.Request{Input: "show", Adapters: []agent.ChannelAdapter{out}})
	require.NoError(t, err)

	require.Len(t, res.Parts, 3)
	assert.Equal(t, agent.TextPart{Text: "Look at this "}, res.Parts[0])
	art, ok := res.Parts[1].(agent.ResolvedArtifact)
	require.True(t, ok)
	assert.Equal(t, goodID, art.ReferenceID)
	assert.Equal(t, agent.TextPart{Text: unavailableMsg}, res.Parts[2])
	require.Len(t, out.deliveries, 1)
	assert.Equal(t, res.Parts, out.deliveries[0])
}

func TestReconciler_ResolvesEachReferenceOnce(t *testing.T) {
	t.Parallel()

	rt := &scriptedRuntime{completions: []string{
		"Final Answer: " + goodID + " again " + goodID + " and " + badID + " " + badID,
	}}
	res := newFakeResolver(badID)

	r := newTestReconciler(rt, nil, res, agent.Options{})
	result, err := r.Respond(context.Background(), agent.Request{Input: "x"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.calls[goodID])
	assert.Equal(t, 1, res.calls[badID])
	assert.Len(t, result.Parts, 6)
}

func TestReconciler_AppendsUnreferencedMedia(t *testing.T) {
	t.Parallel()

	imageTool := agent.Tool{
		Name: "draw",
		Run: func(context.Context, string) (string, error) {
			return "Block(" + goodID + ")", nil
		},
	}
	completions := []string{
		"Action: draw\nAction Input: a fox",
		"Final Answer: Here is your fox.",
	}

	t.Run("enabled", func(t *testing.T) {
		t.Parallel()
		rt := &scriptedRuntime{completions: completions}
		r := newTestReconciler(rt, agent.NewRegistry(imageTool), newFakeResolver(), agent.Options{AppendUnreferencedMedia: true})
		res, err := r.Respond(context.Background(), agent.Request{Input: "draw"})
		require.NoError(t, err)
		require.Len(t, res.Parts, 2)
		assert.Equal(t, agent.TextPart{Text: "Here is your fox."}, res.Parts[0])
		assert.IsType(t, agent.ResolvedArtifact{}, res.Parts[1])
		assert.Equal(t, []string{goodID}, res.Transcript.ProducedMedia())
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		rt := &scriptedRuntime{completions: completions}
		r := newTestReconciler(rt, agent.NewRegistry(imageTool), newFakeResolver(), agent.Options{})
		res, err := r.Respond(context.Background(), agent.Request{Input: "draw"})
		require.NoError(t, err)
		assert.Equal(t, []agent.OutputPart{agent.TextPart{Text: "Here is your fox."}}, res.Parts)
	})
}

func TestReconciler_EmptyAnswerFallback(t *testing.T) {
	t.Parallel()

	rt := &scriptedRuntime{completions: []string{"Final Answer:   "}}
	r := newTestReconciler(rt, nil, nil, agent.Options{})
	res, err := r.Respond(context.Background(), agent.Request{Input: "x"})
	require.NoError(t, err)
	assert.Equal(t, []agent.OutputPart{agent.TextPart{Text: emptyAnswerMsg}}, res.Parts)
}

func TestReconciler_UnrecoveredErrors(t *testing.T) {
	t.Parallel()

	failing := agent.Tool{
		Name: "broken",
		Run: func(context.Context, string) (string, error) {
			return "", errors.New("disk on fire")
		},
	}

	tests := []struct {
		name    string
		runtime *scriptedRuntime
		target  error
	}{
		{
			name:    "parse error",
			runtime: &scriptedRuntime{completions: []string{"I am not following the format"}},
			target:  agent.ErrUnrecognizedFormat,
		},
		{
			name:    "tool failure",
			runtime: &scriptedRuntime{completions: []string{"Action: broken\nAction Input: x"}},
			target:  agent.ErrToolExecution,
		},
		{
			name:    "runtime failure",
			runtime: &scriptedRuntime{err: errors.New("quota exceeded")},
			target:  agent.ErrRuntime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := &recordingAdapter{name: "out"}
			r := newTestReconciler(tt.runtime, agent.NewRegistry(failing), newFakeResolver(), agent.Options{})

			res, err := r.Respond(context.Background(), agent.Request{Input: "x", Adapters: []agent.ChannelAdapter{out}})
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.target)
			require.Len(t, out.deliveries, 1)
			assert.Equal(t, []agent.OutputPart{agent.TextPart{Text: generalErrorMsg}}, out.deliveries[0])
		})
	}
}

func TestReconciler_ToolErrorKeepsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("bad input")
	tool := agent.Tool{Name: "strict", Run: func(context.Context, string) (string, error) { return "", cause }}
	rt := &scriptedRuntime{completions: []string{"Action: strict\nAction Input: ?"}}

	r := newTestReconciler(rt, agent.NewRegistry(tool), nil, agent.Options{})
	_, err := r.Respond(context.Background(), agent.Request{Input: "x"})

	var te *agent.ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "strict", te.Tool)
	assert.ErrorIs(t, err, cause)
}

func TestReconciler_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rt := &scriptedRuntime{completions: []string{"Final Answer: too late"}}
	out := &recordingAdapter{name: "out"}
	r := newTestReconciler(rt, nil, nil, agent.Options{})

	_, err := r.Respond(ctx, agent.Request{Input: "x", Adapters: []agent.ChannelAdapter{out}})
	assert.ErrorIs(t, err, agent.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rt.calls)

	require.Len(t, out.deliveries, 1)
	assert.Equal(t, []agent.OutputPart{agent.TextPart{Text: generalErrorMsg}}, out.deliveries[0])
	assert.NoError(t, out.ctxErrs[0])
}

func TestReconciler_CancelledDuringTool(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	tool := agent.Tool{Name: "slow", Run: func(ctx context.Context, _ string) (string, error) {
		cancel()
		return "", ctx.Err()
	}}
	rt := &scriptedRuntime{completions: []string{"Action: slow\nAction Input: x", "Final Answer: unreachable"}}

	r := newTestReconciler(rt, agent.NewRegistry(tool), nil, agent.Options{})
	_, err := r.Respond(ctx, agent.Request{Input: "x"})
	assert.ErrorIs(t, err, agent.ErrCancelled)
	assert.Equal(t, 1, rt.calls)
}

func TestReconciler_JSONFormat(t *testing.T) {
	t.Parallel()

	var calls []string
	rt := &scriptedRuntime{completions: []string{
		`{"action": "echo", "action_input": "hey"}`,
		`{"action": "Final Answer", "action_input": "done"}`,
	}}
	r := newTestReconciler(rt, agent.NewRegistry(echoTool(&calls)), nil, agent.Options{Format: agent.FormatJSON})

	res, err := r.Respond(context.Background(), agent.Request{Input: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hey"}, calls)
	assert.Equal(t, []agent.OutputPart{agent.TextPart{Text: "done"}}, res.Parts)
}
