package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/companionbot/internal/bot/tasks"
	"github.com/edgard/companionbot/internal/config"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type blockingPoller struct{ started atomic.Bool }

func (p *blockingPoller) Start(ctx context.Context) {
	p.started.Store(true)
	<-ctx.Done()
}

type returningPoller struct{}

func (returningPoller) Start(context.Context) {}

type fakeServer struct{ err error }

func (s fakeServer) Run(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return nil
}

type fakeScheduler struct {
	started, stopped atomic.Bool
	startErr         error
}

func (s *fakeScheduler) Start() error {
	s.started.Store(true)
	return s.startErr
}

func (s *fakeScheduler) Stop() error {
	s.stopped.Store(true)
	return nil
}

func TestBot_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	poller := &blockingPoller{}
	sched := &fakeScheduler{}
	b := NewBot(discard, poller, fakeServer{}, sched)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool { return poller.started.Load() && sched.started.Load() }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.True(t, sched.stopped.Load())
}

func TestBot_DisabledChannels(t *testing.T) {
	t.Parallel()

	sched := &fakeScheduler{}
	b := NewBot(discard, nil, nil, sched)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, b.Run(ctx))
	assert.True(t, sched.stopped.Load())
}

func TestBot_ComponentFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("address already in use")
	err := NewBot(discard, nil, fakeServer{err: boom}, &fakeScheduler{}).Run(context.Background())
	assert.ErrorIs(t, err, boom)

	err = NewBot(discard, returningPoller{}, nil, nil).Run(context.Background())
	assert.ErrorContains(t, err, "stopped unexpectedly")

	schedErr := errors.New("already running")
	err = NewBot(discard, nil, nil, &fakeScheduler{startErr: schedErr}).Run(context.Background())
	assert.ErrorIs(t, err, schedErr)
}

func TestScheduler_StartRunsEnabledTasks(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	taskMap := map[string]tasks.ScheduledTaskFunc{
		"every_second": func(context.Context) error {
			runs.Add(1)
			return nil
		},
		"disabled": func(context.Context) error {
			t.Error("disabled task ran")
			return nil
		},
		"bad_schedule": func(context.Context) error { return nil },
	}
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"every_second": {Enabled: true, Schedule: "* * * * * *"},
		"disabled":     {Enabled: false, Schedule: "* * * * * *"},
		"bad_schedule": {Enabled: true, Schedule: "not a cron"},
		"unregistered": {Enabled: true, Schedule: "* * * * * *"},
	}}

	s, err := NewScheduler(discard, cfg, taskMap)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
	assert.Equal(t, []string{"every_second"}, s.Jobs())

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	require.NoError(t, s.Stop())
	assert.NoError(t, s.Stop())
}

func TestScheduler_NoTasks(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	assert.Empty(t, s.Jobs())
	require.NoError(t, s.Stop())
}
