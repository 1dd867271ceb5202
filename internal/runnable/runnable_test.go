package runnable

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/framewire/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	calls    []string
	ticks    int
	startErr error
	tickErr  error
	ticked   chan struct{}
}

func newRecorder() *recorder {
	return &recorder{ticked: make(chan struct{}, 16)}
}

func (r *recorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recorder) OnStart(context.Context) error {
	r.record("start")
	return r.startErr
}

func (r *recorder) OnTick(context.Context, time.Time) error {
	r.mu.Lock()
	r.ticks++
	err := r.tickErr
	r.mu.Unlock()
	select {
	case r.ticked <- struct{}{}:
	default:
	}
	return err
}

func (r *recorder) OnEnd(context.Context) error {
	r.record("end")
	return nil
}

func (r *recorder) OnShutdownPending(context.Context) error {
	r.record("shutdown")
	return nil
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func runAsync(ctx context.Context, r *Runner) <-chan error {
	out := make(chan error, 1)
	go func() { out <- r.Run(ctx) }()
	return out
}

func TestRunTicksUntilStopThenTearsDownInOrder(t *testing.T) {
	testlog.Start(t)
	rec := newRecorder()
	r := New(rec, WithTickInterval(5*time.Millisecond))
	errc := runAsync(context.Background(), r)

	<-rec.ticked
	<-rec.ticked
	require.True(t, r.Running())
	r.Stop()
	r.Stop()

	require.NoError(t, <-errc)
	<-r.Done()
	require.False(t, r.Running())
	require.Equal(t, []string{"start", "end", "shutdown"}, rec.snapshot())
}

func TestContextCancelStopsRun(t *testing.T) {
	testlog.Start(t)
	rec := newRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	r := New(rec, WithTickInterval(time.Hour))
	errc := runAsync(ctx, r)
	require.Eventually(t, r.Running, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-errc)
	require.Equal(t, []string{"start", "end", "shutdown"}, rec.snapshot())
}

func TestFailReturnsCauseAfterTeardown(t *testing.T) {
	testlog.Start(t)
	rec := newRecorder()
	r := New(rec, WithTickInterval(time.Hour))
	boom := errors.New("listener died")
	errc := runAsync(context.Background(), r)
	require.Eventually(t, r.Running, time.Second, time.Millisecond)
	r.Fail(boom)
	r.Fail(errors.New("second"))

	err := <-errc
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"start", "end", "shutdown"}, rec.snapshot())
}

func TestTickErrorEndsRun(t *testing.T) {
	testlog.Start(t)
	rec := newRecorder()
	boom := errors.New("tick failed")
	rec.tickErr = boom
	err := New(rec, WithTickInterval(time.Millisecond)).Run(context.Background())
	require.ErrorIs(t, err, boom)

	rec = newRecorder()
	rec.tickErr = ErrStop
	require.NoError(t, New(rec, WithTickInterval(time.Millisecond)).Run(context.Background()))
}

func TestStartFailureSkipsTeardown(t *testing.T) {
	testlog.Start(t)
	rec := newRecorder()
	rec.startErr = errors.New("bind failed")
	err := New(rec).Run(context.Background())
	require.ErrorIs(t, err, rec.startErr)
	require.Equal(t, []string{"start"}, rec.snapshot())
}

func TestRunIsSingleShot(t *testing.T) {
	testlog.Start(t)
	rec := newRecorder()
	r := New(rec, WithTickInterval(time.Hour))
	r.Stop()
	require.NoError(t, r.Run(context.Background()))
	require.True(t, r.Started())
	require.ErrorIs(t, r.Run(context.Background()), ErrAlreadyRunning)
}
