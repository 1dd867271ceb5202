// Package runnable drives a start/tick/stop lifecycle for long-running
// components.
//
// Ownership boundary:
// - single active run per Runner
// - periodic heartbeat while running
// - ordered teardown: OnEnd, then OnShutdownPending, under a bounded context
package runnable

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/framewire/internal/logging"
)

var (
	ErrAlreadyRunning = errors.New("runnable: already running")
	// ErrStop can be returned from OnTick to end the run without an error.
	ErrStop = errors.New("runnable: stop requested")
)

// Hooks is the lifecycle a Runner drives.
type Hooks interface {
	OnStart(ctx context.Context) error
	OnTick(ctx context.Context, now time.Time) error
	OnEnd(ctx context.Context) error
	OnShutdownPending(ctx context.Context) error
}

type Option func(*Runner)

func WithTickInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.tick = d
		}
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.shutdownTimeout = d
		}
	}
}

func WithName(name string) Option {
	return func(r *Runner) {
		r.name = name
	}
}

// Runner runs Hooks once: Run returns after teardown and cannot be restarted.
type Runner struct {
	hooks           Hooks
	name            string
	tick            time.Duration
	shutdownTimeout time.Duration

	running  atomic.Bool
	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	fatal    chan error
	done     chan struct{}
}

func New(hooks Hooks, opts ...Option) *Runner {
	r := &Runner{
		hooks:           hooks,
		name:            "runnable",
		tick:            time.Second,
		shutdownTimeout: 10 * time.Second,
		stop:            make(chan struct{}),
		fatal:           make(chan error, 1),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run calls OnStart, then OnTick every tick interval until ctx is done, Stop
// or Fail is called, or a tick fails. Teardown always runs once OnStart has
// succeeded. The returned error joins the cause with any teardown errors.
func (r *Runner) Run(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	r.running.Store(true)
	defer close(r.done)
	defer r.running.Store(false)

	log := logging.For(r.name)
	if err := r.hooks.OnStart(ctx); err != nil {
		log.Error().Err(err).Msg("runnable.Runner.Run start failed")
		return fmt.Errorf("%s: start: %w", r.name, err)
	}
	log.Info().Dur("tick", r.tick).Msg("runnable.Runner.Run started")

	cause := r.loop(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.shutdownTimeout)
	defer cancel()
	endErr := r.hooks.OnEnd(shutdownCtx)
	drainErr := r.hooks.OnShutdownPending(shutdownCtx)
	if cause != nil {
		log.Error().Err(cause).Msg("runnable.Runner.Run stopped on error")
	} else {
		log.Info().Msg("runnable.Runner.Run stopped")
	}
	return errors.Join(cause, endErr, drainErr)
}

func (r *Runner) loop(ctx context.Context) error {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.stop:
			return nil
		case err := <-r.fatal:
			return err
		case now := <-ticker.C:
			if err := r.hooks.OnTick(ctx, now); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return err
			}
		}
	}
}

// Stop requests a graceful end of the run. It is safe to call more than once.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Fail ends the run with err. Only the first failure is kept.
func (r *Runner) Fail(err error) {
	if err == nil {
		r.Stop()
		return
	}
	select {
	case r.fatal <- err:
	default:
	}
}

func (r *Runner) Running() bool {
	return r.running.Load()
}

// Started reports whether Run has been called.
func (r *Runner) Started() bool {
	return r.started.Load()
}

// Done is closed when Run returns.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}
