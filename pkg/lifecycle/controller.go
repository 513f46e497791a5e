// Package lifecycle guards the shared page memory for the duration of a run.
//
// A Controller is installed as the process' SIGINT/SIGTERM handler before any
// work starts. On a signal, or when the run aborts after the worker was
// launched, it cancels the run context, kills the worker, waits for an
// in-flight save to return and releases the page memory exactly once. Done is
// closed when that teardown has finished. On the success path Complete
// performs the optional save and cleanup in order.
//
// After a signal the run's own goroutine is expected to wait on Done, return
// and exit the process. The controller exits by itself only if the
// controller is not stopped within the exit grace period.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aretw0/shastarun/internal/logging"
	"github.com/aretw0/shastarun/pkg/domain"
	"github.com/aretw0/shastarun/pkg/ports"
)

// DefaultExitGrace is how long the controller waits, after an interrupt
// teardown, for the run to stop it before exiting the process itself.
const DefaultExitGrace = 10 * time.Second

// installed ensures a single controller owns signal handling in this process.
var installed atomic.Bool

// Reporter receives user-facing progress for long teardown steps.
type Reporter interface {
	Begin(msg string)
	End(err error)
}

type nopReporter struct{}

func (nopReporter) Begin(string) {}
func (nopReporter) End(error)    {}

// Outcome reports which success-path steps were carried out.
type Outcome struct {
	Saved   bool
	Cleaned bool
}

// Controller owns the run context and the page-memory teardown.
type Controller struct {
	mu     sync.Mutex
	state  domain.RunState
	cause  error
	ctx    context.Context
	cancel context.CancelFunc

	sigCh    chan os.Signal
	stopCh   chan struct{}
	stopOnce sync.Once
	signals  []os.Signal

	terminator ports.Terminator
	persister  ports.Persister
	cleaner    ports.Cleaner
	reporter   Reporter
	exit       func(code int)
	exitGrace  time.Duration
	logger     *slog.Logger

	hooks       []func()
	done        chan struct{}
	persisting  sync.WaitGroup
	cleanupOnce sync.Once
	cleanupErr  error
}

// Option configures a Controller.
type Option func(*Controller)

// WithTerminator sets what is killed on interrupt, normally the process supervisor.
func WithTerminator(t ports.Terminator) Option {
	return func(c *Controller) {
		c.terminator = t
	}
}

// WithPersister sets the save step.
func WithPersister(p ports.Persister) Option {
	return func(c *Controller) {
		c.persister = p
	}
}

// WithCleaner sets the teardown step.
func WithCleaner(cl ports.Cleaner) Option {
	return func(c *Controller) {
		c.cleaner = cl
	}
}

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) Option {
	return func(c *Controller) {
		c.reporter = r
	}
}

// WithExit replaces os.Exit, which is called after teardown on a signal
// when the controller is not stopped within the exit grace period.
func WithExit(exit func(code int)) Option {
	return func(c *Controller) {
		c.exit = exit
	}
}

// WithExitGrace replaces DefaultExitGrace.
func WithExitGrace(d time.Duration) Option {
	return func(c *Controller) {
		c.exitGrace = d
	}
}

// WithSignals replaces the intercepted signals (SIGINT and SIGTERM by default).
func WithSignals(sigs ...os.Signal) Option {
	return func(c *Controller) {
		c.signals = sigs
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// New creates an idle controller whose run context derives from parent.
func New(parent context.Context, opts ...Option) *Controller {
	c := &Controller{
		state:     domain.StateIdle,
		sigCh:     make(chan os.Signal, 1),
		stopCh:    make(chan struct{}),
		signals:   []os.Signal{os.Interrupt, syscall.SIGTERM},
		reporter:  nopReporter{},
		exit:      os.Exit,
		exitGrace: DefaultExitGrace,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger)
	c.ctx, c.cancel = context.WithCancel(parent)
	return c
}

// Install intercepts termination signals and moves the controller to Running.
// Only one controller may be installed at a time.
func (c *Controller) Install() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != domain.StateIdle {
		return fmt.Errorf("controller is %s, not idle", c.state)
	}
	if !installed.CompareAndSwap(false, true) {
		return domain.ErrAlreadyInstalled
	}

	signal.Notify(c.sigCh, c.signals...)
	c.state = domain.StateRunning
	go c.watch()
	return nil
}

func (c *Controller) watch() {
	select {
	case sig := <-c.sigCh:
		c.logger.Warn("termination signal received", "signal", sig.String())
		if c.interrupt(fmt.Errorf("%w by %s", domain.ErrInterrupted, sig)) {
			select {
			case <-c.stopCh:
				return
			case <-time.After(c.exitGrace):
			}
			c.logger.Warn("run did not stop after teardown, exiting", "grace", c.exitGrace)
			c.exit(domain.ExitInterrupted)
			return
		}
		c.logger.Warn("signal ignored, run is already finishing", "signal", sig.String())
	case <-c.stopCh:
	}
}

// Done is closed once an interrupt teardown has finished: the worker is
// killed, any save has returned, the page memory is released and the
// OnInterrupt hooks have run. It is never closed on the success path.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// OnInterrupt registers fn to run at the end of an interrupt teardown, after
// cleanup and before Done is closed. Hooks must be safe to call again from
// the run's own goroutine.
func (c *Controller) OnInterrupt(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// Interrupted reports whether a signal, as opposed to Abort, tore the run down.
func (c *Controller) Interrupted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == domain.StateInterrupted && errors.Is(c.cause, domain.ErrInterrupted)
}

// Context is cancelled when the run is interrupted or the controller stops.
func (c *Controller) Context() context.Context {
	return c.ctx
}

// State returns the current lifecycle phase.
func (c *Controller) State() domain.RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cause returns the reason for an interruption, or nil.
func (c *Controller) Cause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cause
}

// Abort tears the run down after an unrecoverable failure or panic. It
// returns false if the run was not running, in which case nothing is done.
func (c *Controller) Abort(cause error) bool {
	if cause == nil {
		cause = domain.ErrInterrupted
	}
	return c.interrupt(cause)
}

// interrupt performs the teardown sequence once. Concurrent callers and later
// calls return false.
func (c *Controller) interrupt(cause error) bool {
	c.mu.Lock()
	if c.state != domain.StateRunning {
		c.mu.Unlock()
		return false
	}
	c.state = domain.StateInterrupted
	c.cause = cause
	c.cancel()
	hooks := append([]func(){}, c.hooks...)
	c.mu.Unlock()
	defer close(c.done)

	if c.terminator != nil {
		if err := c.terminator.Terminate(); err != nil {
			c.logger.Error("failed to terminate worker", "error", err)
		}
	}

	// A save observes the cancelled context and returns; only then is the
	// memory it reads released.
	c.persisting.Wait()

	if err := c.cleanup(context.Background()); err != nil {
		c.logger.Error("page memory cleanup after interrupt failed", "error", err)
	}

	for _, fn := range hooks {
		fn()
	}
	return true
}

// Complete runs the success path: save, if requested, then cleanup, if
// requested. Cleanup runs even when the save failed; the save error is
// returned. If the run is interrupted before or during the save, it returns
// domain.ErrInterrupted and leaves teardown to the interrupt.
func (c *Controller) Complete(runDir string, save, cleanup bool) (Outcome, error) {
	var out Outcome

	c.mu.Lock()
	if c.state != domain.StateRunning {
		state := c.state
		c.mu.Unlock()
		if state == domain.StateInterrupted {
			return out, domain.ErrInterrupted
		}
		return out, fmt.Errorf("controller is %s, not running", state)
	}
	if save {
		c.persisting.Add(1)
	}
	c.mu.Unlock()

	var saveErr error
	if save {
		saveErr = c.persist(runDir)
		c.persisting.Done()
		if c.ctx.Err() != nil {
			return out, domain.ErrInterrupted
		}
		out.Saved = saveErr == nil
	}

	c.mu.Lock()
	if c.state != domain.StateRunning {
		c.mu.Unlock()
		return out, domain.ErrInterrupted
	}
	c.state = domain.StateCompleted
	c.mu.Unlock()

	var cleanErr error
	if cleanup {
		cleanErr = c.cleanup(c.ctx)
		out.Cleaned = cleanErr == nil
	} else {
		c.logger.Info("page memory left in place")
	}

	return out, errors.Join(saveErr, cleanErr)
}

func (c *Controller) persist(runDir string) error {
	if c.persister == nil {
		return fmt.Errorf("no persister configured")
	}
	c.reporter.Begin("Saving page memory...")
	err := c.persister.Persist(c.ctx, runDir)
	c.reporter.End(err)
	if err != nil {
		return fmt.Errorf("failed to save page memory: %w", err)
	}
	c.logger.Info("page memory saved", "dir", runDir)
	return nil
}

// cleanup releases the page memory at most once per controller.
func (c *Controller) cleanup(ctx context.Context) error {
	c.cleanupOnce.Do(func() {
		if c.cleaner == nil {
			return
		}
		c.reporter.Begin("Cleaning up page memory...")
		c.cleanupErr = c.cleaner.Cleanup(ctx)
		c.reporter.End(c.cleanupErr)
	})
	return c.cleanupErr
}

// Stop removes the signal handler and cancels the run context. It is safe to
// call more than once; a stopped controller can no longer be interrupted by signals.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		wasInstalled := c.state != domain.StateIdle
		c.mu.Unlock()

		signal.Stop(c.sigCh)
		close(c.stopCh)
		c.cancel()
		if wasInstalled {
			installed.Store(false)
		}
	})
}
