package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/aretw0/shastarun/internal/logging"
	"github.com/aretw0/shastarun/pkg/domain"
)

// Supervisor launches at most one worker process and can force-stop it.
// The child runs in its own process group so that termination reaches
// everything it spawned.
type Supervisor struct {
	mu       sync.Mutex
	launched bool
	handle   *Handle

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	env    []string
	logger *slog.Logger
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithStdio replaces the inherited standard streams.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(s *Supervisor) {
		s.stdin = stdin
		s.stdout = stdout
		s.stderr = stderr
	}
}

// WithEnv sets the child environment. By default the parent's is inherited.
func WithEnv(env []string) Option {
	return func(s *Supervisor) {
		s.env = env
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = l
	}
}

// NewSupervisor creates a Supervisor wired to the parent's stdio.
func NewSupervisor(opts ...Option) *Supervisor {
	s := &Supervisor{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)
	return s
}

// Launch starts command in workDir. With wait set it blocks until the child
// exits or ctx ends; cancelling ctx kills the child's process group.
// A second call fails with domain.ErrAlreadyLaunched.
func (s *Supervisor) Launch(ctx context.Context, command []string, workDir string, wait bool) (*Handle, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	s.mu.Lock()
	if s.launched {
		s.mu.Unlock()
		return nil, domain.ErrAlreadyLaunched
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = workDir
	cmd.Stdin = s.stdin
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr
	if s.env != nil {
		cmd.Env = s.env
	}
	setProcAttr(cmd)
	cmd.Cancel = func() error {
		return killGroup(cmd.Process.Pid)
	}

	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to start %s: %w", command[0], err)
	}
	s.launched = true

	h := &Handle{
		cmd:      cmd,
		done:     make(chan struct{}),
		exitCode: -1,
	}
	s.handle = h
	s.mu.Unlock()

	s.logger.Info("worker started", "pid", cmd.Process.Pid, "command", command, "dir", workDir)
	go h.reap(s.logger)

	if !wait {
		return h, nil
	}
	return h, h.Wait(ctx)
}

// Handle returns the launched child, or nil.
func (s *Supervisor) Handle() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// Terminate kills the child's process group. It is a no-op when nothing was
// launched or the child already exited, and safe to call repeatedly.
func (s *Supervisor) Terminate() error {
	h := s.Handle()
	if h == nil || h.Exited() {
		return nil
	}
	err := killGroup(h.cmd.Process.Pid)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to terminate worker: %w", err)
	}
	s.logger.Warn("worker terminated", "pid", h.cmd.Process.Pid)
	return nil
}

// Handle tracks one running child.
type Handle struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu       sync.Mutex
	exitCode int
	err      error
}

func (h *Handle) reap(logger *slog.Logger) {
	err := h.cmd.Wait()

	h.mu.Lock()
	if state := h.cmd.ProcessState; state != nil {
		h.exitCode = state.ExitCode()
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		h.err = err
	}
	code := h.exitCode
	h.mu.Unlock()

	close(h.done)
	logger.Info("worker exited", "pid", h.cmd.Process.Pid, "exit_code", code)
}

// PID returns the child's process ID.
func (h *Handle) PID() int {
	return h.cmd.Process.Pid
}

// Done is closed once the child has been reaped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Exited reports whether the child has been reaped.
func (h *Handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the child exits or ctx ends. A non-zero exit status is
// not an error; read it with ExitCode.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExitCode returns the exit status, or -1 while running or when the child
// was killed by a signal.
func (h *Handle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode
}
