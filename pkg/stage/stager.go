package stage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/shastarun/internal/logging"
	"github.com/aretw0/shastarun/pkg/domain"
)

// DeepCreateThreshold is the number of missing levels above which creating a
// directory is logged as a warning.
const DeepCreateThreshold = 3

// DirName returns the run directory name for t, with unpadded fields and microseconds.
func DirName(t time.Time) string {
	return fmt.Sprintf("run_%d_%d_%d_%d_%d_%d_%d",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1000)
}

// Stager creates run directories.
type Stager struct {
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Stager.
type Option func(*Stager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Stager) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Stager) {
		s.logger = l
	}
}

// New creates a Stager.
func New(opts ...Option) *Stager {
	s := &Stager{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)
	return s
}

// Create ensures parent exists and creates a fresh run directory beneath it.
// The returned path is absolute.
func (s *Stager) Create(parent string) (string, error) {
	abs, err := filepath.Abs(parent)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if err := EnsureDirectoryExists(abs, s.logger); err != nil {
		return "", err
	}

	dir := filepath.Join(abs, DirName(s.now()))
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", domain.ErrRunDirectoryExists, dir)
		}
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}
	s.logger.Info("run directory created", "dir", dir)
	return dir, nil
}

// EnsureDirectoryExists creates path and any missing parents. It is a no-op
// when path already exists and warns when more than DeepCreateThreshold levels
// were missing.
func EnsureDirectoryExists(path string, logger *slog.Logger) error {
	missing := missingLevels(path)
	if missing == 0 {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	if missing > DeepCreateThreshold {
		logging.OrNop(logger).Warn("created a deeply nested directory",
			"path", path, "levels", missing)
	}
	return nil
}

// missingLevels counts the trailing path components that do not exist.
// Errors other than "not exist" stop the count; MkdirAll reports them.
func missingLevels(path string) int {
	n := 0
	for p := filepath.Clean(path); ; p = filepath.Dir(p) {
		if _, err := os.Stat(p); err == nil || !errors.Is(err, os.ErrNotExist) {
			return n
		}
		n++
		if parent := filepath.Dir(p); parent == p {
			return n
		}
	}
}
