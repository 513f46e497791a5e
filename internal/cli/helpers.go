package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/aretw0/shastarun/internal/logging"
	"github.com/aretw0/shastarun/internal/settings"
	"github.com/aretw0/shastarun/pkg/adapters/file"
	"github.com/aretw0/shastarun/pkg/adapters/memory"
	"github.com/aretw0/shastarun/pkg/adapters/redis"
	"github.com/aretw0/shastarun/pkg/pagemem"
	"github.com/aretw0/shastarun/pkg/ports"
)

// GlobalOptions are shared by every command.
type GlobalOptions struct {
	// SettingsPath is the settings file. Empty means settings.DefaultFile,
	// which may be absent.
	SettingsPath string
	// LogLevel and LogFormat override the settings file when set.
	LogLevel  string
	LogFormat string
	// Stderr receives logs and progress lines. Defaults to os.Stderr.
	Stderr io.Writer
}

func (g GlobalOptions) stderr() io.Writer {
	if g.Stderr == nil {
		return os.Stderr
	}
	return g.Stderr
}

// load reads the settings and builds the logger they describe.
func (g GlobalOptions) load() (*settings.Settings, *slog.Logger, error) {
	path := g.SettingsPath
	if path == "" {
		path = settings.DefaultFile
	} else if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("failed to read settings: %w", err)
	}

	s, err := settings.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if g.LogLevel != "" {
		s.Log.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		s.Log.Format = g.LogFormat
	}

	logger, err := createLogger(s.Log, g.stderr())
	if err != nil {
		return nil, nil, UsageError(err)
	}
	return s, logger, nil
}

// SignalContext wraps a context and captures the signal that cancelled it.
// Maintenance commands use it; runs install a lifecycle.Controller instead.
type SignalContext struct {
	context.Context
	Cancel func()
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sc.sigCh:
			sc.mu.Lock()
			sc.sigVal = sig
			sc.mu.Unlock()
			sc.Cancel()
		case <-sc.Context.Done():
		}
		sc.Stop()
	}()

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// Stop releases the signal handler and cancels the context.
func (sc *SignalContext) Stop() {
	sc.stop.Do(func() {
		signal.Stop(sc.sigCh)
		sc.Cancel()
	})
}

// createLogger configures the application logger from the settings.
// It writes to stderr; stdout belongs to the worker.
func createLogger(cfg settings.Log, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithFormat(level, cfg.Format, w), nil
}

// executableDir returns the directory holding the running binary, with
// symlinks resolved so that ../conf is found next to the real install.
func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// ledgerHandle bundles the ledger, the optional lock and a closer.
type ledgerHandle struct {
	ledger ports.RunLedger
	locker ports.DistributedLocker
	close  func() error
}

// openLedger opens the ledger of the configured mode. The file ledger cannot
// coordinate runs, so it yields no locker. The memory ledger serializes runs
// within this process only.
func openLedger(s *settings.Settings) *ledgerHandle {
	r := s.Ledger.Redis
	switch s.Ledger.Mode {
	case settings.LedgerMemory:
		return &ledgerHandle{
			ledger: memory.NewLedger(),
			locker: memory.NewLocker(),
			close:  func() error { return nil },
		}
	case settings.LedgerRedis:
	default:
		if r.Addr == "" {
			return &ledgerHandle{
				ledger: file.New(s.Ledger.Path),
				close:  func() error { return nil },
			}
		}
	}

	opts := []redis.Option{redis.WithTTL(r.TTL)}
	if r.Prefix != "" {
		opts = append(opts, redis.WithPrefix(r.Prefix))
	}
	l := redis.New(r.Addr, r.Password, r.DB, opts...)
	return &ledgerHandle{
		ledger: l,
		locker: redis.NewLocker(l.Client(), l.Prefix()),
		close:  l.Close,
	}
}

// newPersister builds the persister for the configured mode.
func newPersister(s *settings.Settings) (ports.Persister, error) {
	res := s.PageMemory.Resource
	switch s.Persistence.Mode {
	case settings.PersistArchive:
		return pagemem.NewArchivePersister(res), nil
	case settings.PersistObject:
		return pagemem.NewObjectPersister(res, s.Persistence.MinIO)
	case settings.PersistDirectory, "":
		return pagemem.NewDirectoryPersister(res), nil
	}
	return nil, fmt.Errorf("unknown persistence mode %q", s.Persistence.Mode)
}

func newCleaner(s *settings.Settings, logger *slog.Logger) (*pagemem.Cleaner, error) {
	opts := []pagemem.CleanerOption{pagemem.WithCleanerLogger(logger)}
	if s.PageMemory.UnmountCommand != "" {
		opts = append(opts, pagemem.WithUnmountCommand(s.PageMemory.UnmountCommand))
	}
	return pagemem.NewCleaner(s.PageMemory.Resource, opts...)
}
