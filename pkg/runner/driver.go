package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/shastarun/internal/logging"
	"github.com/aretw0/shastarun/pkg/adapters/process"
	"github.com/aretw0/shastarun/pkg/conf"
	"github.com/aretw0/shastarun/pkg/domain"
	"github.com/aretw0/shastarun/pkg/lifecycle"
	"github.com/aretw0/shastarun/pkg/observability"
	"github.com/aretw0/shastarun/pkg/pagemem"
	"github.com/aretw0/shastarun/pkg/ports"
	"github.com/aretw0/shastarun/pkg/stage"
	"github.com/google/uuid"
)

// ledgerTimeout bounds ledger writes made after the run context is gone.
const ledgerTimeout = 5 * time.Second

// Request describes one run.
type Request struct {
	// Input is the sequence file handed to the worker.
	Input string
	// OutputDir is the parent of the run directory.
	OutputDir string
	Overrides conf.Overrides
	// Save persists the page memory after the worker exits.
	Save bool
	// Cleanup releases the page memory after the worker exits (and after Save).
	Cleanup bool
}

// Result describes a finished run.
type Result struct {
	Record *domain.RunRecord
}

// Driver runs the orchestration sequence for one request.
type Driver struct {
	supervisor *process.Supervisor
	controller *lifecycle.Controller

	materializer *conf.Materializer
	stager       *stage.Stager
	preparer     ports.Preparer
	ledger       ports.RunLedger
	locker       ports.DistributedLocker
	lockKey      string
	lockTTL      time.Duration
	recorder     *observability.Recorder
	worker       string
	launcher     []string
	mountPoint   string
	newID        func() string
	now          func() time.Time
	logger       *slog.Logger

	mu         sync.Mutex
	record     *domain.RunRecord
	finishOnce sync.Once
}

// NewDriver creates a Driver. The controller must be configured with the same
// supervisor as its terminator.
func NewDriver(sup *process.Supervisor, ctrl *lifecycle.Controller, opts ...Option) *Driver {
	d := &Driver{
		supervisor: sup,
		controller: ctrl,
		newID:      uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.OrNop(d.logger)
	if d.materializer == nil {
		d.materializer = conf.NewMaterializer("conf", conf.WithLogger(d.logger))
	}
	if d.stager == nil {
		d.stager = stage.New(stage.WithLogger(d.logger), stage.WithClock(d.now))
	}
	if d.preparer == nil {
		d.preparer = stage.NewPreparer(conf.FileName)
	}
	if d.recorder == nil {
		d.recorder = observability.NewRecorder()
	}
	return d
}

// Run executes the request. A non-zero worker exit is recorded, not returned
// as an error. Once the worker has been launched, any failure or panic
// aborts the run through the controller so the page memory is released.
//
// When the run is torn down, Run returns only after the controller's
// teardown has finished, so the caller may exit the process right away.
// A signal-driven teardown is reported as domain.ErrInterrupted.
func (d *Driver) Run(req Request) (res *Result, err error) {
	defer func() {
		if !d.awaitTeardown() {
			return
		}
		if d.controller.Interrupted() && err != nil && !errors.Is(err, domain.ErrInterrupted) {
			err = fmt.Errorf("%w: %w", domain.ErrInterrupted, err)
		}
	}()

	input, err := resolveInput(req.Input)
	if err != nil {
		return nil, err
	}

	stop := d.recorder.Time(observability.StageMaterialize)
	cfg, err := d.materializer.Materialize(req.Overrides)
	stop()
	if err != nil {
		return nil, err
	}

	runCtx := d.controller.Context()

	if d.locker != nil {
		unlock, err := d.locker.Lock(runCtx, d.lockKey, d.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to lock page memory %s: %w", d.lockKey, err)
		}
		release := d.releaser(unlock)
		d.controller.OnInterrupt(release)
		defer func() {
			d.awaitTeardown()
			release()
		}()
	}

	stop = d.recorder.Time(observability.StageStage)
	runDir, err := d.stager.Create(req.OutputDir)
	if err == nil {
		err = d.materializer.Stage(cfg, runDir)
	}
	stop()
	if err != nil {
		return nil, err
	}

	rec := domain.NewRunRecord(d.newID(), runDir, input, d.now())
	d.setRecord(rec)
	d.saveRecord(rec)

	defer func() {
		if err != nil {
			d.mu.Lock()
			rec.Error = err.Error()
			d.mu.Unlock()
		}
		d.finish()
	}()

	stop = d.recorder.Time(observability.StagePrepare)
	err = d.prepare(runDir, input)
	stop()
	if err != nil {
		return nil, err
	}

	launched := false
	defer func() {
		if r := recover(); r != nil {
			if launched {
				d.controller.Abort(fmt.Errorf("panic: %v", r))
			}
			panic(r)
		}
		if err != nil && launched && !errors.Is(err, domain.ErrInterrupted) {
			d.controller.Abort(err)
		}
	}()

	command := append(append([]string{}, d.launcher...), d.worker, input)
	d.logger.Info("launching worker", "run_id", rec.ID, "dir", runDir, "command", command)

	stop = d.recorder.Time(observability.StageWorker)
	handle, err := d.supervisor.Launch(runCtx, command, runDir, true)
	stop()
	if handle != nil {
		launched = true
	}
	if err != nil {
		if runCtx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInterrupted, err)
		}
		return nil, err
	}

	code := handle.ExitCode()
	d.mu.Lock()
	rec.ExitCode = code
	d.mu.Unlock()
	d.recorder.SetWorkerExit(code)
	if code != 0 {
		d.logger.Warn("worker exited with a non-zero status", "run_id", rec.ID, "exit_code", code)
	} else {
		d.logger.Info("worker finished", "run_id", rec.ID)
	}

	d.sampleUsage()

	stop = d.recorder.Time(observability.StageComplete)
	out, err := d.controller.Complete(runDir, req.Save, req.Cleanup)
	stop()

	d.mu.Lock()
	rec.Saved = out.Saved
	rec.Cleaned = out.Cleaned
	d.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &Result{Record: rec}, nil
}

// awaitTeardown blocks until an interrupt teardown in progress has finished.
// It reports whether the run was torn down.
func (d *Driver) awaitTeardown() bool {
	if d.controller.State() != domain.StateInterrupted {
		return false
	}
	<-d.controller.Done()
	return true
}

// releaser wraps unlock so that the interrupt teardown and Run's own defer
// release the lock once between them.
func (d *Driver) releaser(unlock ports.UnlockFunc) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
			defer cancel()
			if err := unlock(ctx); err != nil {
				d.logger.Warn("failed to release page memory lock", "key", d.lockKey, "error", err)
			}
		})
	}
}

// Interrupted records the current run as interrupted. The signal path calls
// it just before the process exits; it is a no-op when the run was already
// recorded as finished.
func (d *Driver) Interrupted() {
	d.finish()
}

// Record returns a copy of the current run record, or nil before the run
// directory exists.
func (d *Driver) Record() *domain.RunRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.record == nil {
		return nil
	}
	rec := *d.record
	return &rec
}

func (d *Driver) setRecord(rec *domain.RunRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record = rec
}

// finish writes the final record and the metrics textfile exactly once.
func (d *Driver) finish() {
	d.finishOnce.Do(func() {
		d.awaitTeardown()
		d.mu.Lock()
		rec := d.record
		if rec == nil {
			d.mu.Unlock()
			return
		}
		rec.State = d.controller.State()
		if rec.State == domain.StateRunning {
			rec.State = domain.StateFailed
		}
		if rec.Error == "" {
			if cause := d.controller.Cause(); cause != nil {
				rec.Error = cause.Error()
			}
		}
		rec.EndedAt = d.now()
		final := *rec
		d.mu.Unlock()

		d.saveRecord(&final)
		d.recorder.Finish(&final)
		if err := d.recorder.WriteTextfile(final.Directory); err != nil {
			d.logger.Warn("failed to write run metrics", "error", err)
		}
		d.logger.Info("run finished", "run_id", final.ID, "state", final.State, "exit_code", final.ExitCode)
	})
}

func (d *Driver) saveRecord(rec *domain.RunRecord) {
	if d.ledger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()
	if err := d.ledger.Save(ctx, rec); err != nil {
		d.logger.Warn("failed to record run", "run_id", rec.ID, "error", err)
	}
}

func (d *Driver) prepare(runDir, input string) error {
	if err := d.preparer.VerifyRunDirectory(runDir); err != nil {
		return err
	}
	if err := d.preparer.SetupRunDirectory(runDir); err != nil {
		return err
	}
	if err := d.preparer.VerifyConfigFiles(runDir); err != nil {
		return err
	}
	return d.preparer.VerifySequenceFiles(input)
}

func (d *Driver) sampleUsage() {
	if d.mountPoint == "" {
		return
	}
	usage, err := pagemem.StatUsage(d.mountPoint)
	if err != nil {
		d.logger.Debug("page memory usage unavailable", "mount", d.mountPoint, "error", err)
		return
	}
	d.recorder.SetPageMemory(usage.TotalBytes, usage.UsedBytes())
	d.logger.Info("page memory in use", "mount", d.mountPoint, "bytes", usage.UsedBytes())
}

// resolveInput makes path absolute and checks that it exists.
func resolveInput(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: no input sequence file given", domain.ErrInputNotFound)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", domain.ErrInputNotFound, abs)
		}
		return "", fmt.Errorf("failed to stat %s: %w", abs, err)
	}
	return abs, nil
}
