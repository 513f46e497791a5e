package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/shastarun"
	"github.com/aretw0/shastarun/internal/presentation/tui"
	"github.com/aretw0/shastarun/pkg/adapters/process"
	"github.com/aretw0/shastarun/pkg/conf"
	"github.com/aretw0/shastarun/pkg/lifecycle"
	"github.com/aretw0/shastarun/pkg/observability"
	"github.com/aretw0/shastarun/pkg/runner"
	"github.com/aretw0/shastarun/pkg/stage"
	"github.com/google/shlex"
)

// exit terminates the process after a signal-driven teardown.
var exit = os.Exit

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	GlobalOptions

	// Input is the sequence file handed to the worker.
	Input string
	// OutputDir overrides the settings' output directory when set.
	OutputDir string
	// OverridesFile is a YAML or JSON file of configuration overrides.
	OverridesFile string
	// Overrides come from flags and take precedence over OverridesFile.
	Overrides conf.Overrides

	Save    bool
	Cleanup bool
}

// Execute performs one orchestrated run: it materializes the configuration,
// stages the run directory, launches the worker and then saves and releases
// the page memory as requested. SIGINT and SIGTERM tear the run down and
// exit with status 130.
func Execute(opts RunOptions) error {
	s, logger, err := opts.load()
	if err != nil {
		return err
	}

	overrides := opts.Overrides
	if opts.OverridesFile != "" {
		fromFile, err := conf.LoadOverridesFile(opts.OverridesFile)
		if err != nil {
			return err
		}
		overrides = conf.Merge(fromFile, opts.Overrides)
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = s.OutputDir
	}

	exeDir, err := executableDir()
	if err != nil {
		return err
	}
	launcher, err := shlex.Split(s.Worker.Launcher)
	if err != nil {
		return fmt.Errorf("invalid worker launcher %q: %w", s.Worker.Launcher, err)
	}

	persister, err := newPersister(s)
	if err != nil {
		return err
	}
	cleaner, err := newCleaner(s, logger)
	if err != nil {
		return err
	}

	lh := openLedger(s)
	defer func() {
		if err := lh.close(); err != nil {
			logger.Warn("failed to close ledger", "error", err)
		}
	}()

	stderr := opts.stderr()
	status := tui.NewStatus(stderr)
	tui.PrintBanner(stderr, shastarun.Version)

	sup := process.NewSupervisor(process.WithLogger(logger))

	var driver *runner.Driver
	ctrl := lifecycle.New(context.Background(),
		lifecycle.WithTerminator(sup),
		lifecycle.WithPersister(persister),
		lifecycle.WithCleaner(cleaner),
		lifecycle.WithReporter(status),
		lifecycle.WithLogger(logger),
		lifecycle.WithExit(func(code int) {
			driver.Interrupted()
			_ = lh.close()
			exit(code)
		}),
	)

	driverOpts := []runner.Option{
		runner.WithMaterializer(conf.NewMaterializer(s.ResolveConfDir(exeDir), conf.WithLogger(logger))),
		runner.WithStager(stage.New(stage.WithLogger(logger))),
		runner.WithPreparer(stage.NewPreparer(conf.FileName)),
		runner.WithLedger(lh.ledger),
		runner.WithRecorder(observability.NewRecorder()),
		runner.WithWorker(s.ResolveWorker(exeDir), launcher...),
		runner.WithMountPoint(s.PageMemory.MountPoint),
		runner.WithLogger(logger),
	}
	if lh.locker != nil {
		host, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("resolve host name for page memory lock: %w", err)
		}
		driverOpts = append(driverOpts, runner.WithLocker(lh.locker, s.PageMemory.LockKey(host), s.Ledger.Redis.LockTTL))
	}
	driver = runner.NewDriver(sup, ctrl, driverOpts...)

	if err := ctrl.Install(); err != nil {
		return err
	}
	defer ctrl.Stop()

	res, err := driver.Run(runner.Request{
		Input:     opts.Input,
		OutputDir: outputDir,
		Overrides: overrides,
		Save:      opts.Save,
		Cleanup:   opts.Cleanup,
	})
	if rec := driver.Record(); rec != nil {
		status.Line("Run directory: %s", rec.Directory)
	}
	if err != nil {
		return err
	}

	rec := res.Record
	if rec.ExitCode != 0 {
		status.Line("Worker exited with status %d", rec.ExitCode)
	}
	logger.Debug("run recorded", "run_id", rec.ID, "saved", rec.Saved, "cleaned", rec.Cleaned)
	return nil
}
