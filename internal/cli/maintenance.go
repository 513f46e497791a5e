package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/aretw0/shastarun/internal/presentation/tui"
	"github.com/aretw0/shastarun/pkg/domain"
)

// Cleanup releases the page memory outside of a run, for example after a
// crash left it mounted.
func Cleanup(opts GlobalOptions) error {
	s, logger, err := opts.load()
	if err != nil {
		return err
	}

	ctx := NewSignalContext(context.Background())
	defer ctx.Stop()

	cleaner, err := newCleaner(s, logger)
	if err != nil {
		return err
	}

	status := tui.NewStatus(opts.stderr())
	status.Begin("Cleaning up page memory...")
	err = cleaner.Cleanup(ctx)
	status.End(err)
	return interruptedOr(ctx, err)
}

// SaveOptions configures the save command.
type SaveOptions struct {
	GlobalOptions
	// RunDir receives the page-memory snapshot.
	RunDir string
}

// Save persists the page memory into an existing run directory.
func Save(opts SaveOptions) error {
	s, logger, err := opts.load()
	if err != nil {
		return err
	}

	runDir, err := filepath.Abs(opts.RunDir)
	if err != nil {
		return err
	}
	if info, err := os.Stat(runDir); err != nil || !info.IsDir() {
		return UsageError(fmt.Errorf("run directory %s does not exist", runDir))
	}

	persister, err := newPersister(s)
	if err != nil {
		return err
	}

	ctx := NewSignalContext(context.Background())
	defer ctx.Stop()

	status := tui.NewStatus(opts.stderr())
	status.Begin("Saving page memory...")
	err = persister.Persist(ctx, runDir)
	status.End(err)
	if err == nil {
		logger.Info("page memory saved", "dir", runDir, "mode", s.Persistence.Mode)
	}
	return interruptedOr(ctx, err)
}

// ListOptions configures the runs command.
type ListOptions struct {
	GlobalOptions
	JSON bool
}

// ListRuns prints the recorded runs, oldest first.
func ListRuns(opts ListOptions, w io.Writer) error {
	s, logger, err := opts.load()
	if err != nil {
		return err
	}

	lh := openLedger(s)
	defer func() { _ = lh.close() }()

	ctx := NewSignalContext(context.Background())
	defer ctx.Stop()

	ids, err := lh.ledger.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	records := make([]*domain.RunRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := lh.ledger.Load(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrRunNotFound) {
				continue
			}
			logger.Warn("skipping unreadable run", "run_id", id, "error", err)
			continue
		}
		records = append(records, rec)
	}
	sortRecords(records)

	if opts.JSON {
		enc := json.NewEncoder(w)
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tEXIT\tSTARTED\tDIRECTORY")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			rec.ID, rec.State, rec.ExitCode, rec.StartedAt.Local().Format(time.DateTime), rec.Directory)
	}
	return tw.Flush()
}

func sortRecords(records []*domain.RunRecord) {
	slices.SortStableFunc(records, func(a, b *domain.RunRecord) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
}

// interruptedOr reports a signal that cancelled ctx as domain.ErrInterrupted.
func interruptedOr(ctx *SignalContext, err error) error {
	if sig := ctx.Signal(); sig != nil {
		return fmt.Errorf("%w by %s", domain.ErrInterrupted, sig)
	}
	return err
}
