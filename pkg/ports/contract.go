package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/shastarun/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunLedgerContract runs a suite of tests to verify that a RunLedger implementation
// adheres to the defined interface contract.
func RunLedgerContract(t *testing.T, ledger RunLedger) {
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405")
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Save and Load", func(t *testing.T) {
		rec := domain.NewRunRecord(runID, "/out/run_2024_3_1_10_0_0_0", "/data/reads.fasta", started)

		err := ledger.Save(ctx, rec)
		require.NoError(t, err, "Save should not return error")

		loaded, err := ledger.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, rec.Directory, loaded.Directory)
		assert.Equal(t, rec.Input, loaded.Input)
		assert.Equal(t, domain.StateRunning, loaded.State)
		assert.Equal(t, -1, loaded.ExitCode)
		assert.True(t, started.Equal(loaded.StartedAt))
	})

	t.Run("Save replaces", func(t *testing.T) {
		rec := domain.NewRunRecord(runID, "/out/run", "/data/reads.fasta", started)
		rec.State = domain.StateCompleted
		rec.ExitCode = 0
		rec.Saved = true
		rec.EndedAt = started.Add(time.Hour)
		require.NoError(t, ledger.Save(ctx, rec))

		loaded, err := ledger.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateCompleted, loaded.State)
		assert.Equal(t, 0, loaded.ExitCode)
		assert.True(t, loaded.Saved)
		assert.False(t, loaded.Cleaned)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := ledger.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := ledger.Save(ctx, domain.NewRunRecord(runID, "/out/run", "/in", started))
		require.NoError(t, err)

		err = ledger.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		_, err = ledger.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")

		assert.NoError(t, ledger.Delete(ctx, runID), "Delete of unknown run should be a no-op")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		_ = ledger.Save(ctx, domain.NewRunRecord(id1, "/out/a", "/in", started))
		_ = ledger.Save(ctx, domain.NewRunRecord(id2, "/out/b", "/in", started))

		defer func() {
			_ = ledger.Delete(ctx, id1)
			_ = ledger.Delete(ctx, id2)
		}()

		runs, err := ledger.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
