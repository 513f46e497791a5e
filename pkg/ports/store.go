package ports

import (
	"context"

	"github.com/aretw0/shastarun/pkg/domain"
)

// RunLedger persists one record per orchestrated run.
type RunLedger interface {
	// Save creates or replaces the record for rec.ID.
	Save(ctx context.Context, rec *domain.RunRecord) error

	// Load retrieves a record.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.RunRecord, error)

	// Delete removes a record. Deleting an unknown run is not an error.
	Delete(ctx context.Context, runID string) error

	// List returns the known run IDs.
	List(ctx context.Context) ([]string, error)
}
