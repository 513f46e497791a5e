package ports

import "context"

// Persister copies the shared page memory into a run directory or a remote store.
// Implementations must stop promptly when ctx is cancelled.
type Persister interface {
	Persist(ctx context.Context, runDir string) error
}

// Cleaner tears the shared page memory down. Calling it on an already
// released resource is a no-op.
type Cleaner interface {
	Cleanup(ctx context.Context) error
}

// Terminator force-stops a running child. It is a no-op without one.
type Terminator interface {
	Terminate() error
}
