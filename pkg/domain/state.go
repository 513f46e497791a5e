package domain

import "time"

// RunState is the lifecycle phase of a run.
type RunState string

const (
	StateIdle        RunState = "idle"        // Controller created, signals not yet intercepted
	StateRunning     RunState = "running"     // Signal handler installed, work in progress
	StateCompleted   RunState = "completed"   // Worker exited and success-path steps ran
	StateInterrupted RunState = "interrupted" // Signal or abnormal exit forced teardown
	StateFailed      RunState = "failed"      // Ledger only: the run stopped on an error before the worker ran
)

// Terminal reports whether no further transition is possible.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateInterrupted || s == StateFailed
}

// Process exit codes used by the command line.
const (
	ExitOK          = 0
	ExitFatal       = 1
	ExitUsage       = 2
	ExitInterrupted = 130
)

// RunRecord is the ledger entry describing one orchestrated run.
type RunRecord struct {
	// ID uniquely identifies the run across ledgers.
	ID string `json:"id"`

	// Directory is the absolute path of the run directory.
	Directory string `json:"directory"`

	// Input is the absolute path of the sequence file handed to the worker.
	Input string `json:"input"`

	State RunState `json:"state"`

	// ExitCode is the worker exit status, -1 while unknown.
	ExitCode int `json:"exit_code"`

	Saved   bool `json:"saved"`
	Cleaned bool `json:"cleaned"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`

	// Error holds the message of the error that ended the run, if any.
	Error string `json:"error,omitempty"`
}

// NewRunRecord creates a record for a run that is about to start.
func NewRunRecord(id, directory, input string, now time.Time) *RunRecord {
	return &RunRecord{
		ID:        id,
		Directory: directory,
		Input:     input,
		State:     StateRunning,
		ExitCode:  -1,
		StartedAt: now,
	}
}
