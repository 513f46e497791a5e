/*
Package domain contains the core types shared by every part of shastarun.

It defines the run lifecycle states, the ledger record written for each run,
the process exit codes, and the sentinel errors that callers match with
errors.Is. The package has no I/O and no third-party dependencies.

# Key Entities

  - RunState: Idle → Running → Completed | Interrupted, plus Failed for runs that stopped before the worker ran.
  - RunRecord: what the ledger remembers about a run (directory, input, worker exit code, save/cleanup flags).
  - Exit codes: ExitOK, ExitFatal, ExitUsage, ExitInterrupted.
*/
package domain
