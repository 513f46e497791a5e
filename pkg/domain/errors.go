package domain

import "errors"

// ErrInputNotFound is returned when the input sequence file does not exist.
var ErrInputNotFound = errors.New("input file not found")

// ErrInvalidBool is returned when a boolean flag value is not one of the accepted spellings.
var ErrInvalidBool = errors.New("invalid argument specified for boolean flag")

// ErrInvalidChoice is returned when an enumerated override receives an unknown value.
var ErrInvalidChoice = errors.New("invalid choice")

// ErrInvalidOverride is returned when an override value cannot be converted to its field type.
var ErrInvalidOverride = errors.New("invalid override")

// ErrUnknownKey is returned when an override targets a section or key missing from the defaults.
var ErrUnknownKey = errors.New("unknown configuration key")

// ErrFrozen is returned when a configuration is modified after it was serialized.
var ErrFrozen = errors.New("configuration already written")

// ErrConfigLoad is returned when the default configuration is missing or unparsable.
var ErrConfigLoad = errors.New("error reading config file")

// ErrMissingTemplate is returned when an auxiliary parameter template cannot be found.
var ErrMissingTemplate = errors.New("missing template file")

// ErrRunDirectoryExists is returned when a run directory name collides with an existing one.
var ErrRunDirectoryExists = errors.New("run directory already exists")

// ErrInvalidSequenceFile is returned when the input is empty or not FASTA/FASTQ.
var ErrInvalidSequenceFile = errors.New("invalid sequence file")

// ErrAlreadyLaunched is returned when a supervisor is asked to launch a second child.
var ErrAlreadyLaunched = errors.New("process already launched")

// ErrAlreadyInstalled is returned when a second lifecycle controller tries to take over signal handling.
var ErrAlreadyInstalled = errors.New("signal handler already installed")

// ErrInterrupted is returned when a run was cancelled by a termination signal.
var ErrInterrupted = errors.New("run interrupted")

// ErrRunNotFound is returned when a run ID cannot be found in the ledger.
var ErrRunNotFound = errors.New("run not found")
