package ports

// Preparer checks and scaffolds the prerequisite layout of a run directory.
// The run driver calls the methods in declaration order, after the
// configuration has been staged and before the worker is launched.
type Preparer interface {
	VerifyRunDirectory(dir string) error
	SetupRunDirectory(dir string) error
	VerifyConfigFiles(dir string) error
	VerifySequenceFiles(paths ...string) error
}
