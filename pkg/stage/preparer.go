package stage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/shastarun/pkg/domain"
)

// ScratchDir is created in every run directory for per-thread worker logs.
const ScratchDir = "threadLogs"

var (
	fastaExt = []string{".fa", ".fasta", ".fna"}
	fastqExt = []string{".fq", ".fastq"}
)

// FSPreparer is the filesystem implementation of ports.Preparer.
type FSPreparer struct {
	// ConfigFiles lists the files that must be present in the run directory.
	ConfigFiles []string
}

// NewPreparer creates a preparer that requires the given configuration files.
func NewPreparer(configFiles ...string) *FSPreparer {
	return &FSPreparer{ConfigFiles: configFiles}
}

// VerifyRunDirectory checks that dir exists and is a directory.
func (p *FSPreparer) VerifyRunDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("run directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("run directory %s is not a directory", dir)
	}
	return nil
}

// SetupRunDirectory creates the scratch layout the worker writes into.
func (p *FSPreparer) SetupRunDirectory(dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, ScratchDir), 0o755); err != nil {
		return fmt.Errorf("failed to set up run directory: %w", err)
	}
	return nil
}

// VerifyConfigFiles checks that every required configuration file is a regular file in dir.
func (p *FSPreparer) VerifyConfigFiles(dir string) error {
	for _, name := range p.ConfigFiles {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("missing configuration file %s: %w", name, err)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("configuration file %s is not a regular file", name)
		}
	}
	return nil
}

// VerifySequenceFiles checks that each path is a non-empty FASTA or FASTQ file.
func (p *FSPreparer) VerifySequenceFiles(paths ...string) error {
	for _, path := range paths {
		if err := verifySequenceFile(path); err != nil {
			return err
		}
	}
	return nil
}

func verifySequenceFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", domain.ErrInputNotFound, path)
		}
		return fmt.Errorf("failed to open sequence file: %w", err)
	}
	defer f.Close()

	first, err := firstByte(f)
	if err == io.EOF {
		return fmt.Errorf("%w: %s is empty", domain.ErrInvalidSequenceFile, path)
	}
	if err != nil {
		return fmt.Errorf("failed to read sequence file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case first == '>' || slices.Contains(fastaExt, ext):
		return nil
	case first == '@' || slices.Contains(fastqExt, ext):
		return nil
	}
	return fmt.Errorf("%w: %s is neither FASTA nor FASTQ", domain.ErrInvalidSequenceFile, path)
}

// firstByte returns the first non-whitespace byte.
func firstByte(r io.Reader) (byte, error) {
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b != ' ' && b != '\t' && b != '\r' && b != '\n' {
			return b, nil
		}
	}
}
