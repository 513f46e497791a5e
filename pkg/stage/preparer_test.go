package stage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/shastarun/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFSPreparer_Layout(t *testing.T) {
	p := NewPreparer("shasta.conf")
	dir := t.TempDir()

	require.NoError(t, p.VerifyRunDirectory(dir))
	require.NoError(t, p.SetupRunDirectory(dir))
	assert.DirExists(t, filepath.Join(dir, ScratchDir))

	assert.Error(t, p.VerifyConfigFiles(dir))
	write(t, filepath.Join(dir, "shasta.conf"), "[Reads]\n")
	assert.NoError(t, p.VerifyConfigFiles(dir))

	notDir := write(t, filepath.Join(dir, "plain"), "x")
	assert.Error(t, p.VerifyRunDirectory(notDir))
}

func TestFSPreparer_SequenceFiles(t *testing.T) {
	p := NewPreparer()
	dir := t.TempDir()

	fasta := write(t, filepath.Join(dir, "reads.txt"), ">read1\nACGT\n")
	fastq := write(t, filepath.Join(dir, "reads.dat"), "@r1\nACGT\n+\n!!!!\n")
	byExt := write(t, filepath.Join(dir, "reads.fna"), "ACGT\n")
	assert.NoError(t, p.VerifySequenceFiles(fasta, fastq, byExt))

	empty := write(t, filepath.Join(dir, "empty.fasta"), "")
	assert.ErrorIs(t, p.VerifySequenceFiles(empty), domain.ErrInvalidSequenceFile)

	other := write(t, filepath.Join(dir, "notes.txt"), "hello")
	assert.ErrorIs(t, p.VerifySequenceFiles(other), domain.ErrInvalidSequenceFile)

	assert.ErrorIs(t, p.VerifySequenceFiles(filepath.Join(dir, "absent.fa")), domain.ErrInputNotFound)
}
