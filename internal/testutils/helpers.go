package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/shastarun/pkg/pagemem"
	"github.com/stretchr/testify/require"
)

// SetupPageMemory creates a stand-in for the huge-page mount inside a temp
// dir: <tmp>/hugepages/Data holding a single file named Markers.
// It fails the test immediately on error.
func SetupPageMemory(t *testing.T) pagemem.Resource {
	t.Helper()

	mount := filepath.Join(t.TempDir(), "hugepages")
	res := pagemem.Resource{MountPoint: mount}.WithDefaults()

	require.NoError(t, os.MkdirAll(res.DataPath, 0o755), "Failed to create data path")
	require.NoError(t, os.WriteFile(filepath.Join(res.DataPath, "Markers"), []byte("markers"), 0o644))
	return res
}

// WriteSequenceFile writes a one-read FASTA file into dir and returns its
// absolute path.
func WriteSequenceFile(t *testing.T, dir string) string {
	t.Helper()

	path, err := filepath.Abs(filepath.Join(dir, "reads.fasta"))
	require.NoError(t, err, "Failed to get absolute path for sequence file")
	require.NoError(t, os.WriteFile(path, []byte(">read1\nACGT\n"), 0o644))
	return path
}
