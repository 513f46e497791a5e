package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), DefaultFile))
	require.NoError(t, err)

	assert.Equal(t, "./output/", s.OutputDir)
	assert.Equal(t, "RunAssembly", s.Worker.Executable)
	assert.Equal(t, "/hugepages", s.PageMemory.MountPoint)
	assert.Equal(t, "/hugepages/Data", s.PageMemory.DataPath)
	assert.Equal(t, PersistDirectory, s.Persistence.Mode)
	assert.Equal(t, "info", s.Log.Level)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shastarun.yaml")
	content := `
confDir: /opt/shasta/conf
worker:
  executable: /opt/shasta/bin/RunAssembly
  launcher: "numactl --interleave=all"
pageMemory:
  mountPoint: /mnt/huge
  unmountCommand: sudo umount
persistence:
  mode: archive
ledger:
  redis:
    addr: localhost:6379
    ttl: 24h
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/shasta/conf", s.ResolveConfDir("/ignored"))
	assert.Equal(t, "/opt/shasta/bin/RunAssembly", s.ResolveWorker("/ignored"))
	assert.Equal(t, "numactl --interleave=all", s.Worker.Launcher)
	assert.Equal(t, "/mnt/huge", s.PageMemory.MountPoint)
	assert.Equal(t, "/mnt/huge/Data", s.PageMemory.DataPath)
	assert.Equal(t, "sudo umount", s.PageMemory.UnmountCommand)
	assert.Equal(t, PersistArchive, s.Persistence.Mode)
	assert.Equal(t, "localhost:6379", s.Ledger.Redis.Addr)
	assert.Equal(t, 24*time.Hour, s.Ledger.Redis.TTL)
	assert.Equal(t, "json", s.Log.Format)
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shastarun.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"outputDir": "/data/out", "pageMemory": {"dataPath": "/hugepages/Other"}}`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/out", s.OutputDir)
	assert.Equal(t, "/hugepages", s.PageMemory.MountPoint)
	assert.Equal(t, "/hugepages/Other", s.PageMemory.DataPath)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("persistence:\n  mode: tape\n"), 0o644))
	_, err := Load(bad)
	assert.ErrorContains(t, err, "tape")

	object := filepath.Join(dir, "object.yaml")
	require.NoError(t, os.WriteFile(object, []byte("persistence:\n  mode: object\n"), 0o644))
	_, err = Load(object)
	assert.ErrorContains(t, err, "endpoint")

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("worker: [\n"), 0o644))
	_, err = Load(broken)
	assert.Error(t, err)
}

func TestResolveRelativeToExecutable(t *testing.T) {
	s := Default()
	assert.Equal(t, filepath.Join("/opt/shasta", "conf"), s.ResolveConfDir("/opt/shasta/bin"))
	assert.Equal(t, "/opt/shasta/bin/RunAssembly", s.ResolveWorker("/opt/shasta/bin"))
}

func TestLoad_JSONDurationsMatchYAML(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "shastarun.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("ledger:\n  redis:\n    addr: localhost:6379\n    ttl: 36h\n    lockTTL: 72h\n"), 0o644))
	jsonPath := filepath.Join(dir, "shastarun.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"ledger": {"redis": {"addr": "localhost:6379", "ttl": "36h", "lockTTL": "72h"}}}`), 0o644))

	fromYAML, err := Load(yamlPath)
	require.NoError(t, err)
	fromJSON, err := Load(jsonPath)
	require.NoError(t, err)

	assert.Equal(t, fromYAML, fromJSON)
	assert.Equal(t, 36*time.Hour, fromJSON.Ledger.Redis.TTL)
	assert.Equal(t, 72*time.Hour, fromJSON.Ledger.Redis.LockTTL)
}

func TestLoad_JSONNanosecondDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shastarun.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ledger": {"redis": {"ttl": 1000000000}}}`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Second, s.Ledger.Redis.TTL)
}

func TestLoad_LedgerMode(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	assert.Equal(t, LedgerFile, Default().Ledger.Mode)

	s, err := Load(write("redis.yaml", "ledger:\n  redis:\n    addr: localhost:6379\n"))
	require.NoError(t, err)
	assert.Equal(t, LedgerRedis, s.Ledger.Mode)

	s, err = Load(write("memory.yaml", "ledger:\n  mode: memory\n  redis:\n    addr: localhost:6379\n"))
	require.NoError(t, err)
	assert.Equal(t, LedgerMemory, s.Ledger.Mode)

	_, err = Load(write("noaddr.yaml", "ledger:\n  mode: redis\n"))
	assert.ErrorContains(t, err, "requires an address")

	_, err = Load(write("bogus.yaml", "ledger:\n  mode: etcd\n"))
	assert.ErrorContains(t, err, "etcd")
}
