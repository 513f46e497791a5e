// Package pagemem manages the huge-page memory shared by assembly runs: its
// location, teardown and persistence.
package pagemem

import "path/filepath"

const (
	// DefaultMountPoint is where the huge-page filesystem is mounted.
	DefaultMountPoint = "/hugepages"

	// DataDirName is the directory below the mount point holding the worker's data.
	DataDirName = "Data"

	// SnapshotName is the name of a local copy inside a run directory.
	SnapshotName = "DataOnDisk"
)

// Resource is the shared page memory: a mount point and the data path inside it.
// It is assumed to exist before a run starts.
type Resource struct {
	MountPoint string `yaml:"mountPoint" json:"mountPoint"`
	DataPath   string `yaml:"dataPath" json:"dataPath"`
}

// DefaultResource returns /hugepages with data under /hugepages/Data.
func DefaultResource() Resource {
	return Resource{
		MountPoint: DefaultMountPoint,
		DataPath:   filepath.Join(DefaultMountPoint, DataDirName),
	}
}

// WithDefaults fills empty fields from DefaultResource. An empty data path
// follows the mount point.
func (r Resource) WithDefaults() Resource {
	if r.MountPoint == "" {
		r.MountPoint = DefaultMountPoint
	}
	if r.DataPath == "" {
		r.DataPath = filepath.Join(r.MountPoint, DataDirName)
	}
	return r
}

// Usage reports the size of the filesystem backing the mount point.
type Usage struct {
	TotalBytes uint64
	FreeBytes  uint64
}

// UsedBytes is the number of bytes currently held.
func (u Usage) UsedBytes() uint64 {
	if u.FreeBytes > u.TotalBytes {
		return 0
	}
	return u.TotalBytes - u.FreeBytes
}

// LockKey names this page memory on host. Page memory is local to a host, so
// hosts sharing a lock service must not contend for the same mount point.
func (r Resource) LockKey(host string) string {
	return host + ":" + r.MountPoint
}
