package pagemem

import (
	"archive/tar"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// ArchiveName is the file written by ArchivePersister inside a run directory.
const ArchiveName = SnapshotName + ".tar.zst"

// ArchivePersister stores the data path as a zstd-compressed tarball in the
// run directory.
type ArchivePersister struct {
	Source string
	Level  zstd.EncoderLevel
}

// NewArchivePersister creates a persister archiving res.DataPath.
func NewArchivePersister(res Resource) *ArchivePersister {
	return &ArchivePersister{
		Source: res.WithDefaults().DataPath,
		Level:  zstd.SpeedDefault,
	}
}

// Persist writes <runDir>/DataOnDisk.tar.zst. A partial archive is removed on failure.
func (p *ArchivePersister) Persist(ctx context.Context, runDir string) (err error) {
	dest := filepath.Join(runDir, ArchiveName)
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(dest)
		}
	}()

	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(p.Level))
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	tw := tar.NewWriter(zw)

	err = walkFiles(ctx, p.Source, func(path, rel string, d fs.DirEntry) error {
		if rel == "" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		var link string
		if d.Type()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		} else if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = rel
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = ctxCopy(ctx, tw, in)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("failed to archive page memory: %w", err)
	}

	if err = tw.Close(); err != nil {
		zw.Close()
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("failed to finish zstd stream: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("failed to fsync archive: %w", err)
	}
	return f.Close()
}
