package pagemem

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ctxReader stops a copy as soon as ctx ends.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func ctxCopy(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	return io.Copy(dst, ctxReader{ctx: ctx, r: src})
}

// walkFiles visits every entry below root in lexical order, checking ctx
// before each one. rel is slash-separated and empty for root itself.
func walkFiles(ctx context.Context, root string, fn func(path, rel string, d fs.DirEntry) error) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("page memory data unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("page memory data %s is not a directory", root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			rel = ""
		}
		return fn(path, filepath.ToSlash(rel), d)
	})
}

// DirectoryPersister copies the data path into <runDir>/DataOnDisk.
type DirectoryPersister struct {
	Source string
}

// NewDirectoryPersister creates a persister copying res.DataPath.
func NewDirectoryPersister(res Resource) *DirectoryPersister {
	return &DirectoryPersister{Source: res.WithDefaults().DataPath}
}

// Persist copies the data tree, preserving modes and symlinks.
func (p *DirectoryPersister) Persist(ctx context.Context, runDir string) error {
	dest := filepath.Join(runDir, SnapshotName)
	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("snapshot already exists: %s", dest)
	}

	return walkFiles(ctx, p.Source, func(path, rel string, d fs.DirEntry) error {
		target := filepath.Join(dest, filepath.FromSlash(rel))
		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			return copyRegular(ctx, path, target, info.Mode().Perm())
		}
		// Devices, sockets and pipes have no meaning in a snapshot.
		return nil
	})
}

func copyRegular(ctx context.Context, src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return err
	}
	if _, err := ctxCopy(ctx, out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
