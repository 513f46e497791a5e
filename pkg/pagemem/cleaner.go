package pagemem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/aretw0/shastarun/internal/logging"
	"github.com/google/shlex"
)

// Cleaner releases the page memory: it removes the backing data and then
// unmounts the mount point. Both steps tolerate an already released resource,
// so Cleanup may be called any number of times.
type Cleaner struct {
	res            Resource
	unmountCommand []string
	isMounted      func(string) (bool, error)
	logger         *slog.Logger
	err            error
}

// CleanerOption configures a Cleaner.
type CleanerOption func(*Cleaner)

// WithUnmountCommand runs an external command (for example "sudo umount")
// with the mount point appended instead of calling unmount directly.
func WithUnmountCommand(command string) CleanerOption {
	return func(c *Cleaner) {
		args, err := shlex.Split(command)
		if err != nil {
			c.err = fmt.Errorf("invalid unmount command %q: %w", command, err)
			return
		}
		c.unmountCommand = args
	}
}

// WithMountProbe replaces the check deciding whether the mount point is mounted.
func WithMountProbe(probe func(path string) (bool, error)) CleanerOption {
	return func(c *Cleaner) {
		c.isMounted = probe
	}
}

// WithCleanerLogger sets the logger.
func WithCleanerLogger(l *slog.Logger) CleanerOption {
	return func(c *Cleaner) {
		c.logger = l
	}
}

// NewCleaner creates a Cleaner for res. It fails when an option is invalid.
func NewCleaner(res Resource, opts ...CleanerOption) (*Cleaner, error) {
	c := &Cleaner{res: res.WithDefaults(), isMounted: mounted}
	for _, opt := range opts {
		opt(c)
	}
	if c.err != nil {
		return nil, c.err
	}
	c.logger = logging.OrNop(c.logger)
	return c, nil
}

// Resource returns the managed resource.
func (c *Cleaner) Resource() Resource {
	return c.res
}

// Cleanup removes the data path and unmounts the mount point. Both steps are
// attempted; their errors are joined.
func (c *Cleaner) Cleanup(ctx context.Context) error {
	var errs []error

	if err := os.RemoveAll(c.res.DataPath); err != nil {
		errs = append(errs, fmt.Errorf("remove %s: %w", c.res.DataPath, err))
	}

	if err := c.unmount(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		c.logger.Error("page memory cleanup failed", "mount", c.res.MountPoint, "error", err)
		return err
	}
	c.logger.Info("page memory released", "mount", c.res.MountPoint)
	return nil
}

func (c *Cleaner) unmount(ctx context.Context) error {
	ok, err := c.isMounted(c.res.MountPoint)
	if err != nil {
		return err
	}
	if !ok {
		c.logger.Debug("page memory not mounted", "mount", c.res.MountPoint)
		return nil
	}
	if len(c.unmountCommand) == 0 {
		return unmount(c.res.MountPoint)
	}

	args := append(append([]string{}, c.unmountCommand[1:]...), c.res.MountPoint)
	out, err := exec.CommandContext(ctx, c.unmountCommand[0], args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", c.unmountCommand[0], err, out)
	}
	return nil
}
