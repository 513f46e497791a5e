//go:build !linux

package pagemem

import (
	"errors"
	"fmt"
)

var errUnsupported = errors.New("huge-page memory is only managed on linux")

func unmount(path string) error {
	return fmt.Errorf("unmount %s: %w", path, errUnsupported)
}

func mounted(path string) (bool, error) {
	return false, nil
}

// StatUsage reads the filesystem usage at path.
func StatUsage(path string) (Usage, error) {
	return Usage{}, errUnsupported
}
