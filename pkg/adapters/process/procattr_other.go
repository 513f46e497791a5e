//go:build !linux

package process

import (
	"os"
	"os/exec"
)

func setProcAttr(cmd *exec.Cmd) {}

// killGroup kills the child only; process groups are not managed here.
func killGroup(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}
