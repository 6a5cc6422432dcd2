//go:build windows

package lsp

import "os/exec"

// setProcessGroup is a no-op on Windows: exec.Cmd has no portable
// process-group equivalent here, so killProcessGroup falls back to
// killing the direct child only.
func setProcessGroup(cmd *exec.Cmd) {}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
