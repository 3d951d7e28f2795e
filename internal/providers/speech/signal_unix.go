//go:build !windows

package speech

import (
	"os"
	"syscall"
)

const pauseSupported = true

func suspend(p *os.Process) error {
	return p.Signal(syscall.SIGSTOP)
}

func resume(p *os.Process) error {
	return p.Signal(syscall.SIGCONT)
}
