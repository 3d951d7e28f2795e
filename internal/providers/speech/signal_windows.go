//go:build windows

package speech

import (
	"errors"
	"os"
)

const pauseSupported = false

var errPauseUnavailable = errors.New("pausing speech is not available on windows")

func suspend(*os.Process) error {
	return errPauseUnavailable
}

func resume(*os.Process) error {
	return errPauseUnavailable
}
