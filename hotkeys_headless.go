//go:build headless

package main

import (
	"voxkey/internal/bootstrap"
	"voxkey/internal/logger"
)

// Headless builds have no X display to register global hotkeys with.
var newHook func(log *logger.Logger) bootstrap.Hook
