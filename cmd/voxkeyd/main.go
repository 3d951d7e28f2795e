package main

import (
	"os"

	"golang.design/x/hotkey/mainthread"

	"voxkey/cmd/voxkeyd/cmd"
	"voxkey/internal/activation"
	"voxkey/internal/bootstrap"
	"voxkey/internal/keyhook/globalhook"
	"voxkey/internal/logger"
)

func main() {
	// Global hotkeys must be registered from the main thread on macOS.
	mainthread.Init(func() {
		if err := cmd.Execute(newHook); err != nil {
			os.Exit(1)
		}
	})
}

func newHook(log *logger.Logger) bootstrap.Hook {
	return globalhook.New(activation.NewMonotonicClock(), log)
}
