//go:build !headless

package main

import (
	"voxkey/internal/activation"
	"voxkey/internal/bootstrap"
	"voxkey/internal/keyhook/globalhook"
	"voxkey/internal/logger"
)

func newHook(log *logger.Logger) bootstrap.Hook {
	return globalhook.New(activation.NewMonotonicClock(), log)
}
