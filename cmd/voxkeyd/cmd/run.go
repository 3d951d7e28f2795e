package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"voxkey/internal/bootstrap"
	"voxkey/internal/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the hotkey daemon in the foreground",
	RunE:  runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := bootstrap.Build(nil, nil, bootstrap.Options{
		ConfigPath: cfgFile,
		LogLevel:   logLevel,
		NewHook:    newHook,
	})
	if err != nil {
		printError("startup failed", err)
		return err
	}
	defer func() { _ = services.Logger.Sync() }()

	settings := services.Settings.Snapshot()
	services.Logger.Info("voxkeyd running",
		logger.String("provider", string(settings.Provider)),
		logger.String("stt_hotkey", settings.STTHotkey.String()),
		logger.String("tts_hotkey", settings.TTSHotkey.String()))

	if err := services.Run(ctx); err != nil {
		printError("daemon stopped", err)
		return err
	}
	services.Logger.Info("voxkeyd stopped")
	return nil
}
