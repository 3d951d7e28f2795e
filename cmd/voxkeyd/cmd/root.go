package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voxkey/internal/bootstrap"
	"voxkey/internal/logger"
)

var (
	cfgFile  string
	logLevel string
	newHook  func(log *logger.Logger) bootstrap.Hook
)

var rootCmd = &cobra.Command{
	Use:   "voxkeyd",
	Short: "voxkey - hotkey dictation and read-aloud daemon",
	Long: `voxkeyd listens for the configured global hotkeys.

  STT hotkey  - record from the microphone, transcribe, copy (and paste) the text
  TTS hotkey  - read the clipboard aloud; press again to stop

Configuration is read from $VOXKEY_CONFIG or ~/.config/voxkey/config.toml,
then overridden by VOXKEY_* and DEEPGRAM_* environment variables.`,
	SilenceUsage: true,
	RunE:         runDaemon,
}

// Execute runs the CLI. hook builds the global hotkey source for the daemon.
func Execute(hook func(log *logger.Logger) bootstrap.Hook) error {
	newHook = hook
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/voxkey/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
}
