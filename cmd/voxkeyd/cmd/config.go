package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"voxkey/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration and any warnings",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	var (
		cfg config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		printError("could not load configuration", err)
		return err
	}
	describeConfig(cmd.OutOrStdout(), cfg)
	return nil
}

func describeConfig(w io.Writer, cfg config.Config) {
	file := cfg.Path
	if file == "" {
		file = "(none, defaults and environment only)"
	}
	deepgramKey := "missing"
	if cfg.Deepgram.APIKey != "" {
		deepgramKey = "set"
	}

	fmt.Fprintln(w, "voxkey configuration")
	fmt.Fprintln(w, "====================")
	fmt.Fprintf(w, "  %-20s %s\n", "config file", file)
	fmt.Fprintf(w, "  %-20s %s\n", "stt hotkey", cfg.Hotkeys.STT)
	fmt.Fprintf(w, "  %-20s %s\n", "tts hotkey", cfg.Hotkeys.TTS)
	fmt.Fprintf(w, "  %-20s %s (%s, then %s)\n", "provider", cfg.Session.Provider,
		cfg.Session.PrimaryProvider, cfg.Session.SecondaryProvider)
	fmt.Fprintf(w, "  %-20s %s\n", "recording ceiling", cfg.Session.RecordingCeiling)
	fmt.Fprintf(w, "  %-20s %s\n", "drain timeout", cfg.Session.DrainTimeout)
	fmt.Fprintf(w, "  %-20s %.2f\n", "confidence floor", cfg.Session.ConfidenceThreshold)
	fmt.Fprintf(w, "  %-20s %d\n", "error threshold", cfg.Session.ErrorThreshold)
	fmt.Fprintf(w, "  %-20s %t\n", "auto paste", cfg.Session.AutoPaste)
	fmt.Fprintf(w, "  %-20s %s (model %q)\n", "whisper", cfg.Whisper.Command, cfg.Whisper.ModelPath)
	fmt.Fprintf(w, "  %-20s %s (api key %s)\n", "deepgram", cfg.Deepgram.Model, deepgramKey)
	fmt.Fprintf(w, "  %-20s %s\n", "rules file", cfg.Rules.Path)

	if len(cfg.Warnings) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Warnings:")
	for _, warning := range cfg.Warnings {
		fmt.Fprintf(w, "  [!] %s\n", warning)
	}
}
