package main

import (
	"fmt"
	"os/exec"
	"slices"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/speakstream/internal/config"
	"github.com/leonardotrapani/speakstream/internal/transcriber"
	"github.com/leonardotrapani/speakstream/internal/tui"
)

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration",
		Long: `Interactive configuration for speakstream.
Walks through the transcription provider and its credentials, the spoken
language, how text is typed, LLM post-processing and notifications.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	if err := config.Save(result.Config, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println(tui.StyleSuccess.Render("Configuration saved to " + path))
	fmt.Println()
	showNextSteps(result.Config)
	return nil
}

func showNextSteps(cfg *config.Config) {
	running := exec.Command("systemctl", "--user", "is-active", "--quiet", "speakstream.service").Run() == nil

	var steps []string
	if cfg.Transcription.Provider == transcriber.ProviderWhisperLocal {
		steps = append(steps, "Download the model: speakstream model download "+cfg.Transcription.WhisperLocal.Model)
	}
	if slices.Contains(cfg.Injection.Backends, "ydotool") {
		steps = append(steps, "Ensure ydotoold is running")
	}
	if running {
		steps = append(steps, "The running daemon picks up the new config automatically")
	} else {
		steps = append(steps, "Start the daemon: systemctl --user start speakstream.service (or speakstream serve)")
	}
	steps = append(steps, "Bind a key to: speakstream toggle")

	fmt.Println(tui.StyleHeader.Render("Next steps"))
	for i, s := range steps {
		fmt.Printf("%d. %s\n", i+1, s)
	}
}
