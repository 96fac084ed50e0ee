package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/speakstream/internal/bus"
	"github.com/leonardotrapani/speakstream/internal/deps"
	"github.com/leonardotrapani/speakstream/internal/tui"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := deps.CheckAll()
			fmt.Println(tui.RenderDeps(statuses))
			fmt.Println()

			cfg, err := loadConfig()
			if err != nil {
				fmt.Println(tui.StyleError.Render("config: " + err.Error()))
			} else if err := cfg.Validate(); err != nil {
				fmt.Println(tui.StyleError.Render("config: " + err.Error()))
			} else {
				fmt.Println(tui.StyleSuccess.Render("config: ok"))
			}

			if _, err := bus.SendCommand(bus.CmdStatus); err != nil {
				fmt.Println(tui.StyleWarning.Render("daemon: " + err.Error()))
			} else {
				fmt.Println(tui.StyleSuccess.Render("daemon: running"))
			}

			for _, s := range statuses {
				if s.Required && !s.Installed {
					return fmt.Errorf("%s is required for %s", s.Name, s.Purpose)
				}
			}
			return nil
		},
	}
}
