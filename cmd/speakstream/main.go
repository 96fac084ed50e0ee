package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/speakstream/internal/bus"
	"github.com/leonardotrapani/speakstream/internal/config"
	"github.com/leonardotrapani/speakstream/internal/daemon"
	"github.com/leonardotrapani/speakstream/internal/protocol"
	"github.com/leonardotrapani/speakstream/internal/tui"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "speakstream",
	Short:         "Dictation for Wayland with streaming speech recognition",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/speakstream/config.toml)")
	rootCmd.AddCommand(
		serveCmd(),
		busCmd("toggle", "Start or stop dictation", bus.CmdToggle),
		busCmd("cancel", "Abort dictation without typing anything", bus.CmdCancel),
		statusCmd(),
		busCmd("stop", "Stop the daemon", bus.CmdQuit),
		versionCmd(),
		configureCmd(),
		providerCmd(),
		modelCmd(),
		transcribeCmd(),
		historyCmd(),
		doctorCmd(),
	)
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.Path()
}

// loadConfig returns the file's configuration, or the defaults when there is no file yet
func loadConfig() (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFile(path)
	if errors.Is(err, config.ErrConfigNotFound) {
		return config.DefaultConfig(), nil
	}
	return cfg, err
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath()
			if err != nil {
				return err
			}
			mgr, err := config.NewManager(path)
			if errors.Is(err, config.ErrConfigNotFound) {
				log.Printf("serve: no config at %s, running with defaults", path)
				mgr = config.NewStaticManager(config.DefaultConfig())
			} else if err != nil {
				return err
			}

			d, err := daemon.New(mgr, nil)
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			return d.Run()
		},
	}
}

func busCmd(use, short string, c byte) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(c)
			if err != nil {
				return fmt.Errorf("%s: %w", use, err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the daemon's recording status",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdStatus)
			if errors.Is(err, bus.ErrDaemonNotRunning) {
				fmt.Println(tui.StyleMuted.Render("daemon not running"))
				return nil
			}
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			fmt.Println(tui.RenderDaemonStatus(resp))
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show client and daemon protocol versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("client proto=%s doubao-proto=%d\n", bus.ProtoVer, protocol.Version)
			resp, err := bus.SendCommand(bus.CmdVersion)
			if errors.Is(err, bus.ErrDaemonNotRunning) {
				fmt.Println("daemon not running")
				return nil
			}
			if err != nil {
				return fmt.Errorf("version: %w", err)
			}
			fmt.Print("daemon " + resp)
			return nil
		},
	}
}
