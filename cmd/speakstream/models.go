package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/leonardotrapani/speakstream/internal/config"
	"github.com/leonardotrapani/speakstream/internal/models/whisper"
	"github.com/leonardotrapani/speakstream/internal/notify"
	"github.com/leonardotrapani/speakstream/internal/transcriber"
	"github.com/leonardotrapani/speakstream/internal/tui"
)

func modelManager(cfg *config.Config) (*whisper.Manager, error) {
	dir, err := cfg.ModelsDir()
	if err != nil {
		return nil, err
	}
	return whisper.NewManager(dir), nil
}

func providerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provider",
		Short: "Inspect transcription providers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List providers and whether each is ready to use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			models, err := modelManager(cfg)
			if err != nil {
				return err
			}

			var rows []tui.ProviderRow
			for _, id := range transcriber.IDs() {
				tc := cfg.ToTranscriberConfig(models)
				tc.Provider = id
				p, err := transcriber.New(tc)
				if err != nil {
					return err
				}
				rows = append(rows, tui.ProviderRow{
					ID:     id,
					Name:   p.DisplayName(),
					Active: id == cfg.Transcription.Provider,
					Status: p.Status(),
					Stream: transcriber.IsStreaming(id),
				})
			}
			fmt.Println(tui.RenderProviders(rows))
			return nil
		},
	})
	return cmd
}

func modelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage local whisper models",
	}
	cmd.AddCommand(modelListCmd(), modelDownloadCmd(), modelRemoveCmd())
	return cmd
}

func modelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List whisper models and which are downloaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			models, err := modelManager(cfg)
			if err != nil {
				return err
			}
			fmt.Println(tui.RenderModels(models.List(cfg.Transcription.WhisperLocal.Model)))
			fmt.Println(tui.StyleMuted.Render("models directory: " + models.Dir))
			return nil
		},
	}
}

func modelDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <model>",
		Short: "Download a whisper model, resuming a partial download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			models, err := modelManager(cfg)
			if err != nil {
				return err
			}
			return runModelDownload(cmd.Context(), cfg, models, args[0])
		},
	}
}

func runModelDownload(ctx context.Context, cfg *config.Config, models *whisper.Manager, id string) error {
	info, ok := whisper.Lookup(id)
	if !ok {
		return fmt.Errorf("unknown model: %s (see speakstream model list)", id)
	}
	if models.Installed(id) {
		path, _ := models.Path(id)
		fmt.Printf("model %s is already installed at %s\n", id, path)
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := notify.New(cfg.NotifierType())
	if err != nil {
		n = notify.Nop{}
	}

	fmt.Printf("downloading %s (%s)\n", info.Name, humanize.Bytes(uint64(info.SizeBytes)))
	lastPercent := -1
	err = models.Download(ctx, id, nil, func(p whisper.DownloadProgress) {
		if p.Percent == lastPercent {
			return
		}
		lastPercent = p.Percent
		fmt.Printf("\r%3d%%  %s / %s", p.Percent,
			humanize.Bytes(uint64(p.DownloadedBytes)), humanize.Bytes(uint64(p.TotalBytes)))
		if p.Percent%10 == 0 {
			n.DownloadProgress(p)
		}
	})
	fmt.Println()
	if errors.Is(err, context.Canceled) || errors.Is(err, whisper.ErrCancelled) {
		fmt.Println("download interrupted; run the command again to resume")
		return nil
	}
	if err != nil {
		n.Error(fmt.Sprintf("model download failed: %v", err))
		return fmt.Errorf("download %s: %w", id, err)
	}
	fmt.Println(tui.StyleSuccess.Render("model " + id + " installed"))
	return nil
}

func modelRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <model>",
		Short: "Delete a downloaded whisper model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			models, err := modelManager(cfg)
			if err != nil {
				return err
			}
			if err := models.Remove(args[0]); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", args[0])
			return nil
		},
	}
}
