package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/speakstream/internal/history"
	"github.com/leonardotrapani/speakstream/internal/tui"
)

func openHistory() (*history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			entries := store.Entries()
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			fmt.Println(tui.RenderHistory(entries))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of entries to show, 0 for all")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete one transcript",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openHistory()
				if err != nil {
					return err
				}
				found, err := store.Delete(args[0])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("no transcript with id %s", args[0])
				}
				fmt.Println("deleted")
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every transcript",
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openHistory()
				if err != nil {
					return err
				}
				if err := store.Clear(); err != nil {
					return err
				}
				fmt.Println("history cleared")
				return nil
			},
		},
	)
	return cmd
}
