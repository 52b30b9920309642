package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mama165/chatlab/internal/config"
	"github.com/mama165/chatlab/internal/render"
	"github.com/mama165/chatlab/internal/store"
)

func sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List imported sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			sessions, err := db.Sessions()
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(os.Stderr, "No sessions. Run 'chatlab import' first.")
				return nil
			}

			styled := term.IsTerminal(int(os.Stdout.Fd()))
			rows := make([][]string, 0, len(sessions))
			for _, s := range sessions {
				rows = append(rows, []string{
					s.ID, s.Name, s.Platform, s.ChatType,
					strconv.Itoa(s.MessageCount),
					time.Unix(s.ImportedAt, 0).Format("2006-01-02 15:04"),
				})
			}
			fmt.Print(render.Table("Sessions",
				[]string{"ID", "NAME", "PLATFORM", "TYPE", "MESSAGES", "IMPORTED"},
				rows, styled))
			return nil
		},
	}
}
