package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mama165/chatlab/internal/config"
	"github.com/mama165/chatlab/internal/format"
	"github.com/mama165/chatlab/internal/store"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify config, DB and formats, show stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			fmt.Println("=== Config ===")
			fmt.Printf("  DB:        %s\n", cfg.DBPath)
			fmt.Printf("  Output:    %s\n", cfg.OutputDir)
			fmt.Printf("  Timezone:  %s\n", cfg.Timezone)
			if _, err := cfg.Location(); err != nil {
				fmt.Printf("  Status: BAD TIMEZONE (%v)\n", err)
			}

			fmt.Println("\n=== Formats ===")
			for _, d := range format.Default().Descriptors() {
				fmt.Printf("  %-10s priority=%d (%s)\n", d.ID, d.Priority, d.Name)
			}

			fmt.Println("\n=== Database ===")
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Println("  Status: NOT FOUND (run 'chatlab import' first)")
				return nil
			}
			db, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			sessions, err := db.SessionCount()
			if err != nil {
				return fmt.Errorf("count sessions: %w", err)
			}
			messages, err := db.MessageCount()
			if err != nil {
				return fmt.Errorf("count messages: %w", err)
			}
			fmt.Printf("  Sessions: %d\n", sessions)
			fmt.Printf("  Messages: %d\n", messages)

			if info, err := os.Stat(cfg.DBPath); err == nil {
				fmt.Printf("  Size: %.1f MB\n", float64(info.Size())/1024/1024)
			}
			return nil
		},
	}
}
