package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mama165/chatlab/internal/config"
	"github.com/mama165/chatlab/internal/format"
	"github.com/mama165/chatlab/internal/parse"
	"github.com/mama165/chatlab/internal/store"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "Parse export files and import each as a session",
		Args:  cobra.MinimumNArgs(1),
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

			reg := format.Default()
			for _, path := range args {
				desc, err := reg.Detect(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "%s: %s\n", path, desc.Name)

				opts := parse.Options{
					BatchSize: cfg.BatchSize,
					Progress: func(p parse.Progress) {
						if p.BytesTotal > 0 {
							fmt.Fprintf(os.Stderr, "\r  %d messages (%d%%)",
								p.Messages, p.BytesRead*100/p.BytesTotal)
						}
					},
				}
				corpus, err := parse.ParseFile(desc.Parser, path, opts)
				if err != nil {
					return fmt.Errorf("parse %s: %w", path, err)
				}
				fmt.Fprintln(os.Stderr)

				sessionID, err := db.Import(corpus)
				if err != nil {
					return fmt.Errorf("import %s: %w", path, err)
				}
				fmt.Printf("%s\t%d members\t%d messages\t%s\n",
					sessionID, len(corpus.Members), len(corpus.Messages), corpus.Meta.Name)
			}
			return nil
		},
	}
}
