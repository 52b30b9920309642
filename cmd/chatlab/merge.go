package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mama165/chatlab/internal/config"
	"github.com/mama165/chatlab/internal/format"
	"github.com/mama165/chatlab/internal/merge"
	"github.com/mama165/chatlab/internal/store"
)

func mergeCmd() *cobra.Command {
	var name, outDir string
	var doImport bool
	var resolves []string

	cmd := &cobra.Command{
		Use:   "merge <file>...",
		Short: "Merge exports of one conversation into a ChatLab archive",
		Long: `Merges two or more exports of the same conversation: members are
unified, duplicate messages collapse by (timestamp, sender, length)
fingerprint, and the result is written as a .chatlab.json archive.

Conflicts found by 'chatlab check' can be resolved with
  --resolve <id>=first|second|both`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			resolutions, err := parseResolutions(resolves)
			if err != nil {
				return err
			}

			params := merge.Params{
				Paths:       args,
				Name:        name,
				OutputDir:   outDir,
				Resolutions: resolutions,
			}
			if params.OutputDir == "" {
				params.OutputDir = cfg.OutputDir
			}

			var db *store.DB
			if doImport {
				db, err = store.Open(cfg.DBPath)
				if err != nil {
					return fmt.Errorf("open db: %w", err)
				}
				defer db.Close()
				params.Store = db
			}

			res, err := merge.Merge(format.Default(), params)
			if err != nil {
				return err
			}

			fmt.Printf("wrote %s (%d members, %d messages)\n",
				res.OutputPath, res.Members, res.Messages)
			if res.SessionID != "" {
				fmt.Printf("imported as session %s\n", res.SessionID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Output conversation name (default: first file's)")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default: configured output_dir)")
	cmd.Flags().BoolVar(&doImport, "import", false, "Import the merged archive as a session")
	cmd.Flags().StringArrayVar(&resolves, "resolve", nil, "Conflict resolution <id>=first|second|both (repeatable)")

	return cmd
}

func parseResolutions(specs []string) (map[string]merge.Resolution, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string]merge.Resolution, len(specs))
	for _, spec := range specs {
		id, choice, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --resolve %q, want <id>=first|second|both", spec)
		}
		switch choice {
		case "first":
			out[id] = merge.KeepFirst
		case "second":
			out[id] = merge.KeepSecond
		case "both":
			out[id] = merge.KeepBoth
		default:
			return nil, fmt.Errorf("invalid resolution %q for conflict %s", choice, id)
		}
	}
	return out, nil
}
