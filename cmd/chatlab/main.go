package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "chatlab",
		Short:   "ChatLab - normalize, merge and analyze exported chat histories",
		Version: version,
	}

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(mergeCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(sessionsCmd())
	rootCmd.AddCommand(formatsCmd())
	rootCmd.AddCommand(doctorCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
