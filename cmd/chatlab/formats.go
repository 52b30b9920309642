package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mama165/chatlab/internal/format"
	"github.com/mama165/chatlab/internal/render"
)

func formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the registered export formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			styled := term.IsTerminal(int(os.Stdout.Fd()))
			var rows [][]string
			for _, d := range format.Default().Descriptors() {
				rows = append(rows, []string{
					d.ID, d.Name, string(d.Platform),
					strconv.Itoa(d.Priority),
					strings.Join(d.Extensions, " "),
				})
			}
			fmt.Print(render.Table("Formats",
				[]string{"ID", "NAME", "PLATFORM", "PRIORITY", "EXTENSIONS"},
				rows, styled))
			return nil
		},
	}
}
