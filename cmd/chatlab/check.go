package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mama165/chatlab/internal/format"
	"github.com/mama165/chatlab/internal/merge"
	"github.com/mama165/chatlab/internal/render"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Detect conflicts between exports of the same conversation",
		Long: `Parses every input file and reports messages that share timestamp and
sender but differ in content across files. Conflict ids can be fed to
'chatlab merge --resolve'.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := merge.CheckConflicts(format.Default(), args)
			if err != nil {
				return err
			}

			styled := term.IsTerminal(int(os.Stdout.Fd()))
			rows := make([][]string, 0, len(report.Conflicts))
			for _, c := range report.Conflicts {
				ts := time.Unix(c.Timestamp, 0).Format("2006-01-02 15:04:05")
				rows = append(rows, []string{
					c.ID, ts, c.SenderName,
					strconv.Itoa(c.FirstLen) + " / " + strconv.Itoa(c.SecondLen),
					c.FirstSnippet, c.SecondSnippet,
				})
			}
			if len(rows) > 0 {
				fmt.Print(render.Table("Conflicts",
					[]string{"ID", "TIME", "SENDER", "LEN", "FIRST", "SECOND"},
					rows, styled))
			}
			fmt.Print(render.Line("conflicts", strconv.Itoa(len(report.Conflicts)), styled))
			fmt.Print(render.Line("unique messages", strconv.Itoa(report.TotalMessages), styled))
			return nil
		},
	}
}
