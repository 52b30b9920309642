// Package render prints ranked analytics tables, styled on a terminal
// and as plain TSV when piped.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	styleHeader = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")). // bright blue
			Bold(true)

	styleRank = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")). // bright yellow
			Bold(true)

	styleDim = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	styleTitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")). // bright green
			Bold(true)
)

// Table renders headers and rows with runewidth-aware column padding,
// so CJK display names line up. With styled=false the output is plain
// TSV, suitable for piping.
func Table(title string, headers []string, rows [][]string, styled bool) string {
	var b strings.Builder

	if !styled {
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
		return b.String()
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && runewidth.StringWidth(cell) > widths[i] {
				widths[i] = runewidth.StringWidth(cell)
			}
		}
	}

	if title != "" {
		b.WriteString(styleTitle.Render(title))
		b.WriteByte('\n')
	}
	for i, h := range headers {
		b.WriteString(styleHeader.Render(pad(h, widths[i])))
		if i < len(headers)-1 {
			b.WriteString("  ")
		}
	}
	b.WriteByte('\n')
	b.WriteString(styleDim.Render(strings.Repeat("-", totalWidth(widths))))
	b.WriteByte('\n')

	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if i == 0 {
				b.WriteString(styleRank.Render(pad(cell, widths[i])))
			} else {
				b.WriteString(pad(cell, widths[i]))
			}
			if i < len(row)-1 {
				b.WriteString("  ")
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func pad(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

func totalWidth(widths []int) int {
	total := 0
	for _, w := range widths {
		total += w + 2
	}
	if total >= 2 {
		total -= 2
	}
	return total
}

// Line formats a single labelled value, dimming the label when styled.
func Line(label, value string, styled bool) string {
	if !styled {
		return fmt.Sprintf("%s\t%s\n", label, value)
	}
	return fmt.Sprintf("%s %s\n", styleDim.Render(label+":"), value)
}
