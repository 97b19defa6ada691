package report

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatCount renders n with thousand separators
func FormatCount(n int64) string {
	return printer.Sprintf("%d", n)
}

var (
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	headerStyle = cellStyle.Bold(true).Foreground(lipgloss.Color("5"))
)

// renderTable draws a bordered, column-aligned table. The plain variant
// carries no escape sequences and is what ends up in text exports.
func renderTable(headers []string, rows [][]string, styled bool) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if styled && row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}
