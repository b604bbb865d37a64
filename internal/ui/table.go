package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table renders rows under headers with the shared palette. A row whose
// muted flag is set is drawn in MutedColor.
type Table struct {
	Headers []string
	rows    [][]string
	muted   []bool
}

// NewTable starts a table with the given column titles.
func NewTable(headers ...string) *Table {
	return &Table{Headers: headers}
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) *Table {
	t.rows = append(t.rows, cells)
	t.muted = append(t.muted, false)
	return t
}

// AddMutedRow appends a row drawn in MutedColor.
func (t *Table) AddMutedRow(cells ...string) *Table {
	t.rows = append(t.rows, cells)
	t.muted = append(t.muted, true)
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render returns the styled table.
func (t *Table) Render() string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(PrimaryColor)).
		Headers(t.Headers...).
		Rows(t.rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row >= 0 && row < len(t.muted) && t.muted[row]:
				return TableMutedCellStyle
			default:
				return TableCellStyle
			}
		}).
		String()
}

// String implements fmt.Stringer
func (t *Table) String() string {
	return t.Render()
}
