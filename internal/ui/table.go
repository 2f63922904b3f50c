package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/ryanuber/columnize"
)

// Table collects rows and prints them as aligned columns.
type Table struct {
	headers []string
	rows    [][]string
}

func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends a row. Missing cells are rendered as empty, extra cells
// are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Render writes the header and every row to w.
func (t *Table) Render(w io.Writer) error {
	lines := make([]string, 0, len(t.rows)+1)
	lines = append(lines, strings.Join(t.headers, "|"))
	for _, row := range t.rows {
		cells := make([]string, len(row))
		for i, c := range row {
			// the column separator can't appear inside a cell
			cells[i] = strings.ReplaceAll(c, "|", "/")
		}
		lines = append(lines, strings.Join(cells, "|"))
	}

	cfg := columnize.DefaultConfig()
	cfg.Glue = "   "
	_, err := fmt.Fprintln(w, columnize.Format(lines, cfg))
	return err
}
