package tabular

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Render draws the table to w using go-pretty's light box style.
func (t *Table) Render(w io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, 0, len(t.Columns))
	for _, col := range t.Columns {
		header = append(header, col)
	}
	tw.AppendHeader(header)

	for _, cells := range t.Rows {
		row := make(table.Row, 0, len(cells))
		for _, cell := range cells {
			row = append(row, cell)
		}
		tw.AppendRow(row)
	}

	tw.Render()
}

// RenderCSV writes the table as CSV for piping into other tools.
func (t *Table) RenderCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("render csv: write header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("render csv: write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
