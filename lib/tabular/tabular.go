package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Table is an ordered-columns, ordered-rows structure with nil as the
// explicit null marker. Every row has exactly one cell per column.
type Table struct {
	Columns []string
	Rows    [][]any
}

// FromRecords builds a rectangular table out of flat records. The column set
// is the union of keys across all records in first-seen order (keys within a
// record are visited sorted, so the layout is deterministic); cells for keys
// a record doesn't carry are nil.
func FromRecords(records []map[string]any) *Table {
	t := &Table{}
	seen := map[string]int{}

	for _, record := range records {
		for _, col := range sortedKeys(record) {
			if _, ok := seen[col]; !ok {
				seen[col] = len(t.Columns)
				t.Columns = append(t.Columns, col)
			}
		}
	}

	for _, record := range records {
		row := make([]any, len(t.Columns))
		for col, value := range record {
			row[seen[col]] = value
		}
		t.Rows = append(t.Rows, row)
	}

	return t
}

// WriteCSV renders the table as comma-separated text, header first.
// Null cells render as empty fields.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Columns); err != nil {
		return err
	}

	fields := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, cell := range row {
			fields[i] = renderCell(cell)
		}
		if err := cw.Write(fields); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func renderCell(v any) string {
	switch cell := v.(type) {
	case nil:
		return ""
	case string:
		return cell
	case bool:
		return strconv.FormatBool(cell)
	case float64:
		// JSON numbers decode to float64, integral values should not
		// render a trailing ".0"
		return strconv.FormatFloat(cell, 'f', -1, 64)
	case int:
		return strconv.Itoa(cell)
	case int64:
		return strconv.FormatInt(cell, 10)
	default:
		return fmt.Sprint(cell)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
