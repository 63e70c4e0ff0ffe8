package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Row holds one record of a batch as column name -> cell value.
// A cell is nil (absent), string, float64, bool or time.Time.
type Row map[string]any

// Frame is an in-memory tabular batch: an ordered column list plus rows.
// It is the exchange format between the extraction gateway, the enrichment
// pipeline and the serialization gateway. Frames are mutated in place by the
// pipeline stages; a report run never shares a frame between goroutines.
type Frame struct {
	columns []string
	rows    []Row
}

// NewFrame creates an empty frame with the given column order.
func NewFrame(columns ...string) *Frame {
	return &Frame{columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.rows)
}

// Columns returns a copy of the column order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// HasColumn reports whether the named column exists in the frame.
func (f *Frame) HasColumn(name string) bool {
	for _, c := range f.columns {
		if c == name {
			return true
		}
	}
	return false
}

// HasColumns reports whether every named column exists in the frame.
func (f *Frame) HasColumns(names ...string) bool {
	for _, n := range names {
		if !f.HasColumn(n) {
			return false
		}
	}
	return true
}

// Append adds a row. Cells for columns the frame does not declare are kept
// in the row map but invisible until the column is added.
func (f *Frame) Append(row Row) {
	if row == nil {
		row = Row{}
	}
	f.rows = append(f.rows, row)
}

// Value returns the cell at row i, or nil when the column is absent.
func (f *Frame) Value(i int, column string) any {
	return f.rows[i][column]
}

// SetValue sets the cell at row i.
func (f *Frame) SetValue(i int, column string, v any) {
	f.rows[i][column] = v
}

// Row returns the i-th row map. The map is shared, not copied.
func (f *Frame) Row(i int) Row {
	return f.rows[i]
}

// AddColumn declares a new column filled with the given value for every
// existing row. Adding an already declared column only refills it.
func (f *Frame) AddColumn(name string, fill any) {
	if !f.HasColumn(name) {
		f.columns = append(f.columns, name)
	}
	for _, row := range f.rows {
		row[name] = fill
	}
}

// EnsureColumn declares a column filled with the given value only when the
// frame does not carry it yet. Existing cells are left untouched.
func (f *Frame) EnsureColumn(name string, fill any) {
	if f.HasColumn(name) {
		return
	}
	f.AddColumn(name, fill)
}

// DropColumns removes the named columns. Unknown names are ignored, matching
// the tolerant column contract of the extraction layer.
func (f *Frame) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := f.columns[:0]
	for _, c := range f.columns {
		if !drop[c] {
			kept = append(kept, c)
		}
	}
	f.columns = kept
	for _, row := range f.rows {
		for n := range drop {
			delete(row, n)
		}
	}
}

// Select reorders the frame to the given columns, silently skipping names
// the frame does not carry. Cells of unselected columns are discarded.
func (f *Frame) Select(columns ...string) {
	selected := make([]string, 0, len(columns))
	keep := make(map[string]bool, len(columns))
	for _, c := range columns {
		if f.HasColumn(c) && !keep[c] {
			selected = append(selected, c)
			keep[c] = true
		}
	}
	var dropped []string
	for _, c := range f.columns {
		if !keep[c] {
			dropped = append(dropped, c)
		}
	}
	f.DropColumns(dropped...)
	f.columns = selected
}

// Filter keeps only rows for which keep returns true, preserving order.
func (f *Frame) Filter(keep func(Row) bool) {
	kept := f.rows[:0]
	for _, row := range f.rows {
		if keep(row) {
			kept = append(kept, row)
		}
	}
	f.rows = kept
}

// SortBy stable-sorts rows by the text form of the given columns. It exists
// so callers of the dedup gate can pin which duplicate survives instead of
// inheriting the extraction order by accident.
func (f *Frame) SortBy(columns ...string) {
	sort.SliceStable(f.rows, func(i, j int) bool {
		for _, c := range columns {
			a, b := Text(f.rows[i][c]), Text(f.rows[j][c])
			if a != b {
				return a < b
			}
		}
		return false
	})
}

// LeftJoin attaches the take columns of the first matching right row to every
// row of f, matching on equal text form of the on columns. Rows without a
// match get nil cells. When the same key occurs more than once on the right,
// the first occurrence wins.
func (f *Frame) LeftJoin(right *Frame, on []string, take []string) {
	lookup := make(map[string]Row, right.Len())
	for i := 0; i < right.Len(); i++ {
		key := right.CompositeKey(i, on, "::")
		if _, ok := lookup[key]; !ok {
			lookup[key] = right.Row(i)
		}
	}
	for _, col := range take {
		f.EnsureColumn(col, nil)
	}
	for i := range f.rows {
		match, ok := lookup[f.CompositeKey(i, on, "::")]
		if !ok {
			continue
		}
		for _, col := range take {
			f.rows[i][col] = match[col]
		}
	}
}

// CompositeKey builds a text key for row i from the given columns: each cell
// coerced to text, trimmed, upper-cased and joined with sep. Absent cells
// contribute an empty segment, so a null color and an empty color collide on
// purpose (the source records both forms for the same article).
func (f *Frame) CompositeKey(i int, columns []string, sep string) string {
	parts := make([]string, len(columns))
	for n, c := range columns {
		parts[n] = strings.ToUpper(strings.TrimSpace(Text(f.rows[i][c])))
	}
	return strings.Join(parts, sep)
}

// Number coerces a cell to float64 for arithmetic. Absent cells and
// unparseable text count as zero, mirroring the fill-with-zero contract of
// every monetary and quantity column in the pipeline.
func Number(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// IsNull reports whether a cell is absent. A zero or an empty string is
// present; only nil counts as absent, so counting and arithmetic can differ.
func IsNull(v any) bool {
	return v == nil
}

// HasText reports whether a cell carries non-blank text. Used where presence
// of an identifier matters, e.g. a resolved canonical code.
func HasText(v any) bool {
	s, ok := v.(string)
	if ok {
		return strings.TrimSpace(s) != ""
	}
	return v != nil
}

// Text coerces a cell to its text form for key building and CSV output.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return ""
	}
}
