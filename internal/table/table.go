package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	// ErrDuplicateColumn indicates two columns share a name.
	ErrDuplicateColumn = errors.New("duplicate column name")
	// ErrEmptyTable indicates input without a header or without columns.
	ErrEmptyTable = errors.New("table has no columns")
	// ErrLengthMismatch indicates columns of different lengths.
	ErrLengthMismatch = errors.New("column lengths differ")
)

// Kind is the value type of a column, resolved once at ingestion.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Numeric reports whether values of this kind are numbers.
func (k Kind) Numeric() bool { return k == KindInt || k == KindFloat }

// Column holds the values of one named column. Only the slice matching Kind
// is populated; Missing is always populated and defines the column length.
// Values at missing positions are zero and must not be interpreted.
type Column struct {
	Name    string
	Kind    Kind
	Ints    []int64
	Floats  []float64
	Texts   []string
	Missing []bool
}

// NewIntColumn builds an integer column. missing may be nil.
func NewIntColumn(name string, vals []int64, missing []bool) *Column {
	return &Column{Name: name, Kind: KindInt, Ints: vals, Missing: fillMissing(missing, len(vals))}
}

// NewFloatColumn builds a float column. missing may be nil.
func NewFloatColumn(name string, vals []float64, missing []bool) *Column {
	return &Column{Name: name, Kind: KindFloat, Floats: vals, Missing: fillMissing(missing, len(vals))}
}

// NewTextColumn builds a text column. missing may be nil.
func NewTextColumn(name string, vals []string, missing []bool) *Column {
	return &Column{Name: name, Kind: KindText, Texts: vals, Missing: fillMissing(missing, len(vals))}
}

func fillMissing(m []bool, n int) []bool {
	if m != nil {
		return m
	}
	return make([]bool, n)
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Missing) }

// IsMissing reports whether row i holds a missing marker.
func (c *Column) IsMissing(i int) bool { return c.Missing[i] }

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, m := range c.Missing {
		if m {
			n++
		}
	}
	return n
}

// Float returns the numeric value at row i, or NaN for missing or text cells.
func (c *Column) Float(i int) float64 {
	if c.Missing[i] {
		return math.NaN()
	}
	switch c.Kind {
	case KindInt:
		return float64(c.Ints[i])
	case KindFloat:
		return c.Floats[i]
	default:
		return math.NaN()
	}
}

// String renders row i for display. Missing cells render as "".
func (c *Column) String(i int) string {
	if c.Missing[i] {
		return ""
	}
	switch c.Kind {
	case KindInt:
		return strconv.FormatInt(c.Ints[i], 10)
	case KindFloat:
		return strconv.FormatFloat(c.Floats[i], 'g', -1, 64)
	default:
		return c.Texts[i]
	}
}

// Take returns a new column holding the given rows in order.
func (c *Column) Take(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, Missing: make([]bool, len(rows))}
	switch c.Kind {
	case KindInt:
		out.Ints = make([]int64, len(rows))
	case KindFloat:
		out.Floats = make([]float64, len(rows))
	default:
		out.Texts = make([]string, len(rows))
	}
	for j, i := range rows {
		out.Missing[j] = c.Missing[i]
		switch c.Kind {
		case KindInt:
			out.Ints[j] = c.Ints[i]
		case KindFloat:
			out.Floats[j] = c.Floats[i]
		default:
			out.Texts[j] = c.Texts[i]
		}
	}
	return out
}

// Table is an ordered set of uniquely named, row-aligned columns.
// A Table is not mutated after construction.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
	// source is the data row count of the input before MaxRows; 0 if unknown.
	source int
}

// New assembles a table, checking name uniqueness and equal lengths.
func New(cols ...*Column) (*Table, error) {
	if len(cols) == 0 {
		return nil, ErrEmptyTable
	}
	t := &Table{cols: cols, index: make(map[string]int, len(cols)), rows: cols[0].Len()}
	for i, c := range cols {
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		if c.Len() != t.rows {
			return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrLengthMismatch, c.Name, c.Len(), t.rows)
		}
		t.index[c.Name] = i
	}
	return t, nil
}

// Rows returns the row count.
func (t *Table) Rows() int { return t.rows }

// SourceRows returns how many data rows the input had before any ingestion
// limit. It equals Rows when nothing was cut off.
func (t *Table) SourceRows() int {
	if t.source > t.rows {
		return t.source
	}
	return t.rows
}

// Width returns the column count.
func (t *Table) Width() int { return len(t.cols) }

// Columns returns the columns in order. The slice is a copy; columns are shared.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.cols))
	copy(out, t.cols)
	return out
}

// Names returns column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Has reports whether a column with the given name exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Take returns a new table with the given rows, in order.
func (t *Table) Take(rows []int) *Table {
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.Take(rows)
	}
	return &Table{cols: cols, index: t.index, rows: len(rows)}
}

// Drop returns a table without the named columns. Unknown names are ignored.
// The result may have zero columns.
func (t *Table) Drop(names ...string) *Table {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	out := &Table{index: map[string]int{}, rows: t.rows}
	for _, c := range t.cols {
		if _, ok := skip[c.Name]; ok {
			continue
		}
		out.index[c.Name] = len(out.cols)
		out.cols = append(out.cols, c)
	}
	return out
}

// Head returns the first n rows (or all rows if fewer).
func (t *Table) Head(n int) *Table {
	if n >= t.rows || n < 0 {
		return t
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return t.Take(rows)
}

// Record renders row i as strings in column order.
func (t *Table) Record(i int) []string {
	out := make([]string, len(t.cols))
	for j, c := range t.cols {
		out[j] = c.String(i)
	}
	return out
}
