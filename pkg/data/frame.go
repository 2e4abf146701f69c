package data

import (
	"fmt"
	"math"
	"strconv"
)

var nan = math.NaN()

// Kind is the storage type of a column.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Column is a named, typed slice of cells.
// Numeric columns use NaN for missing values.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
}

// NumericColumn builds a numeric column; vals is not copied.
func NumericColumn(name string, vals []float64) Column {
	return Column{Name: name, Kind: Numeric, Floats: vals}
}

// CategoricalColumn builds a categorical column; vals is not copied.
func CategoricalColumn(name string, vals []string) Column {
	return Column{Name: name, Kind: Categorical, Strings: vals}
}

func (c Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// Cell renders row i as text; missing numeric values render empty.
func (c Column) Cell(i int) string {
	if c.Kind == Categorical {
		return c.Strings[i]
	}
	v := c.Floats[i]
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c Column) take(rows []int) Column {
	out := Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Numeric {
		out.Floats = make([]float64, len(rows))
		for i, r := range rows {
			out.Floats[i] = c.Floats[r]
		}
		return out
	}
	out.Strings = make([]string, len(rows))
	for i, r := range rows {
		out.Strings[i] = c.Strings[r]
	}
	return out
}

// Frame is an ordered set of equal-length columns.
// Methods never modify the receiver; they return new frames.
type Frame struct {
	cols  []Column
	index map[string]int
	rows  int
}

// NewFrame validates that columns have unique names and equal lengths.
func NewFrame(cols ...Column) (*Frame, error) {
	f := &Frame{cols: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := f.index[c.Name]; dup {
			return nil, fmt.Errorf("data: duplicate column %q", c.Name)
		}
		if i == 0 {
			f.rows = c.Len()
		} else if c.Len() != f.rows {
			return nil, fmt.Errorf("data: column %q has %d rows, want %d", c.Name, c.Len(), f.rows)
		}
		f.index[c.Name] = i
	}
	return f, nil
}

func mustFrame(cols []Column) *Frame {
	f, err := NewFrame(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.cols) }

// Names returns column names in frame order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.Name
	}
	return out
}

// Columns returns the columns in frame order. Callers must not modify them.
func (f *Frame) Columns() []Column { return f.cols }

func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column looks up a column by name.
func (f *Frame) Column(name string) (Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return Column{}, false
	}
	return f.cols[i], true
}

// Drop returns a frame without the named columns. Absent names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	out := make([]Column, 0, len(f.cols))
	for _, c := range f.cols {
		if !skip[c.Name] {
			out = append(out, c)
		}
	}
	g := mustFrame(out)
	g.rows = f.rows
	return g
}

// Select returns a frame holding the named columns in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := make([]Column, 0, len(names))
	for _, n := range names {
		c, ok := f.Column(n)
		if !ok {
			return nil, fmt.Errorf("data: no column %q", n)
		}
		out = append(out, c)
	}
	g, err := NewFrame(out...)
	if err != nil {
		return nil, err
	}
	g.rows = f.rows
	return g, nil
}

// With returns a frame where col replaces the column of the same name,
// or is appended when no such column exists.
func (f *Frame) With(col Column) (*Frame, error) {
	out := make([]Column, len(f.cols), len(f.cols)+1)
	copy(out, f.cols)
	if i, ok := f.index[col.Name]; ok {
		out[i] = col
	} else {
		out = append(out, col)
	}
	return NewFrame(out...)
}

// Take returns the given rows, in the given order.
func (f *Frame) Take(rows []int) *Frame {
	out := make([]Column, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.take(rows)
	}
	g := mustFrame(out)
	g.rows = len(rows)
	return g
}

// Filter keeps rows where keep[i] is true and returns their source indices.
func (f *Frame) Filter(keep []bool) (*Frame, []int) {
	rows := make([]int, 0, f.rows)
	for i := 0; i < f.rows; i++ {
		if keep[i] {
			rows = append(rows, i)
		}
	}
	return f.Take(rows), rows
}
