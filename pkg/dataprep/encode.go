package dataprep

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/data"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
)

// UnknownCode is assigned to category values that were not seen at fit time.
const UnknownCode = -1

// ColumnCodes maps one column's values to codes: Values[i] has code i.
type ColumnCodes struct {
	Name   string
	Values []string
}

// Code returns the code for v, or UnknownCode.
func (c ColumnCodes) Code(v string) int {
	for i, s := range c.Values {
		if s == v {
			return i
		}
	}
	return UnknownCode
}

// Encoding is the persisted category mapping for every categorical column,
// in frame order. It is produced once by FitEncoding and only read afterwards.
type Encoding struct {
	Columns []ColumnCodes
}

// FitEncoding assigns codes in first-seen order to every categorical column
// of f except the ones listed in skip.
func FitEncoding(f *data.Frame, skip ...string) Encoding {
	excluded := make(map[string]bool, len(skip))
	for _, s := range skip {
		excluded[s] = true
	}
	var enc Encoding
	for _, col := range f.Columns() {
		if col.Kind != data.Categorical || excluded[col.Name] {
			continue
		}
		seen := map[string]bool{}
		codes := ColumnCodes{Name: col.Name, Values: []string{}}
		for _, v := range col.Strings {
			if !seen[v] {
				seen[v] = true
				codes.Values = append(codes.Values, v)
			}
		}
		enc.Columns = append(enc.Columns, codes)
	}
	return enc
}

// Lookup returns the codes for a column.
func (e Encoding) Lookup(name string) (ColumnCodes, bool) {
	for _, c := range e.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnCodes{}, false
}

// Names lists the encoded columns in fit order.
func (e Encoding) Names() []string {
	out := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		out[i] = c.Name
	}
	return out
}

// Fingerprint hashes the canonical form of the mapping.
func (e Encoding) Fingerprint() string {
	h := sha256.New()
	var n [8]byte
	writeString := func(s string) {
		binary.BigEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	for _, c := range e.Columns {
		writeString(c.Name)
		binary.BigEndian.PutUint64(n[:], uint64(len(c.Values)))
		h.Write(n[:])
		for _, v := range c.Values {
			writeString(v)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ApplyResult is an encoded frame plus how many unseen values each column had.
type ApplyResult struct {
	Frame   *data.Frame
	Unknown map[string]int
}

// Apply replaces every mapped column with its integer codes. The mapping is
// never extended: unseen values become UnknownCode. Any categorical column
// left unmapped (other than skip) is a schema error.
func (e Encoding) Apply(f *data.Frame, skip ...string) (*ApplyResult, error) {
	excluded := make(map[string]bool, len(skip))
	for _, s := range skip {
		excluded[s] = true
	}
	res := &ApplyResult{Frame: f, Unknown: map[string]int{}}
	for _, codes := range e.Columns {
		col, ok := res.Frame.Column(codes.Name)
		if !ok {
			return nil, errs.Schemaf(codes.Name, "encoded column is missing")
		}
		if col.Kind != data.Categorical {
			return nil, errs.Schemaf(codes.Name, "want categorical column, got %v", col.Kind)
		}
		index := make(map[string]int, len(codes.Values))
		for i, v := range codes.Values {
			index[v] = i
		}
		out := make([]float64, len(col.Strings))
		for i, v := range col.Strings {
			code, ok := index[v]
			if !ok {
				code = UnknownCode
				res.Unknown[codes.Name]++
			}
			out[i] = float64(code)
		}
		next, err := res.Frame.With(data.NumericColumn(codes.Name, out))
		if err != nil {
			return nil, err
		}
		res.Frame = next
	}
	for _, col := range res.Frame.Columns() {
		if col.Kind == data.Categorical && !excluded[col.Name] {
			return nil, errs.Schemaf(col.Name, "categorical column has no persisted encoding")
		}
	}
	return res, nil
}
