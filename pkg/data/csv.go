package data

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
)

// ReadCSV loads a headed CSV file into a Frame. Columns named in text are
// kept as categorical strings even when every cell looks numeric.
func ReadCSV(path string, text ...string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errs.IO(path, err)
	}
	defer file.Close()

	f, err := DecodeCSV(bufio.NewReader(file), text...)
	if err != nil {
		return nil, errs.WithPath(err, path)
	}
	return f, nil
}

// DecodeCSV reads a headed CSV stream. A column is numeric when every
// non-blank cell parses as a float; blank numeric cells become NaN. Columns
// named in text skip inference and keep their raw cells.
func DecodeCSV(r io.Reader, text ...string) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errs.Schemaf("", "csv has no header row")
	}
	if err != nil {
		return nil, errs.IO("", err)
	}
	if len(header) == 0 || (len(header) == 1 && strings.TrimSpace(header[0]) == "") {
		return nil, errs.Schemaf("", "csv header is empty")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	raw := make([][]string, len(header))
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// ragged or badly quoted rows make the file unreadable as a table
			return nil, errs.IO("", err)
		}
		for j, s := range rec {
			raw[j] = append(raw[j], s)
		}
	}

	keepText := make(map[string]bool, len(text))
	for _, name := range text {
		keepText[name] = true
	}
	cols := make([]Column, len(header))
	for j, name := range header {
		if keepText[name] {
			cells := raw[j]
			if cells == nil {
				cells = []string{}
			}
			cols[j] = CategoricalColumn(name, cells)
			continue
		}
		cols[j] = inferColumn(name, raw[j])
	}
	f, err := NewFrame(cols...)
	if err != nil {
		return nil, errs.Schemaf("", "%v", err)
	}
	return f, nil
}

func inferColumn(name string, cells []string) Column {
	if cells == nil {
		cells = []string{}
	}
	nums := make([]float64, len(cells))
	seen := false
	for i, s := range cells {
		s = strings.TrimSpace(s)
		if s == "" {
			nums[i] = nan
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return CategoricalColumn(name, cells)
		}
		nums[i] = v
		seen = true
	}
	if !seen && len(cells) > 0 {
		// an all-blank column carries no type evidence; keep the text
		return CategoricalColumn(name, cells)
	}
	return NumericColumn(name, nums)
}

// EncodeCSV writes f with a header row.
func EncodeCSV(w io.Writer, f *Frame) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(f.Names()); err != nil {
		return err
	}
	rec := make([]string, f.Width())
	for i := 0; i < f.Len(); i++ {
		for j, c := range f.cols {
			rec[j] = c.Cell(i)
		}
		if err := writer.Write(rec); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCSV atomically replaces path with the CSV encoding of f.
func WriteCSV(path string, f *Frame) error {
	return WriteFileAtomic(path, func(w io.Writer) error { return EncodeCSV(w, f) })
}

// WriteFileAtomic writes through a temp file in the target directory and
// renames it into place, so readers never observe a partial file.
func WriteFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.IO(path, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return errs.IO(path, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		return errs.IO(path, err)
	}
	if err := bw.Flush(); err != nil {
		return errs.IO(path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return errs.IO(path, err)
	}
	if err := tmp.Sync(); err != nil {
		return errs.IO(path, err)
	}
	if err := tmp.Close(); err != nil {
		return errs.IO(path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errs.IO(path, err)
	}
	committed = true
	return nil
}
