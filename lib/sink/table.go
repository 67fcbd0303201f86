// Package sink persists scraped records as pipe-delimited flat files. Every
// write is flushed before returning so a killed run leaves only complete
// rows behind; resuming appends to the same files without rewriting headers.
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Delimiter separates fields. A pipe is used instead of a comma so free-text
// fields (reviews, synopses) survive without quoting games.
const Delimiter = '|'

var valueSanitizer = strings.NewReplacer(
	string(Delimiter), " ",
	"\r", " ",
	"\n", " ",
)

// Sanitize strips the field and row delimiters out of a value so one bad
// capture can never corrupt the table structure.
func Sanitize(v string) string {
	return valueSanitizer.Replace(v)
}

// Table appends rows to a delimited file. Whether the header has been
// emitted is tracked explicitly rather than probed from the filesystem on
// every write.
type Table struct {
	path          string
	file          *os.File
	writer        *csv.Writer
	header        []string
	headerWritten bool
}

// OpenTable opens (creating if needed) an append-mode table. The header row
// is written once, only when the file is empty.
func OpenTable(path string, header []string) (*Table, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open table %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat table %s: %w", path, err)
	}

	t := &Table{
		path:          path,
		file:          file,
		writer:        newWriter(file),
		header:        header,
		headerWritten: info.Size() > 0,
	}
	return t, nil
}

func newWriter(file *os.File) *csv.Writer {
	w := csv.NewWriter(file)
	w.Comma = Delimiter
	return w
}

func (t *Table) Path() string {
	return t.path
}

// Append sanitizes and writes one row, flushing it to disk before returning.
func (t *Table) Append(values []string) error {
	if !t.headerWritten {
		if err := t.writer.Write(t.header); err != nil {
			return fmt.Errorf("write header to %s: %w", t.path, err)
		}
		t.headerWritten = true
	}

	row := make([]string, len(values))
	for i, v := range values {
		row[i] = Sanitize(v)
	}
	if err := t.writer.Write(row); err != nil {
		return fmt.Errorf("write row to %s: %w", t.path, err)
	}

	t.writer.Flush()
	if err := t.writer.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", t.path, err)
	}
	return nil
}

// AppendAll writes a batch of rows (one user's ratings, one title's reviews)
// in order.
func (t *Table) AppendAll(rows [][]string) error {
	for _, row := range rows {
		if err := t.Append(row); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) Close() error {
	return t.file.Close()
}

// WriteTable replaces the file at path with a header plus the given rows.
// Used for the catalog dataset, which is produced whole at the end of a walk.
func WriteTable(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create table %s: %w", path, err)
	}
	defer file.Close()

	w := newWriter(file)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header to %s: %w", path, err)
	}
	for _, values := range rows {
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = Sanitize(v)
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row to %s: %w", path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}

// ReadColumn reads one named column from a table written with this package.
func ReadColumn(path, column string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table %s: %w", path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.Comma = Delimiter
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse table %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("table %s has no header", path)
	}

	idx := -1
	for i, name := range rows[0] {
		if name == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("table %s has no column %q", path, column)
	}

	out := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if idx < len(row) {
			out = append(out, row[idx])
		}
	}
	return out, nil
}
