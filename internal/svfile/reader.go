// Package svfile reads structural variant and copy number event tables.
package svfile

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Missing marks an absent value in a table cell.
const Missing = "."

// table reads a tab-separated file with a header row naming its columns.
type table struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	columns    map[string]int
	kind       string
}

// openTable opens a plain or gzipped table. Gzip is detected from the magic bytes.
func openTable(path, kind string) (*table, error) {
	if path == "-" {
		return newTable(os.Stdin, kind)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s file: %w", kind, err)
	}

	t := &table{file: file, kind: kind}

	buf := make([]byte, 2)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read %s header: %w", kind, err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek %s file: %w", kind, err)
	}

	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		t.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		t.reader = bufio.NewReader(t.gzipReader)
	} else {
		t.reader = bufio.NewReader(file)
	}

	if err := t.parseHeader(); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

func newTable(r io.Reader, kind string) (*table, error) {
	t := &table{reader: bufio.NewReader(r), kind: kind}
	if err := t.parseHeader(); err != nil {
		return nil, err
	}
	return t, nil
}

// parseHeader reads the column names, skipping blank lines and ## comments.
func (t *table) parseHeader() error {
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return &ParseError{Kind: t.kind, Line: t.lineNumber, Message: "no header line found"}
			}
			return fmt.Errorf("read %s header: %w", t.kind, err)
		}
		t.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, "##") {
			continue
		}

		t.columns = make(map[string]int)
		for i, name := range strings.Split(strings.TrimPrefix(line, "#"), "\t") {
			t.columns[strings.ToLower(strings.TrimSpace(name))] = i
		}
		return nil
	}
}

// next returns the fields of the next data row, or nil at end of input.
func (t *table) next() ([]string, error) {
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read %s line: %w", t.kind, err)
		}
		t.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return strings.Split(line, "\t"), nil
	}
}

// require checks that the header names every given column.
func (t *table) require(names ...string) error {
	for _, n := range names {
		if _, ok := t.columns[n]; !ok {
			return &ParseError{Kind: t.kind, Line: t.lineNumber, Message: fmt.Sprintf("missing column %q", n)}
		}
	}
	return nil
}

// field returns a cell by column name, or Missing when the column or cell is absent.
func (t *table) field(fields []string, name string) string {
	i, ok := t.columns[name]
	if !ok || i >= len(fields) {
		return Missing
	}
	v := strings.TrimSpace(fields[i])
	if v == "" {
		return Missing
	}
	return v
}

func (t *table) errorf(format string, args ...any) error {
	return &ParseError{Kind: t.kind, Line: t.lineNumber, Message: fmt.Sprintf(format, args...)}
}

func (t *table) intField(fields []string, name string, def int64) (int64, error) {
	s := t.field(fields, name)
	if s == Missing {
		return def, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, t.errorf("invalid %s: %s", name, s)
	}
	return v, nil
}

func (t *table) floatField(fields []string, name string, def float64) (float64, bool, error) {
	s := t.field(fields, name)
	if s == Missing {
		return def, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, t.errorf("invalid %s: %s", name, s)
	}
	return v, true, nil
}

// Close closes the underlying file.
func (t *table) Close() error {
	if t.gzipReader != nil {
		t.gzipReader.Close()
	}
	if t.file != nil {
		return t.file.Close()
	}
	return nil
}

// ParseError represents an error during table parsing with line context.
type ParseError struct {
	Kind    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s parse error at line %d: %s", e.Kind, e.Line, e.Message)
}
