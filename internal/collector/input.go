// Package collector reads URL inputs and labeled datasets, and writes run
// artifacts with an integrity manifest.
package collector

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrColumnNotFound is returned when a CSV lacks the requested column.
var ErrColumnNotFound = errors.New("column not found")

const maxLineBytes = 1 << 20

// ReadURLs loads URLs from path. Files ending in .csv are read as CSV and the
// named column is used; anything else is read as one URL per line, skipping
// blank lines and lines starting with '#'.
func ReadURLs(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadURLColumn(f, column)
	}
	return ReadURLLines(f)
}

// ReadURLLines reads one URL per line.
func ReadURLLines(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(Decode(r))
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return urls, nil
}

// ReadURLColumn reads the named column of a CSV with a header row.
// Empty cells are skipped.
func ReadURLColumn(r io.Reader, column string) ([]string, error) {
	cr := NewCSVReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := ColumnIndex(header, column)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}

	var urls []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if idx >= len(rec) {
			continue
		}
		if u := strings.TrimSpace(rec[idx]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

// Decode converts UTF-16 input (detected by its byte order mark) to UTF-8
// and drops a UTF-8 byte order mark. Other input passes through unchanged.
func Decode(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// NewCSVReader returns a lenient CSV reader over Decode(r): rows may have
// any number of fields and bare quotes are accepted.
func NewCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(Decode(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// ColumnIndex finds name in header, ignoring case, surrounding spaces and a
// UTF-8 byte order mark.
func ColumnIndex(header []string, name string) int {
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}
