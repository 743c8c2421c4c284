package collector

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/iyulab/phish-triage/internal/features"
)

// Label values of a prepared dataset.
const (
	LabelGood = 0
	LabelBad  = 1
)

// PrepareStats reports what PrepareDataset kept and dropped.
type PrepareStats struct {
	Rows     int            `json:"rows"`
	Good     int            `json:"good"`
	Bad      int            `json:"bad"`
	Dropped  int            `json:"dropped"`
	Unmapped map[string]int `json:"unmapped,omitempty"`
}

// PrepareDataset converts a raw labeled URL dataset (columns URL and Label,
// with labels good/bad) into url,label_text,label rows. Rows with other
// labels are dropped and counted.
func PrepareDataset(in, out string) (PrepareStats, error) {
	stats := PrepareStats{Unmapped: map[string]int{}}

	src, err := os.Open(in)
	if err != nil {
		return stats, fmt.Errorf("open dataset: %w", err)
	}
	defer src.Close()

	cr := NewCSVReader(src)
	header, err := cr.Read()
	if err != nil {
		return stats, fmt.Errorf("read header: %w", err)
	}
	urlIdx, labelIdx := ColumnIndex(header, "url"), ColumnIndex(header, "label")
	if urlIdx < 0 {
		return stats, fmt.Errorf("%w: %q", ErrColumnNotFound, "URL")
	}
	if labelIdx < 0 {
		return stats, fmt.Errorf("%w: %q", ErrColumnNotFound, "Label")
	}

	err = writeCSV(out, func(w *csv.Writer) error {
		if err := w.Write([]string{"url", "label_text", "label"}); err != nil {
			return err
		}
		for {
			rec, err := cr.Read()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read row: %w", err)
			}
			stats.Rows++
			if urlIdx >= len(rec) || labelIdx >= len(rec) {
				stats.Dropped++
				continue
			}
			url := strings.TrimSpace(rec[urlIdx])
			text := strings.ToLower(strings.TrimSpace(rec[labelIdx]))
			var label int
			switch text {
			case "good":
				label = LabelGood
				stats.Good++
			case "bad":
				label = LabelBad
				stats.Bad++
			default:
				stats.Dropped++
				stats.Unmapped[text]++
				continue
			}
			if err := w.Write([]string{url, text, strconv.Itoa(label)}); err != nil {
				return err
			}
		}
	})
	return stats, err
}

// ExtractDataset reads a prepared dataset and writes one feature row per URL,
// followed by url, label_text and label. It returns the number of rows written.
func ExtractDataset(in, out string) (int, error) {
	src, err := os.Open(in)
	if err != nil {
		return 0, fmt.Errorf("open dataset: %w", err)
	}
	defer src.Close()

	cr := NewCSVReader(src)
	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	urlIdx := ColumnIndex(header, "url")
	if urlIdx < 0 {
		return 0, fmt.Errorf("%w: %q", ErrColumnNotFound, "url")
	}
	textIdx, labelIdx := ColumnIndex(header, "label_text"), ColumnIndex(header, "label")

	n := 0
	err = writeCSV(out, func(w *csv.Writer) error {
		cols := make([]string, 0, features.Count+3)
		cols = append(cols, features.Names[:]...)
		cols = append(cols, "url", "label_text", "label")
		if err := w.Write(cols); err != nil {
			return err
		}
		for {
			rec, err := cr.Read()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read row: %w", err)
			}
			if urlIdx >= len(rec) {
				continue
			}
			url := rec[urlIdx]
			vals := features.Extract(url).Values()
			row := make([]string, 0, len(cols))
			for _, v := range vals {
				row = append(row, strconv.Itoa(int(v)))
			}
			row = append(row, url, cell(rec, textIdx), cell(rec, labelIdx))
			if err := w.Write(row); err != nil {
				return err
			}
			n++
		}
	})
	return n, err
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

// writeCSV creates path (and its directory) and hands a csv.Writer to fn.
func writeCSV(path string, fn func(w *csv.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := fn(w); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}
