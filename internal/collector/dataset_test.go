package collector

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/iyulab/phish-triage/internal/features"
)

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return recs
}

func TestPrepareDataset(t *testing.T) {
	in := writeTemp(t, "raw.csv", "URL,Label\nhttp://a.example/,good\nhttp://b.tk/login,BAD\nhttp://c.example/,unknown\n")
	out := filepath.Join(t.TempDir(), "prepared", "data.csv")

	stats, err := PrepareDataset(in, out)
	if err != nil {
		t.Fatalf("PrepareDataset: %v", err)
	}
	if stats.Rows != 3 || stats.Good != 1 || stats.Bad != 1 || stats.Dropped != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Unmapped["unknown"] != 1 {
		t.Errorf("unmapped = %v", stats.Unmapped)
	}

	recs := readAll(t, out)
	want := [][]string{
		{"url", "label_text", "label"},
		{"http://a.example/", "good", "0"},
		{"http://b.tk/login", "bad", "1"},
	}
	if len(recs) != len(want) {
		t.Fatalf("rows = %d, want %d", len(recs), len(want))
	}
	for i := range want {
		for j := range want[i] {
			if recs[i][j] != want[i][j] {
				t.Errorf("row %d col %d = %q, want %q", i, j, recs[i][j], want[i][j])
			}
		}
	}
}

func TestPrepareDataset_MissingLabel(t *testing.T) {
	in := writeTemp(t, "raw.csv", "URL\nhttp://a.example/\n")
	if _, err := PrepareDataset(in, filepath.Join(t.TempDir(), "o.csv")); err == nil {
		t.Fatal("expected error for missing Label column")
	}
}

func TestExtractDataset(t *testing.T) {
	in := writeTemp(t, "prepared.csv", "url,label_text,label\nhttps://www.example.com/login,good,0\nhttp://192.168.0.1/reset-password,bad,1\n")
	out := filepath.Join(t.TempDir(), "features.csv")

	n, err := ExtractDataset(in, out)
	if err != nil {
		t.Fatalf("ExtractDataset: %v", err)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}

	recs := readAll(t, out)
	header := recs[0]
	if len(header) != features.Count+3 {
		t.Fatalf("header len = %d", len(header))
	}
	for i, name := range features.Names {
		if header[i] != name {
			t.Errorf("header[%d] = %q, want %q", i, header[i], name)
		}
	}

	row := recs[2]
	want := features.Extract("http://192.168.0.1/reset-password").Values()
	for i := range features.Names {
		if row[i] != strconv.Itoa(int(want[i])) {
			t.Errorf("%s = %s, want %v", features.Names[i], row[i], want[i])
		}
	}
	if row[features.Count] != "http://192.168.0.1/reset-password" || row[features.Count+1] != "bad" || row[features.Count+2] != "1" {
		t.Errorf("trailing cols = %v", row[features.Count:])
	}
}
