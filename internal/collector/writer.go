package collector

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Writer saves run artifacts to a single output directory and records a
// SHA-256 hash for each file it writes.
// Safe for concurrent use.
type Writer struct {
	outputDir string
	mu        sync.Mutex
	hashes    []FileHash
}

// FileHash records the SHA-256 hash of a saved artifact.
type FileHash struct {
	File   string `json:"file"`
	SHA256 string `json:"sha256"`
	Size   int    `json:"size"`
}

// NewWriter creates a Writer for the given output directory.
func NewWriter(outputDir string) (*Writer, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Writer{outputDir: outputDir}, nil
}

// OutputDir returns the output directory path.
func (w *Writer) OutputDir() string {
	return w.outputDir
}

// Path joins name onto the output directory.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.outputDir, name)
}

// WriteFile writes data to name inside the output directory and records its hash.
func (w *Writer) WriteFile(name string, data []byte) error {
	path := w.Path(name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.record(name, data)
	return nil
}

// WriteCSV encodes header and rows as CSV into name.
func (w *Writer) WriteCSV(name string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return w.WriteFile(name, buf.Bytes())
}

// WriteJSON writes v as indented JSON into name.
func (w *Writer) WriteJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return w.WriteFile(name, data)
}

func (w *Writer) record(name string, data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.hashes {
		if w.hashes[i].File == name {
			w.hashes[i] = FileHash{File: name, SHA256: sha256Hex(data), Size: len(data)}
			return
		}
	}
	w.hashes = append(w.hashes, FileHash{
		File:   name,
		SHA256: sha256Hex(data),
		Size:   len(data),
	})
}

// sha256Hex computes the SHA-256 hex digest of data.
func sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// RunMeta holds metadata about a scan run.
type RunMeta struct {
	RunID       string    `json:"run_id"`
	Input       string    `json:"input"`
	Model       string    `json:"model"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Duration    string    `json:"duration"`
	Total       int       `json:"total"`
	Phishing    int       `json:"phishing"`
	Narrated    bool      `json:"narrated"`
}

// Manifest records artifact hashes for integrity verification.
type Manifest struct {
	GeneratedAt time.Time  `json:"generated_at"`
	RunID       string     `json:"run_id"`
	Files       []FileHash `json:"files"`
}

// SaveMeta writes the run metadata to run_meta.json.
func (w *Writer) SaveMeta(meta RunMeta) error {
	return w.WriteJSON("run_meta.json", meta)
}

// SaveManifest writes the hash manifest to manifest.json. The manifest itself
// is not listed.
func (w *Writer) SaveManifest(runID string) error {
	manifest := Manifest{
		GeneratedAt: time.Now().UTC(),
		RunID:       runID,
		Files:       w.Hashes(),
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	path := w.Path("manifest.json")
	return os.WriteFile(path, data, 0644)
}

// Hashes returns the accumulated file hashes.
func (w *Writer) Hashes() []FileHash {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := make([]FileHash, len(w.hashes))
	copy(cp, w.hashes)
	return cp
}

// GenerateOutputDir creates a timestamped output directory path under baseDir.
func GenerateOutputDir(baseDir string) string {
	ts := time.Now().Format("2006-01-02T15-04-05")
	return filepath.Join(baseDir, ts)
}
