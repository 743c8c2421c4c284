package reporter

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BundleInfo is the metadata stored in a run bundle as bundle_info.json.
type BundleInfo struct {
	Version     string       `json:"version"`
	RunID       string       `json:"run_id"`
	CreatedAt   time.Time    `json:"created_at"`
	ToolVersion string       `json:"tool_version"`
	Files       []BundleFile `json:"files"`
}

// BundleFile records a file included in the bundle.
type BundleFile struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// ExportBundle creates a ZIP archive of the run directory for handoff.
// The archive is written next to the directory as <outputDir>.zip and holds
// every regular file plus bundle_info.json with per-file SHA-256.
func ExportBundle(outputDir, runID, toolVersion string) (string, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return "", fmt.Errorf("read output dir: %w", err)
	}

	zipPath := filepath.Clean(outputDir) + ".zip"
	zipFile, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("create zip: %w", err)
	}
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	defer w.Close()

	var files []BundleFile
	dirBase := filepath.Base(filepath.Clean(outputDir))

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outputDir, entry.Name()))
		if err != nil {
			return "", fmt.Errorf("read %s: %w", entry.Name(), err)
		}

		zf, err := w.Create(dirBase + "/" + entry.Name())
		if err != nil {
			return "", fmt.Errorf("zip create %s: %w", entry.Name(), err)
		}
		if _, err := zf.Write(content); err != nil {
			return "", fmt.Errorf("zip write %s: %w", entry.Name(), err)
		}

		h := sha256.Sum256(content)
		files = append(files, BundleFile{
			Name:   entry.Name(),
			SHA256: hex.EncodeToString(h[:]),
			Size:   int64(len(content)),
		})
	}

	info := BundleInfo{
		Version:     "1.0",
		RunID:       runID,
		CreatedAt:   time.Now().UTC(),
		ToolVersion: toolVersion,
		Files:       files,
	}
	infoJSON, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal bundle info: %w", err)
	}
	zf, err := w.Create(dirBase + "/bundle_info.json")
	if err != nil {
		return "", fmt.Errorf("zip create bundle_info: %w", err)
	}
	if _, err := zf.Write(infoJSON); err != nil {
		return "", fmt.Errorf("zip write bundle_info: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close zip writer: %w", err)
	}
	if err := zipFile.Close(); err != nil {
		return "", fmt.Errorf("close zip file: %w", err)
	}
	return zipPath, nil
}
