package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestEntry represents one asset in the output manifest.
type ManifestEntry struct {
	Asset    string `json:"asset"`
	Image    string `json:"image,omitempty"`
	Animated bool   `json:"animated"`
	Frames   int    `json:"frames,omitempty"`
	Error    string `json:"error,omitempty"`
	Millis   int64  `json:"elapsed_ms"`
}

// Manifest summarizes a batch run.
type Manifest struct {
	Total   int             `json:"total"`
	Failed  int             `json:"failed"`
	Entries []ManifestEntry `json:"entries"`
}

// BuildManifest converts results; image paths are relative to outputDir.
func BuildManifest(outputDir string, results []Result) Manifest {
	m := Manifest{Total: len(results), Entries: make([]ManifestEntry, len(results))}
	for i, r := range results {
		e := ManifestEntry{
			Asset:    r.Asset,
			Animated: r.Animated,
			Frames:   r.Frames,
			Error:    r.Error,
			Millis:   r.Elapsed.Milliseconds(),
		}
		if r.Success {
			e.Image = r.Output
			if rel, err := filepath.Rel(outputDir, r.Output); err == nil {
				e.Image = filepath.ToSlash(rel)
			}
		} else {
			m.Failed++
		}
		m.Entries[i] = e
	}
	return m
}

// WriteManifest writes the manifest as indented JSON.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("batch: write manifest: %w", err)
	}
	return nil
}
