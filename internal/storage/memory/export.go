// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	v1 "github.com/CaptainRL/captain/internal/storage/memory/export/v1"
)

// exportJSON writes the match data to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() error {
	if b.match.EndedAt.IsZero() {
		b.match.EndedAt = time.Now()
	}
	export := v1.Build(b.snapshot())

	outputPath := filepath.Join(b.cfg.OutputDir, FileName(b.match.SessionID, b.match.StartedAt, b.cfg.CompressOutput))

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := WriteFile(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

// FileName is the export file name for a match.
func FileName(sessionID string, start time.Time, compress bool) string {
	name := fmt.Sprintf("match_%s_%s.json", start.Format("20060102_150405"), shortID(sessionID))
	if compress {
		name += ".gz"
	}
	return name
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "local"
	}
	return id
}

// WriteFile encodes export as JSON at path, gzip-compressed when compress is set.
func WriteFile(path string, export v1.Export, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if compress {
		gzWriter := gzip.NewWriter(f)
		defer gzWriter.Close()
		w = gzWriter
	}

	if err := json.NewEncoder(w).Encode(export); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}
