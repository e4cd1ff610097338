package summaryjson

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"sdnlabel/internal/logger"
	"sdnlabel/pkg/models"
)

// Writer stores the dataset summary as an indented JSON document.
type Writer struct {
	path string
}

// NewWriter creates a summary writer. The file is created on write.
func NewWriter(path string) (*Writer, error) {
	if path == "" {
		return nil, fmt.Errorf("summary path is empty")
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return &Writer{path: path}, nil
}

// WriteSummary replaces the summary file atomically.
func (w *Writer) WriteSummary(summary models.Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize summary: %w", err)
	}
	logger.Infof("Summary written: %s", w.path)
	return nil
}

// Close implements the writer interface.
func (w *Writer) Close() error {
	return nil
}
