package datasetcsv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"sdnlabel/internal/logger"
	"sdnlabel/pkg/models"
)

// Writer stores a labeled dataset as CSV with one header row.
type Writer struct {
	path string
}

// NewWriter creates a CSV writer for path.
func NewWriter(path string) (*Writer, error) {
	if path == "" {
		return nil, fmt.Errorf("csv path is empty")
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return &Writer{path: path}, nil
}

// WriteDataset writes ds to a temporary file in the target directory and
// renames it into place, so readers never observe a partial dataset.
func (w *Writer) WriteDataset(ds *models.LabeledDataset) error {
	if ds == nil {
		return fmt.Errorf("nil dataset")
	}
	for i, r := range ds.Records {
		if !r.Labeled() {
			return fmt.Errorf("record %d is not labeled", i)
		}
	}

	f, err := os.CreateTemp(filepath.Dir(w.path), "."+filepath.Base(w.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := f.Name()
	cleanup := func() {
		f.Close()
		os.Remove(tmp)
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(ds.Columns); err != nil {
		cleanup()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range ds.Records {
		if err := cw.Write(r.Row()); err != nil {
			cleanup()
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		cleanup()
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync csv: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close csv: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize csv: %w", err)
	}

	logger.Infof("Dataset written: %s (%d rows)", w.path, len(ds.Records))
	return nil
}

// Path returns the destination path.
func (w *Writer) Path() string { return w.path }

// Close implements the writer interface.
func (w *Writer) Close() error {
	return nil
}
