package recordjson

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sdnlabel/internal/logger"
	"sdnlabel/pkg/models"
)

// Writer appends flow records to a JSON lines file. It is the provenance
// trail of a collection run and is written before labeling.
type Writer struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
	count   int
}

// NewWriter creates a JSONL writer for flow records.
func NewWriter(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}

	logger.Infof("Record JSON writer initialized: %s", path)
	return &Writer{
		file:    f,
		encoder: json.NewEncoder(f),
	}, nil
}

// WriteRecords writes a batch of records.
func (w *Writer) WriteRecords(records []models.FlowRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range records {
		if err := w.encoder.Encode(&records[i]); err != nil {
			return fmt.Errorf("failed to encode flow record: %w", err)
		}
	}
	w.count += len(records)
	return nil
}

// Count returns how many records were written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close closes the output file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}
