package alertjson

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sdnlabel/internal/logger"
	"sdnlabel/pkg/models"
)

// Line is one persisted alert. Seq numbers alerts within a scenario in the
// order the source delivered them; Resolved is false when the alert's time
// could not be placed on the run timeline and only raw_time is meaningful.
type Line struct {
	Scenario string `json:"scenario"`
	Seq      int    `json:"seq"`
	Resolved bool   `json:"resolved"`
	models.AlertEvent
}

// Writer keeps the alerts every scenario was labeled against, so a dataset
// can be audited or relabeled later. Each batch is flushed as a whole.
type Writer struct {
	path   string
	file   *os.File
	buf    *bufio.Writer
	mu     sync.Mutex
	counts map[string]int
}

// NewWriter truncates path and prepares it for alert lines.
func NewWriter(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create alert log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("open alert log: %w", err)
	}
	logger.Infof("Alert log: %s", path)
	return &Writer{path: path, file: f, buf: bufio.NewWriter(f), counts: map[string]int{}}, nil
}

// WriteAlerts appends one scenario's alerts. Sequence numbers continue
// across batches of the same scenario.
func (w *Writer) WriteAlerts(scenario string, alerts []models.AlertEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return fmt.Errorf("alert log %s is closed", w.path)
	}

	enc := json.NewEncoder(w.buf)
	seq := w.counts[scenario]
	for _, a := range alerts {
		line := Line{Scenario: scenario, Seq: seq, Resolved: !a.OccurredAt.IsZero(), AlertEvent: a}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("encode alert %s/%d: %w", scenario, seq, err)
		}
		seq++
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flush alert log: %w", err)
	}
	w.counts[scenario] = seq
	return nil
}

// Count returns how many alerts were written for scenario.
func (w *Writer) Count(scenario string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.counts[scenario]
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	ferr := w.buf.Flush()
	cerr := w.file.Close()
	w.file = nil
	if ferr != nil {
		return ferr
	}
	return cerr
}
